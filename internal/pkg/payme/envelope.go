package payme

import (
	"encoding/json"
)

// Request is an inbound Payme Merchant API call.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// Response is written with HTTP 200 for every outcome; failures travel in Error.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

type Error struct {
	Code    int         `json:"code"`
	Message Message     `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Message is the localized error text Payme shows to the payer.
type Message struct {
	Ru string `json:"ru"`
	Uz string `json:"uz"`
	En string `json:"en"`
}

func success(id json.RawMessage, result interface{}) *Response {
	return &Response{JSONRPC: "2.0", ID: normalizeID(id), Result: result}
}

func failure(id json.RawMessage, e *Error) *Response {
	return &Response{JSONRPC: "2.0", ID: normalizeID(id), Error: e}
}

func normalizeID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return json.RawMessage("null")
	}
	return id
}

// peekID extracts the request id from a body that was not acted upon.
func peekID(body []byte) json.RawMessage {
	var envelope struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil
	}
	return envelope.ID
}

// Code returns the error code of the response, 0 on success.
func (r *Response) Code() int {
	if r == nil || r.Error == nil {
		return 0
	}
	return r.Error.Code
}
