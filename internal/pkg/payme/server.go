// Package payme implements the Payme Merchant API: credential checks, the
// JSON-RPC envelope and the mapping of ledger outcomes to protocol codes.
package payme

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2/log"

	"github.com/futapp/futapp-api/app/models"
	"github.com/futapp/futapp-api/internal/pkg/ledger"
)

// Ledger is the payment state machine driven by the server.
type Ledger interface {
	CheckPerform(ctx context.Context, orderID string, amount int64) error
	CreateTransaction(ctx context.Context, in ledger.CreateInput, meta ledger.RequestMeta) (*models.PaymentTransaction, error)
	PerformTransaction(ctx context.Context, providerTxID string, meta ledger.RequestMeta) (*models.PaymentTransaction, error)
	CancelTransaction(ctx context.Context, providerTxID string, reason int, meta ledger.RequestMeta) (*models.PaymentTransaction, error)
	CheckTransaction(ctx context.Context, providerTxID string) (*models.PaymentTransaction, error)
	Statement(ctx context.Context, from, to int64) ([]models.PaymentTransaction, error)
}

// Inbound is the transport level view of one callback.
type Inbound struct {
	HTTPMethod    string
	Authorization string
	RemoteIP      string
	RequestID     string
	Body          []byte
}

// Outcome describes a handled callback for observers.
type Outcome struct {
	Method        string
	ProviderTxID  string
	RPCID         string
	RequestID     string
	Code          int
	Authenticated bool
	PayloadHash   string
	Body          []byte
	ReceivedAt    time.Time
	Duration      time.Duration
}

// Observer is notified after every callback, successful or not.
type Observer interface {
	Observe(ctx context.Context, o Outcome)
}

type Server struct {
	ledger       Ledger
	auth         *Authenticator
	accountField string
	observers    []Observer
}

func NewServer(l Ledger, auth *Authenticator, accountField string, observers ...Observer) *Server {
	if accountField == "" {
		accountField = "order_id"
	}
	return &Server{ledger: l, auth: auth, accountField: accountField, observers: observers}
}

// Handle processes one callback. The returned response is always written
// with HTTP 200.
func (s *Server) Handle(ctx context.Context, in Inbound) *Response {
	outcome := Outcome{RequestID: in.RequestID, ReceivedAt: time.Now()}

	resp := s.handle(ctx, in, &outcome)

	outcome.Code = resp.Code()
	outcome.RPCID = string(resp.ID)
	outcome.Duration = time.Since(outcome.ReceivedAt)
	for _, o := range s.observers {
		o.Observe(ctx, outcome)
	}
	return resp
}

func (s *Server) handle(ctx context.Context, in Inbound, outcome *Outcome) *Response {
	if !strings.EqualFold(in.HTTPMethod, http.MethodPost) {
		return failure(nil, ErrorFor(ErrMethodNotAllowed, s.accountField))
	}

	if err := s.auth.Verify(in.Authorization, in.RemoteIP); err != nil {
		log.Warnf("[Payme] Rejected callback from %s: %v", in.RemoteIP, err)
		return failure(peekID(in.Body), ErrorFor(err, s.accountField))
	}
	outcome.Authenticated = true

	var req Request
	if err := json.Unmarshal(in.Body, &req); err != nil {
		log.Warnf("[Payme] Malformed callback body: %v", err)
		return failure(peekID(in.Body), ErrorFor(ErrMalformed, s.accountField))
	}
	outcome.Method = req.Method
	if req.Method == "" {
		return failure(req.ID, ErrorFor(fmt.Errorf("%w: method missing", ErrInvalidRequest), s.accountField))
	}

	sum := sha256.Sum256(in.Body)
	outcome.PayloadHash = hex.EncodeToString(sum[:])
	outcome.Body = in.Body

	meta := ledger.RequestMeta{RequestID: requestID(in.RequestID, req.ID), PayloadHash: outcome.PayloadHash}
	result, providerTxID, err := s.dispatch(ctx, req, meta)
	outcome.ProviderTxID = providerTxID
	if err != nil {
		perr := ErrorFor(err, s.accountField)
		if perr.Code == CodeSystemError {
			log.Errorf("[Payme] %s payme_id=%s rpc_id=%s failed: %v", req.Method, providerTxID, string(req.ID), err)
		} else {
			log.Warnf("[Payme] %s payme_id=%s rpc_id=%s rejected with %d: %v", req.Method, providerTxID, string(req.ID), perr.Code, err)
		}
		return failure(req.ID, perr)
	}
	return success(req.ID, result)
}

func (s *Server) dispatch(ctx context.Context, req Request, meta ledger.RequestMeta) (interface{}, string, error) {
	switch req.Method {
	case MethodCheckPerformTransaction:
		var p checkPerformParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, "", err
		}
		orderID, err := s.orderID(p.Account)
		if err != nil {
			return nil, "", err
		}
		if err := s.ledger.CheckPerform(ctx, orderID, p.Amount); err != nil {
			return nil, "", err
		}
		return CheckPerformResult{Allow: true}, "", nil

	case MethodCreateTransaction:
		var p createParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, p.ID, err
		}
		orderID, err := s.orderID(p.Account)
		if err != nil {
			return nil, p.ID, err
		}
		tx, err := s.ledger.CreateTransaction(ctx, ledger.CreateInput{
			ProviderTransactionID: p.ID,
			OrderID:               orderID,
			Amount:                p.Amount,
			ProviderTime:          p.Time,
		}, meta)
		if err != nil {
			return nil, p.ID, err
		}
		return newCreateResult(tx), p.ID, nil

	case MethodPerformTransaction:
		var p transactionParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, p.ID, err
		}
		tx, err := s.ledger.PerformTransaction(ctx, p.ID, meta)
		if err != nil {
			return nil, p.ID, err
		}
		return newPerformResult(tx), p.ID, nil

	case MethodCancelTransaction:
		var p cancelParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, p.ID, err
		}
		tx, err := s.ledger.CancelTransaction(ctx, p.ID, p.Reason, meta)
		if err != nil {
			return nil, p.ID, err
		}
		return newCancelResult(tx), p.ID, nil

	case MethodCheckTransaction:
		var p transactionParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, p.ID, err
		}
		tx, err := s.ledger.CheckTransaction(ctx, p.ID)
		if err != nil {
			return nil, p.ID, err
		}
		return newCheckResult(tx), p.ID, nil

	case MethodGetStatement:
		var p statementParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, "", err
		}
		txs, err := s.ledger.Statement(ctx, p.From, p.To)
		if err != nil {
			return nil, "", err
		}
		return newStatementResult(txs, s.accountField), "", nil

	case MethodChangePassword:
		// keys rotate through PAYME_KEY and PAYME_PREVIOUS_KEY
		return nil, "", fmt.Errorf("%w: %s is not supported", ErrMethodNotFound, req.Method)

	default:
		return nil, "", fmt.Errorf("%w: %s", ErrMethodNotFound, req.Method)
	}
}

func (s *Server) orderID(account Account) (string, error) {
	id, ok := account.Field(s.accountField)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrInvalidAccount, s.accountField)
	}
	return id, nil
}

// maxRequestIDLen is the width of the audit request_id column.
const maxRequestIDLen = 64

func requestID(transportID string, rpcID json.RawMessage) string {
	id := transportID
	if id == "" {
		id = strings.Trim(string(rpcID), `"`)
	}
	id = strings.ToValidUTF8(id, "")
	for len(id) > maxRequestIDLen {
		_, size := utf8.DecodeLastRuneInString(id)
		id = id[:len(id)-size]
	}
	return id
}
