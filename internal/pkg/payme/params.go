package payme

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Merchant API methods.
const (
	MethodCheckPerformTransaction = "CheckPerformTransaction"
	MethodCreateTransaction       = "CreateTransaction"
	MethodPerformTransaction      = "PerformTransaction"
	MethodCancelTransaction       = "CancelTransaction"
	MethodCheckTransaction        = "CheckTransaction"
	MethodGetStatement            = "GetStatement"
	MethodChangePassword          = "ChangePassword"
)

var validate = validator.New()

// Account holds the merchant defined account fields of a payment.
type Account map[string]json.RawMessage

// Field returns the value of name as a string. Numeric values keep their
// JSON representation.
func (a Account) Field(name string) (string, bool) {
	raw, ok := a[name]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		return s, s != ""
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true
	}
	return "", false
}

type checkPerformParams struct {
	Amount  int64   `json:"amount"`
	Account Account `json:"account" validate:"required"`
}

type createParams struct {
	ID      string  `json:"id" validate:"required,max=64"`
	Time    int64   `json:"time" validate:"gt=0"`
	Amount  int64   `json:"amount"`
	Account Account `json:"account" validate:"required"`
}

type transactionParams struct {
	ID string `json:"id" validate:"required,max=64"`
}

type cancelParams struct {
	ID     string `json:"id" validate:"required,max=64"`
	Reason int    `json:"reason" validate:"required"`
}

type statementParams struct {
	From int64 `json:"from" validate:"gte=0"`
	To   int64 `json:"to" validate:"gte=0"`
}

// normalizer trims identifiers before validation so every method looks a
// transaction up by the same key.
type normalizer interface {
	normalize()
}

func (p *createParams) normalize()      { p.ID = strings.TrimSpace(p.ID) }
func (p *transactionParams) normalize() { p.ID = strings.TrimSpace(p.ID) }
func (p *cancelParams) normalize()      { p.ID = strings.TrimSpace(p.ID) }

func decodeParams(raw json.RawMessage, dst interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return fmt.Errorf("%w: params missing", ErrInvalidRequest)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if n, ok := dst.(normalizer); ok {
		n.normalize()
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}
