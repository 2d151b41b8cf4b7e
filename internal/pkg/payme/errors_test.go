package payme

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/futapp/futapp-api/internal/pkg/ledger"
)

func TestErrorFor(t *testing.T) {
	tests := []struct {
		err      error
		code     int
		withData bool
	}{
		{ErrAuthFailure, CodeAuthFailure, false},
		{ErrMalformed, CodeParseError, false},
		{fmt.Errorf("%w: params", ErrInvalidRequest), CodeInvalidRequest, false},
		{fmt.Errorf("%w: ids required", ledger.ErrInvalidInput), CodeInvalidRequest, false},
		{ErrMethodNotFound, CodeMethodNotFound, false},
		{ErrMethodNotAllowed, CodeMethodNotPOST, false},
		{ErrInvalidAccount, CodeOrderNotFound, true},
		{fmt.Errorf("%w: o1", ledger.ErrOrderNotFound), CodeOrderNotFound, true},
		{ledger.ErrOrderUnavailable, CodeOrderNotAvailable, true},
		{ledger.ErrNotFound, CodeTransactionNotFound, false},
		{ledger.ErrAmountMismatch, CodeInvalidAmount, false},
		{fmt.Errorf("%w: tx1", ledger.ErrNotCancellable), CodeCannotCancel, false},
		{ledger.ErrInvalidState, CodeCannotPerform, false},
		{ledger.ErrDownstreamUnavailable, CodeSystemError, false},
		{ledger.ErrConflict, CodeSystemError, false},
		{fmt.Errorf("%w: mark order o1 paid: %w", ledger.ErrDownstreamUnavailable, ledger.ErrOrderUnavailable), CodeSystemError, false},
		{errors.New("sql: connection reset"), CodeSystemError, false},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			e := ErrorFor(tt.err, "order_id")
			assert.Equal(t, tt.code, e.Code)
			assert.NotEmpty(t, e.Message.Ru)
			assert.NotEmpty(t, e.Message.Uz)
			assert.NotEmpty(t, e.Message.En)
			if tt.withData {
				assert.Equal(t, "order_id", e.Data)
			} else {
				assert.Nil(t, e.Data)
			}
		})
	}
}

func TestErrorFor_HidesInternalDetail(t *testing.T) {
	e := ErrorFor(errors.New("dial tcp 10.0.0.5:3306: connection refused"), "order_id")
	assert.NotContains(t, e.Message.En, "10.0.0.5")
	assert.Equal(t, messages[CodeSystemError], e.Message)
}
