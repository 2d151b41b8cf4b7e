package payme

import (
	"errors"

	"github.com/futapp/futapp-api/internal/pkg/ledger"
)

// Payme Merchant API error codes.
const (
	CodeSystemError         = -32400
	CodeAuthFailure         = -32504
	CodeParseError          = -32700
	CodeInvalidRequest      = -32600
	CodeMethodNotFound      = -32601
	CodeMethodNotPOST       = -32300
	CodeTransactionNotFound = -31003
	CodeInvalidAmount       = -31001
	CodeCannotPerform       = -31008
	CodeCannotCancel        = -31007
	CodeOrderNotFound       = -31050
	CodeOrderNotAvailable   = -31051
)

var (
	ErrAuthFailure      = errors.New("payme: authorization failed")
	ErrMalformed        = errors.New("payme: malformed json")
	ErrInvalidRequest   = errors.New("payme: invalid request")
	ErrMethodNotFound   = errors.New("payme: method not found")
	ErrMethodNotAllowed = errors.New("payme: http method is not POST")
	ErrInvalidAccount   = errors.New("payme: account field missing")
)

var messages = map[int]Message{
	CodeSystemError: {
		Ru: "Системная ошибка, повторите запрос позже",
		Uz: "Tizim xatosi, keyinroq qayta urinib ko'ring",
		En: "System error, please retry later",
	},
	CodeAuthFailure: {
		Ru: "Недостаточно привилегий для выполнения метода",
		Uz: "Metodni bajarish uchun imtiyozlar yetarli emas",
		En: "Insufficient privileges to perform this method",
	},
	CodeParseError: {
		Ru: "Ошибка разбора JSON",
		Uz: "JSON tahlil qilishda xatolik",
		En: "Parse error",
	},
	CodeInvalidRequest: {
		Ru: "Неверный RPC-запрос",
		Uz: "Noto'g'ri RPC so'rov",
		En: "Invalid RPC request",
	},
	CodeMethodNotFound: {
		Ru: "Запрашиваемый метод не найден",
		Uz: "So'ralgan metod topilmadi",
		En: "Method not found",
	},
	CodeMethodNotPOST: {
		Ru: "Метод запроса не POST",
		Uz: "So'rov usuli POST emas",
		En: "Request method is not POST",
	},
	CodeTransactionNotFound: {
		Ru: "Транзакция не найдена",
		Uz: "Tranzaksiya topilmadi",
		En: "Transaction not found",
	},
	CodeInvalidAmount: {
		Ru: "Неверная сумма",
		Uz: "Noto'g'ri summa",
		En: "Invalid amount",
	},
	CodeCannotPerform: {
		Ru: "Невозможно выполнить данную операцию",
		Uz: "Ushbu amalni bajarib bo'lmaydi",
		En: "Unable to perform operation",
	},
	CodeCannotCancel: {
		Ru: "Заказ выполнен. Невозможно отменить транзакцию",
		Uz: "Buyurtma bajarilgan. Tranzaksiyani bekor qilib bo'lmaydi",
		En: "Order completed. Unable to cancel transaction",
	},
	CodeOrderNotFound: {
		Ru: "Заказ не найден",
		Uz: "Buyurtma topilmadi",
		En: "Order not found",
	},
	CodeOrderNotAvailable: {
		Ru: "Заказ недоступен для оплаты",
		Uz: "Buyurtma to'lov uchun mavjud emas",
		En: "Order is not available for payment",
	},
}

// NewError builds a protocol error with its localized message.
func NewError(code int, data interface{}) *Error {
	msg, ok := messages[code]
	if !ok {
		msg = messages[CodeSystemError]
	}
	return &Error{Code: code, Message: msg, Data: data}
}

// ErrorFor maps a failure onto the Payme error taxonomy. accountField is
// reported as data for order related errors. Unknown errors become a generic
// system error without any detail.
func ErrorFor(err error, accountField string) *Error {
	switch {
	case errors.Is(err, ErrAuthFailure):
		return NewError(CodeAuthFailure, nil)
	case errors.Is(err, ErrMalformed):
		return NewError(CodeParseError, nil)
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ledger.ErrInvalidInput):
		return NewError(CodeInvalidRequest, nil)
	case errors.Is(err, ErrMethodNotFound):
		return NewError(CodeMethodNotFound, nil)
	case errors.Is(err, ErrMethodNotAllowed):
		return NewError(CodeMethodNotPOST, nil)
	case ledger.IsRetryable(err):
		return NewError(CodeSystemError, nil)
	case errors.Is(err, ErrInvalidAccount), errors.Is(err, ledger.ErrOrderNotFound):
		return NewError(CodeOrderNotFound, accountField)
	case errors.Is(err, ledger.ErrOrderUnavailable):
		return NewError(CodeOrderNotAvailable, accountField)
	case errors.Is(err, ledger.ErrNotFound):
		return NewError(CodeTransactionNotFound, nil)
	case errors.Is(err, ledger.ErrAmountMismatch):
		return NewError(CodeInvalidAmount, nil)
	case errors.Is(err, ledger.ErrNotCancellable):
		return NewError(CodeCannotCancel, nil)
	case errors.Is(err, ledger.ErrInvalidState):
		return NewError(CodeCannotPerform, nil)
	default:
		return NewError(CodeSystemError, nil)
	}
}
