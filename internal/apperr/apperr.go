// Package apperr defines the error kinds shared by the cart, order and payment
// flows. Handlers map a Kind to an HTTP status; everything else only wraps.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	Internal Kind = iota
	InvalidInput
	NotFound
	InsufficientStock
	Unauthorized
	MalformedCallback
	PaymentNotComplete
	SignatureMismatch
	StockInconsistency
)

var kindNames = map[Kind]string{
	Internal:           "internal",
	InvalidInput:       "invalid_input",
	NotFound:           "not_found",
	InsufficientStock:  "insufficient_stock",
	Unauthorized:       "unauthorized",
	MalformedCallback:  "malformed_callback",
	PaymentNotComplete: "payment_not_complete",
	SignatureMismatch:  "signature_mismatch",
	StockInconsistency: "stock_inconsistency",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error carries a client-safe Message next to the underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Err.Error()
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, apperr.ErrNotFound) works
// regardless of message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Err == nil
}

// Kind-only sentinels for errors.Is.
var (
	ErrInvalidInput       = &Error{Kind: InvalidInput}
	ErrNotFound           = &Error{Kind: NotFound}
	ErrInsufficientStock  = &Error{Kind: InsufficientStock}
	ErrUnauthorized       = &Error{Kind: Unauthorized}
	ErrMalformedCallback  = &Error{Kind: MalformedCallback}
	ErrPaymentNotComplete = &Error{Kind: PaymentNotComplete}
	ErrSignatureMismatch  = &Error{Kind: SignatureMismatch}
	ErrStockInconsistency = &Error{Kind: StockInconsistency}
)

func New(kind Kind, msg string) *Error { return &Error{Kind: kind, Message: msg} }

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func Invalid(msg string) *Error { return New(InvalidInput, msg) }

func NotFoundf(format string, args ...any) *Error {
	return Newf(NotFound, format, args...)
}

// Internalf hides err behind a generic message; the cause is still reachable via Unwrap.
func Internalf(err error, format string, args ...any) *Error {
	return &Error{Kind: Internal, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf reports the Kind of the first *Error in err's chain, Internal otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// MessageOf returns the client-safe message. Internal errors never expose details.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != Internal && e.Message != "" {
		return e.Message
	}
	return "Internal Server Error"
}
