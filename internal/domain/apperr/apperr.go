// Package apperr defines the error taxonomy shared by the commerce workflows.
//
// Payment and persistence errors carry a Charged flag so callers can tell
// "charge occurred, record missing" apart from "charge never attempted".
// ChargeUnknown marks the third case: the charge was dispatched but the
// provider's answer was lost, so it may or may not have been captured.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation         Kind = "VALIDATION"
	KindNotFound           Kind = "NOT_FOUND"
	KindConflict           Kind = "CONFLICT"
	KindPaymentDeclined    Kind = "PAYMENT_DECLINED"
	KindPaymentUnavailable Kind = "PAYMENT_UNAVAILABLE"
	KindPersistenceFailure Kind = "PERSISTENCE_FAILURE"
	KindInternal           Kind = "INTERNAL"
)

type Error struct {
	Kind    Kind
	Op      string
	Message string
	// Charged is set when a gateway charge succeeded before the failure.
	Charged bool
	// ChargeUnknown is set when a charge request reached the provider but no verdict came back.
	ChargeUnknown bool
	ChargeID      string
	Err           error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, msg)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind so errors.Is(err, apperr.NotFound) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Message == ""
}

var (
	Validation         = &Error{Kind: KindValidation}
	NotFound           = &Error{Kind: KindNotFound}
	Conflict           = &Error{Kind: KindConflict}
	PaymentDeclined    = &Error{Kind: KindPaymentDeclined}
	PaymentUnavailable = &Error{Kind: KindPaymentUnavailable}
	PersistenceFailure = &Error{Kind: KindPersistenceFailure}
)

func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func NewValidation(op, format string, args ...interface{}) *Error {
	return New(KindValidation, op, fmt.Sprintf(format, args...))
}

func NewNotFound(op, format string, args ...interface{}) *Error {
	return New(KindNotFound, op, fmt.Sprintf(format, args...))
}

func NewConflict(op, format string, args ...interface{}) *Error {
	return New(KindConflict, op, fmt.Sprintf(format, args...))
}

// NewChargedPersistence reports a store failure that happened after a successful charge.
func NewChargedPersistence(op, chargeID string, err error) *Error {
	return &Error{
		Kind:     KindPersistenceFailure,
		Op:       op,
		Message:  "payment captured but record could not be saved",
		Charged:  true,
		ChargeID: chargeID,
		Err:      err,
	}
}

// NewChargeUnknown reports a dispatched charge whose outcome could not be determined.
func NewChargeUnknown(op, message string, err error) *Error {
	return &Error{
		Kind:          KindPaymentUnavailable,
		Op:            op,
		Message:       message,
		ChargeUnknown: true,
		Err:           err,
	}
}

// IsChargeUnknown reports whether err carries an undetermined charge outcome.
func IsChargeUnknown(err error) bool {
	appErr, ok := As(err)
	return ok && appErr.ChargeUnknown
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// As is shorthand for errors.As into *Error.
func As(err error) (*Error, bool) {
	var appErr *Error
	ok := errors.As(err, &appErr)
	return appErr, ok
}
