package services

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindInvalidInput       Kind = "invalid_input"
	KindNotAuthorized      Kind = "not_authorized"
	KindInvalidState       Kind = "invalid_state"
	KindDeadlinePassed     Kind = "deadline_passed"
	KindDeadlineNotReached Kind = "deadline_not_reached"
	KindTransferFailed     Kind = "transfer_failed"
	KindNotFound           Kind = "not_found"
)

// Error is returned by every EscrowService operation that rejects a call.
// A rejected call leaves records, indices and balances untouched.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	s := string(e.Kind)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinels by kind, and by message when the sentinel has one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Msg == "" || t.Msg == e.Msg
}

var (
	ErrInvalidInput       = &Error{Kind: KindInvalidInput}
	ErrNotAuthorized      = &Error{Kind: KindNotAuthorized}
	ErrInvalidState       = &Error{Kind: KindInvalidState}
	ErrDeadlinePassed     = &Error{Kind: KindDeadlinePassed}
	ErrDeadlineNotReached = &Error{Kind: KindDeadlineNotReached}
	ErrTransferFailed     = &Error{Kind: KindTransferFailed}
	ErrNotFound           = &Error{Kind: KindNotFound}

	ErrAlreadyConfirmed = &Error{Kind: KindInvalidState, Msg: msgAlreadyConfirmed}
)

const msgAlreadyConfirmed = "already confirmed"

func newError(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// KindOf reports the kind of err, or "" when err is not a ledger error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
