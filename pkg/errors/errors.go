package errors

import (
	"errors"
	"fmt"
)

// ErrOptimisticLock a conditional update matched no row: another writer got there first.
var ErrOptimisticLock = errors.New("record was modified by another operation")

// Kind classifies an error for callers.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindAccessDenied Kind = "access_denied"
	KindSystem       Kind = "system_error"
)

// Error is a typed, user-safe business error.
//
// Code is machine readable and stable; Message is safe to show to end users.
// Detail optionally refines Message (e.g. who decided a request and when).
// Hint is an opaque token the caller maps to a destination.
// For KindSystem, CorrelationID identifies the log entry carrying the cause.
type Error struct {
	Kind          Kind
	Code          string
	Message       string
	Detail        string
	Hint          string
	CorrelationID string
	Err           error
}

// New declares a sentinel business error.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by code so that decorated copies of a sentinel
// still satisfy errors.Is(err, sentinel).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

// WithDetail returns a copy of e with a detail message.
func (e *Error) WithDetail(format string, args ...any) *Error {
	cp := *e
	cp.Detail = fmt.Sprintf(format, args...)
	return &cp
}

// System wraps an infrastructure failure. The cause stays attached for
// logging but is never part of the user-facing message.
func System(correlationID string, cause error) *Error {
	return &Error{
		Kind:          KindSystem,
		Code:          "system_error",
		Message:       "the request could not be completed, please try again later",
		CorrelationID: correlationID,
		Err:           cause,
	}
}

// As extracts the *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf classifies err; anything untyped is a system error.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindSystem
}

// PublicMessage is the text safe to return to an end user.
func PublicMessage(err error) string {
	e, ok := As(err)
	if !ok {
		return System("", err).Message
	}
	if e.Kind == KindSystem {
		return e.Message
	}
	if e.Detail != "" {
		return e.Message + ": " + e.Detail
	}
	return e.Message
}
