// Package errs implements the error taxonomy used across the reconciliation
// engine. Every error that crosses a component boundary carries a Kind so
// callers can branch on policy (retry, backoff, surface, fail fast) without
// string matching.
package errs

import (
	"errors"
	"fmt"
)

// Kind is one of the seven programmatically distinguishable error kinds.
type Kind string

const (
	NotFound      Kind = "not_found"
	Busy          Kind = "busy"
	Unreachable   Kind = "unreachable"
	ProtocolError Kind = "protocol_error"
	Corruption    Kind = "corruption"
	BadRequest    Kind = "bad_request"
	Transient     Kind = "transient"
)

// Error is the concrete error type carrying a Kind and an optional cause.
type Error struct {
	Kind  Kind
	msg   string
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.msg, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.msg)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New constructs a Kind-tagged error with no wrapped cause.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, msg: msg}
}

// Newf constructs a Kind-tagged error with a formatted message.
func Newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap tags an existing error with a Kind, preserving it as the cause so
// errors.Is/errors.As still see through to it.
func Wrap(kind Kind, cause error, msg string) error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, msg: msg, cause: cause}
}

// KindOf extracts the Kind of err, walking the wrap chain. Returns ("", false)
// for errors that were never tagged.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Is reports whether err carries the given Kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// Fatal reports whether a Kind is fatal to the Reconciler. Only Corruption
// (Store corruption) is; every other kind is per-tick recoverable.
func Fatal(kind Kind) bool {
	return kind == Corruption
}
