package game

import (
	"errors"
	"fmt"
)

// Kind classifies engine failures so the transport layer can map them to
// status codes without string matching.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindUnauthorized      Kind = "unauthorized"
	KindInvalidState      Kind = "invalid_state"
	KindNotFound          Kind = "not_found"
	KindInsufficientCards Kind = "insufficient_cards"
)

// Error is the engine's only error type. Every failed transition leaves the
// session untouched, so callers can retry or resynchronize freely.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

func errf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the failure kind, or "" for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
