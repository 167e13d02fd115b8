package domain

import (
	"errors"
	"fmt"
)

// ErrorKind is the stable error taxonomy callers switch on. Kinds map
// one-to-one onto HTTP status classes at the edge; nothing below the
// handlers inspects messages.
type ErrorKind string

const (
	KindValidation ErrorKind = "VALIDATION"
	KindNotFound   ErrorKind = "NOT_FOUND"
	KindConflict   ErrorKind = "CONFLICT"
	KindBooking    ErrorKind = "BOOKING"
	KindDatabase   ErrorKind = "DATABASE"
)

type Error struct {
	Kind    ErrorKind
	Message string
	Details string
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func NewValidation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func NewNotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func NewConflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

func NewBooking(msg string) *Error {
	return &Error{Kind: KindBooking, Message: msg}
}

// NewDatabase wraps an underlying store failure. The cause goes into
// Details for logs; the message stays opaque to callers.
func NewDatabase(cause error) *Error {
	return &Error{Kind: KindDatabase, Message: "storage failure", Details: cause.Error()}
}

// IsKind reports whether err is a *Error of the given kind, unwrapping
// as needed.
func IsKind(err error, kind ErrorKind) bool {
	var de *Error
	return errors.As(err, &de) && de.Kind == kind
}

// AsError extracts the *Error from err, or wraps err as a Database
// error so nothing below the handlers leaks raw store errors.
func AsError(err error) *Error {
	var de *Error
	if errors.As(err, &de) {
		return de
	}
	return NewDatabase(err)
}
