// Package apperror defines the typed errors the scheduling and booking engine returns.
// Callers branch on Kind; none of these are retried internally.
package apperror

import (
	"errors"
	"fmt"
)

type Kind string

const (
	// KindValidation covers malformed input: bad windows, unknown timezones, bad dates, counts.
	KindValidation Kind = "validation"
	// KindUnavailable is a user-actionable conflict (slot not offered, dates already taken).
	KindUnavailable Kind = "unavailable"
	// KindMismatch is a payment whose amount or currency differs from the booking. Needs review.
	KindMismatch Kind = "mismatch"
	// KindIllegalTransition is a status move outside the lifecycle table.
	KindIllegalTransition Kind = "illegal_transition"
	KindNotFound          Kind = "not_found"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

func Validation(format string, args ...any) *Error {
	return New(KindValidation, format, args...)
}

func Unavailable(format string, args ...any) *Error {
	return New(KindUnavailable, format, args...)
}

func Mismatch(format string, args ...any) *Error {
	return New(KindMismatch, format, args...)
}

func IllegalTransition(format string, args ...any) *Error {
	return New(KindIllegalTransition, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, format, args...)
}

// KindOf returns the kind of the first *Error in err's chain, or "" if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the user-facing message of an *Error, or fallback for anything else.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return fallback
}
