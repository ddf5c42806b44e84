package domain

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed taxonomy of failures returned to callers.
type ErrorKind string

// Every error surfaced by a service operation carries one of these kinds.
const (
	// KindInvalidPayload marks malformed or constraint-violating input.
	KindInvalidPayload ErrorKind = "invalid_payload"
	// KindNotFound marks a lookup that found nothing, or an empty list.
	KindNotFound ErrorKind = "not_found"
	// KindUnauthorized marks a caller lacking the required role.
	KindUnauthorized ErrorKind = "unauthorized"
	// KindInternal is reserved for durable-storage faults.
	KindInternal ErrorKind = "internal"
)

// Error is a tagged error value carrying a kind and a human-readable detail.
type Error struct {
	Kind   ErrorKind
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// Is matches against another *Error by kind, so callers can compare with
// errors.Is(err, &Error{Kind: KindNotFound}).
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Kind == other.Kind
}

// NewInvalidPayload builds an invalid_payload error.
func NewInvalidPayload(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidPayload, Detail: fmt.Sprintf(format, args...)}
}

// NewNotFound builds a not_found error.
func NewNotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Detail: fmt.Sprintf(format, args...)}
}

// NewUnauthorized builds an unauthorized error.
func NewUnauthorized(format string, args ...any) *Error {
	return &Error{Kind: KindUnauthorized, Detail: fmt.Sprintf(format, args...)}
}

// NewInternal builds an internal error wrapping a storage fault description.
func NewInternal(format string, args ...any) *Error {
	return &Error{Kind: KindInternal, Detail: fmt.Sprintf(format, args...)}
}

// KindOf extracts the error kind, defaulting to KindInternal for untagged errors.
func KindOf(err error) ErrorKind {
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
