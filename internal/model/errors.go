package model

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes model errors.
type ErrorCode string

const (
	// ErrCodeInvalidObject indicates an object is missing its id or types, or
	// carries a property that cannot be encoded.
	ErrCodeInvalidObject ErrorCode = "INVALID_OBJECT"

	// ErrCodeInvalidTimestamp indicates an instant with no defined zone.
	ErrCodeInvalidTimestamp ErrorCode = "INVALID_TIMESTAMP"

	// ErrCodeInvalidLink indicates a link with an empty query or label.
	ErrCodeInvalidLink ErrorCode = "INVALID_LINK"

	// ErrCodeUnsupportedValue indicates a value outside the Value union.
	// Seeing this is a programming error in the producer.
	ErrCodeUnsupportedValue ErrorCode = "UNSUPPORTED_VALUE"
)

// Error is a malformed-input error reported to the immediate caller.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Field names the offending field or property key, if any.
	Field string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Field != "" {
		msg = fmt.Sprintf("%s (field=%s)", msg, e.Field)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsInvalidObject reports whether err (or any error it wraps) is an
// INVALID_OBJECT error.
func IsInvalidObject(err error) bool {
	return hasCode(err, ErrCodeInvalidObject)
}

// IsInvalidTimestamp reports whether err (or any error it wraps) is an
// INVALID_TIMESTAMP error. A timestamp error nested inside an object error
// still matches.
func IsInvalidTimestamp(err error) bool {
	return hasCode(err, ErrCodeInvalidTimestamp)
}

// IsInvalidLink reports whether err (or any error it wraps) is an
// INVALID_LINK error.
func IsInvalidLink(err error) bool {
	return hasCode(err, ErrCodeInvalidLink)
}

// hasCode walks the chain of *Error values looking for code.
// errors.As alone stops at the outermost *Error, which hides nested causes.
func hasCode(err error, code ErrorCode) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Err
	}
	return false
}

func invalidObject(field, format string, args ...any) *Error {
	return &Error{Code: ErrCodeInvalidObject, Message: fmt.Sprintf(format, args...), Field: field}
}
