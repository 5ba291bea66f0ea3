package lazyload

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes lazy-load errors. Codes are part of the wire
// contract: the HTTP layer returns them verbatim.
type ErrorCode string

const (
	// ErrCodeInvalidRequest indicates a request with no scope type or an
	// undecodable body.
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"

	// ErrCodeUnsupportedType indicates the scope type is not declared.
	ErrCodeUnsupportedType ErrorCode = "UNSUPPORTED_TYPE"

	// ErrCodeMissingIDTypes indicates a scope requiring id types received
	// none.
	ErrCodeMissingIDTypes ErrorCode = "MISSING_ID_TYPES"

	// ErrCodeInvalidCondition indicates a malformed condition or a filter on
	// a field the scope does not allow.
	ErrCodeInvalidCondition ErrorCode = "INVALID_CONDITION"

	// ErrCodeInvalidScope indicates a provider declared an inconsistent
	// scope (duplicate type, filtering field outside fields).
	ErrCodeInvalidScope ErrorCode = "INVALID_SCOPE"

	// ErrCodeUnsupported indicates the provider has no query function.
	ErrCodeUnsupported ErrorCode = "LAZY_LOAD_UNSUPPORTED"

	// ErrCodeProviderDeclined indicates the query function refused the
	// request (returned an error or panicked).
	ErrCodeProviderDeclined ErrorCode = "PROVIDER_DECLINED"

	// ErrCodeInvalidResult indicates the query function returned objects
	// that violate the object contract.
	ErrCodeInvalidResult ErrorCode = "INVALID_RESULT"
)

// RequestError is a structured lazy-load failure.
type RequestError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Field names the offending scope type or condition field, if any.
	Field string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field=%s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *RequestError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err was raised before the query function
// could run (the request itself is at fault).
func IsValidation(err error) bool {
	var re *RequestError
	if !errors.As(err, &re) {
		return false
	}
	switch re.Code {
	case ErrCodeInvalidRequest, ErrCodeUnsupportedType, ErrCodeMissingIDTypes, ErrCodeInvalidCondition:
		return true
	}
	return false
}

// IsUnsupportedType reports whether err is an UNSUPPORTED_TYPE error.
func IsUnsupportedType(err error) bool { return hasCode(err, ErrCodeUnsupportedType) }

// IsMissingIDTypes reports whether err is a MISSING_ID_TYPES error.
func IsMissingIDTypes(err error) bool { return hasCode(err, ErrCodeMissingIDTypes) }

// IsInvalidCondition reports whether err is an INVALID_CONDITION error.
func IsInvalidCondition(err error) bool { return hasCode(err, ErrCodeInvalidCondition) }

// IsInvalidRequest reports whether err is an INVALID_REQUEST error.
func IsInvalidRequest(err error) bool { return hasCode(err, ErrCodeInvalidRequest) }

// IsInvalidScope reports whether err is an INVALID_SCOPE error.
func IsInvalidScope(err error) bool { return hasCode(err, ErrCodeInvalidScope) }

// IsUnsupported reports whether err is a LAZY_LOAD_UNSUPPORTED error.
func IsUnsupported(err error) bool { return hasCode(err, ErrCodeUnsupported) }

// IsDeclined reports whether err is a PROVIDER_DECLINED error.
func IsDeclined(err error) bool { return hasCode(err, ErrCodeProviderDeclined) }

func hasCode(err error, code ErrorCode) bool {
	var re *RequestError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// Decline builds the error a QueryFunc returns to refuse a request
// deliberately. Any other error is treated the same way; Decline only keeps
// the message free of wrapping noise.
func Decline(format string, args ...any) error {
	return &RequestError{Code: ErrCodeProviderDeclined, Message: fmt.Sprintf(format, args...)}
}

func requestErr(code ErrorCode, field, format string, args ...any) *RequestError {
	return &RequestError{Code: code, Field: field, Message: fmt.Sprintf(format, args...)}
}
