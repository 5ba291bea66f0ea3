package runner

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode categorizes runner errors.
type ErrorCode string

const (
	// ErrCodeAlreadyRunning indicates Start was called on a running runner.
	ErrCodeAlreadyRunning ErrorCode = "ALREADY_RUNNING"

	// ErrCodeBusy indicates a RunNow trigger was dropped because a cycle was
	// already in flight.
	ErrCodeBusy ErrorCode = "BUSY"

	// ErrCodeStopped indicates an operation on a stopped runner.
	ErrCodeStopped ErrorCode = "STOPPED"

	// ErrCodeStopTimeout indicates Stop gave up waiting for the loop or an
	// in-flight cycle.
	ErrCodeStopTimeout ErrorCode = "STOP_TIMEOUT"

	// ErrCodeFetchFailed indicates a cycle's fetch (or the canonicalization
	// of its result) failed.
	ErrCodeFetchFailed ErrorCode = "FETCH_FAILED"
)

// Error is a lifecycle error returned by Runner methods.
type Error struct {
	Code    ErrorCode
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

var (
	// ErrAlreadyRunning is returned by Start on a running runner.
	ErrAlreadyRunning = &Error{Code: ErrCodeAlreadyRunning, Message: "runner already started"}

	// ErrBusy is returned by RunNow when a cycle is already in flight.
	ErrBusy = &Error{Code: ErrCodeBusy, Message: "cycle already in flight; trigger dropped"}

	// ErrStopped is returned by Start and RunNow after Stop.
	ErrStopped = &Error{Code: ErrCodeStopped, Message: "runner stopped"}
)

func stopTimeoutError(timeout time.Duration) *Error {
	return &Error{Code: ErrCodeStopTimeout, Message: "background activity still running after " + timeout.String()}
}

// FetchError records a failed cycle. The previous snapshot stays published.
type FetchError struct {
	// Cycle is the number of the failed cycle.
	Cycle int64

	// Panicked is true when the FetchFunc panicked rather than returning
	// an error.
	Panicked bool

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.Panicked {
		return fmt.Sprintf("%s: cycle %d: fetch panicked: %v", ErrCodeFetchFailed, e.Cycle, e.Err)
	}
	return fmt.Sprintf("%s: cycle %d: %v", ErrCodeFetchFailed, e.Cycle, e.Err)
}

// Unwrap returns the underlying cause.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsBusy reports whether err is a dropped RunNow trigger.
func IsBusy(err error) bool {
	return hasCode(err, ErrCodeBusy)
}

// IsStopped reports whether err was caused by a stopped runner.
func IsStopped(err error) bool {
	return hasCode(err, ErrCodeStopped)
}

// IsAlreadyRunning reports whether err is a repeated Start.
func IsAlreadyRunning(err error) bool {
	return hasCode(err, ErrCodeAlreadyRunning)
}

// IsStopTimeout reports whether Stop timed out.
func IsStopTimeout(err error) bool {
	return hasCode(err, ErrCodeStopTimeout)
}

// IsFetchError reports whether err is (or wraps) a FetchError.
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

func hasCode(err error, code ErrorCode) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}
