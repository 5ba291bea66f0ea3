package model

import (
	"fmt"
	"time"
)

// TimestampLayout is the canonical timestamp encoding: UTC, second precision.
const TimestampLayout = "2006-01-02T15:04:05Z"

// Timestamp is a specific instant. Construct with MakeTimestamp or
// ParseTimestamp; the zero Timestamp is not a valid value.
type Timestamp struct {
	t time.Time
}

func (Timestamp) sapValue() {}

// MakeTimestamp wraps a point in time.
//
// A time.Time always carries a location, so the only instant Go cannot place
// on the timeline is the zero value; it is rejected with INVALID_TIMESTAMP.
// Textual input without a zone designator is rejected by ParseTimestamp.
func MakeTimestamp(t time.Time) (Timestamp, error) {
	if t.IsZero() {
		return Timestamp{}, &Error{Code: ErrCodeInvalidTimestamp, Message: "instant has no defined timezone"}
	}
	return Timestamp{t: t.UTC().Truncate(time.Second)}, nil
}

// MustTimestamp is like MakeTimestamp but panics on error.
func MustTimestamp(t time.Time) Timestamp {
	ts, err := MakeTimestamp(t)
	if err != nil {
		panic(err)
	}
	return ts
}

// ParseTimestamp parses an RFC 3339 instant. The zone designator ("Z" or an
// offset) is required: "2025-06-06T14:03:00" is timezone-naive and fails
// with INVALID_TIMESTAMP.
func ParseTimestamp(s string) (Timestamp, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return Timestamp{}, &Error{
			Code:    ErrCodeInvalidTimestamp,
			Message: fmt.Sprintf("%q is not a timezone-aware RFC 3339 instant", s),
			Err:     err,
		}
	}
	return MakeTimestamp(t)
}

// Time returns the instant in UTC.
func (ts Timestamp) Time() time.Time {
	return ts.t
}

// IsZero reports whether ts was never set.
func (ts Timestamp) IsZero() bool {
	return ts.t.IsZero()
}

// String returns the canonical encoding, e.g. "2025-06-06T14:03:00Z".
func (ts Timestamp) String() string {
	return ts.t.UTC().Format(TimestampLayout)
}

// MarshalJSON implements json.Marshaler for Timestamp.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return MarshalCanonical(ts)
}
