package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeTimestamp_UTCRoundTrip(t *testing.T) {
	ts, err := ParseTimestamp("2025-06-06T14:03:00Z")
	require.NoError(t, err)

	enc, err := EncodeValue(ts)
	require.NoError(t, err)
	assert.Equal(t, String("2025-06-06T14:03:00Z"), enc)
}

func TestMakeTimestamp_ConvertsToUTC(t *testing.T) {
	paris := time.FixedZone("CEST", 2*60*60)
	ts, err := MakeTimestamp(time.Date(2025, 6, 6, 16, 3, 0, 0, paris))
	require.NoError(t, err)

	assert.Equal(t, "2025-06-06T14:03:00Z", ts.String())
}

func TestMakeTimestamp_TruncatesToSeconds(t *testing.T) {
	ts := MustTimestamp(time.Date(2025, 6, 6, 14, 3, 0, 999_000_000, time.UTC))
	assert.Equal(t, "2025-06-06T14:03:00Z", ts.String())
}

func TestMakeTimestamp_ZeroRejected(t *testing.T) {
	_, err := MakeTimestamp(time.Time{})
	require.Error(t, err)
	assert.True(t, IsInvalidTimestamp(err))
}

func TestParseTimestamp_NaiveRejected(t *testing.T) {
	for _, in := range []string{
		"2025-06-06T14:03:00",
		"2025-06-06 14:03:00",
		"2025-06-06",
		"",
	} {
		_, err := ParseTimestamp(in)
		assert.True(t, IsInvalidTimestamp(err), "input %q", in)
	}
}

func TestParseTimestamp_Offset(t *testing.T) {
	ts, err := ParseTimestamp("2025-06-06T09:03:00-05:00")
	require.NoError(t, err)
	assert.Equal(t, "2025-06-06T14:03:00Z", ts.String())
}

func TestTimestamp_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(MustTimestamp(time.Date(2025, 6, 6, 14, 3, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.Equal(t, `"2025-06-06T14:03:00Z"`, string(data))
}
