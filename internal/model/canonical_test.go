package model

import (
	"math"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEmployee(t *testing.T) Object {
	t.Helper()
	obj, err := MakeObject("emp_001", []string{"person", "employee"}, "hr_system", map[string]Value{
		"name":            String("Alice Johnson"),
		"favorite_number": Int(42),
		"hired_at":        MustTimestamp(time.Date(2025, 6, 6, 14, 3, 0, 0, time.UTC)),
		"swipes":          MustLink("swipe[.employee_id == 'emp_001']", "Swipes"),
	})
	require.NoError(t, err)
	return obj
}

func TestMarshalCanonical_Golden(t *testing.T) {
	data, err := MarshalCanonical([]Object{sampleEmployee(t)})
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "canonical_objects", data)
}

func TestMarshalCanonical_NoHTMLEscape(t *testing.T) {
	data, err := MarshalCanonical(String("<a & b>"))
	require.NoError(t, err)
	assert.Equal(t, `"<a & b>"`, string(data))
}

func TestMarshalCanonical_LineSeparators(t *testing.T) {
	data, err := MarshalCanonical(String("a\u2028b\u2029c"))
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\u2029c\"", string(data))

	data, err = MarshalCanonical(String(`a\u2028b`))
	require.NoError(t, err)
	assert.Equal(t, `"a\\u2028b"`, string(data), "escaped backslash stays literal")
}

func TestMarshalCanonical_RejectsNonFinite(t *testing.T) {
	for _, f := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := MarshalCanonical(Float(f))
		require.Error(t, err)
		assert.Contains(t, err.Error(), string(ErrCodeUnsupportedValue))
	}
}

func TestMarshalCanonical_NilObjectFields(t *testing.T) {
	data, err := MarshalCanonical(Object{ID: "x"})
	require.NoError(t, err)
	assert.Equal(t, `{"id":"x","properties":{},"source":"","types":[]}`, string(data))
}

func TestDigest(t *testing.T) {
	a := sampleEmployee(t)
	b := MustObject("emp_002", []string{"employee"}, "hr_system", nil)

	d1, err := Digest([]Object{a, b})
	require.NoError(t, err)
	d2, err := Digest([]Object{a, b})
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
	assert.Len(t, d1, 64)

	swapped, err := Digest([]Object{b, a})
	require.NoError(t, err)
	assert.NotEqual(t, d1, swapped, "digest is order sensitive")

	empty, err := Digest(nil)
	require.NoError(t, err)
	assert.NotEqual(t, d1, empty)
}
