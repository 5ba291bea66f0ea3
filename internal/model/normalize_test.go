package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeduplicateObjects_LastWins(t *testing.T) {
	in := []Object{
		MustObject("x", []string{"t"}, "", map[string]Value{"a": Int(1)}),
		MustObject("y", []string{"t"}, "", nil),
		MustObject("x", []string{"u"}, "", map[string]Value{"a": Int(2)}),
	}

	out := DeduplicateObjects(in)
	require.Len(t, out, 2)

	assert.Equal(t, "x", out[0].ID, "survivor keeps first position")
	assert.Equal(t, Int(2), out[0].Properties["a"])
	assert.Equal(t, []string{"u"}, out[0].Types, "no merge with earlier occurrence")
	assert.Equal(t, "y", out[1].ID)
}

func TestDeduplicateObjects_Empty(t *testing.T) {
	assert.Empty(t, DeduplicateObjects(nil))
}

func TestNormalizeObjects_RawLiterals(t *testing.T) {
	raw := []Object{{
		ID:    "emp_001",
		Types: []string{"employee"},
		Properties: map[string]Value{
			"hired_at": MustTimestamp(time.Date(2025, 6, 6, 14, 3, 0, 0, time.UTC)),
			"swipes":   MustLink("swipe[.employee_id == 'emp_001']", "Swipes"),
		},
	}}

	out, err := NormalizeObjects(raw)
	require.NoError(t, err)

	assert.Equal(t, String("2025-06-06T14:03:00Z"), out[0].Properties["hired_at"])
	assert.IsType(t, Map{}, out[0].Properties["swipes"])
	assert.IsType(t, Timestamp{}, raw[0].Properties["hired_at"], "input untouched")

	again, err := NormalizeObjects(out)
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestNormalizeObjects_ReportsIndex(t *testing.T) {
	_, err := NormalizeObjects([]Object{
		MustObject("ok", []string{"t"}, "", nil),
		{ID: "", Types: []string{"t"}},
	})
	require.Error(t, err)
	assert.True(t, IsInvalidObject(err))
	assert.Contains(t, err.Error(), "object[1]")
}

func TestNormalizeObjects_RejectsInvalidLinkLiteral(t *testing.T) {
	_, err := NormalizeObjects([]Object{
		{ID: "emp_001", Types: []string{"person"}, Properties: map[string]Value{
			"swipes": Link{Query: "swipe[.employee_id == 'emp_001']"},
		}},
	})
	require.Error(t, err)
	assert.True(t, IsInvalidObject(err))
	assert.True(t, IsInvalidLink(err))
	assert.Contains(t, err.Error(), "field=swipes")
}

func TestCanonicalize(t *testing.T) {
	out, err := Canonicalize([]Object{
		{ID: "x", Types: []string{"t"}, Properties: map[string]Value{"a": Int(1)}},
		{ID: "x", Types: []string{"t"}, Properties: map[string]Value{"a": Int(2)}},
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, Int(2), out[0].Properties["a"])
}
