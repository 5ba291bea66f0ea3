package lazyload

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequest_UnmarshalWireForm(t *testing.T) {
	body := `{
		"scope": {"type": "swipe", "fields": "*"},
		"conditions": [["date", "==", "2025-06-06"], ["floor", "==", 3], ["badge", "==", true]],
		"plan_only": true,
		"id_types": [["emp_001", "employee"], ["emp_001", "employee"], ["emp_002", "employee"]]
	}`

	var req Request
	require.NoError(t, json.Unmarshal([]byte(body), &req))

	assert.Equal(t, "swipe", req.Scope.Type)
	assert.Equal(t, []Condition{
		Eq("date", "2025-06-06"),
		Eq("floor", "3"),
		Eq("badge", "true"),
	}, req.Conditions)
	assert.True(t, req.PlanOnly)
	assert.Equal(t, IDTypeSet{{"emp_001", "employee"}, {"emp_002", "employee"}}, req.IDTypes, "duplicates dropped")
}

func TestCondition_JSONErrors(t *testing.T) {
	var c Condition
	assert.Error(t, json.Unmarshal([]byte(`["date", "=="]`), &c))
	assert.Error(t, json.Unmarshal([]byte(`{"field": "date"}`), &c))
	assert.Error(t, json.Unmarshal([]byte(`["date", "==", {"nested": 1}]`), &c))
}

func TestCondition_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(Eq("date", "2025-06-06"))
	require.NoError(t, err)
	assert.Equal(t, `["date","==","2025-06-06"]`, string(data))

	data, err = json.Marshal(IDType{ID: "emp_001", Type: "employee"})
	require.NoError(t, err)
	assert.Equal(t, `["emp_001","employee"]`, string(data))
}

func TestParseCondition(t *testing.T) {
	tests := []struct {
		in   string
		want Condition
	}{
		{"date==2025-06-06", Eq("date", "2025-06-06")},
		{"date == '2025-06-06'", Eq("date", "2025-06-06")},
		{`name=="Alice"`, Eq("name", "Alice")},
		{"age>=30", Condition{"age", ">=", "30"}},
		{"age<30", Condition{"age", "<", "30"}},
	}
	for _, tt := range tests {
		got, err := ParseCondition(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseCondition("date=2025")
	assert.Error(t, err)
	_, err = ParseCondition("==x")
	assert.Error(t, err)
}

func TestParseIDType(t *testing.T) {
	p, err := ParseIDType("emp_001:employee")
	require.NoError(t, err)
	assert.Equal(t, IDType{ID: "emp_001", Type: "employee"}, p)

	p, err = ParseIDType("urn:x:1:doc")
	require.NoError(t, err)
	assert.Equal(t, IDType{ID: "urn:x:1", Type: "doc"}, p)

	for _, bad := range []string{"noseparator", ":type", "id:"} {
		_, err := ParseIDType(bad)
		assert.Error(t, err, bad)
	}
}

func TestIDTypeSet(t *testing.T) {
	s := NewIDTypeSet(
		IDType{"a", "employee"},
		IDType{"b", "badge"},
		IDType{"a", "employee"},
		IDType{"c", "employee"},
	)
	assert.Len(t, s, 3)
	assert.True(t, s.Contains(IDType{"b", "badge"}))
	assert.Equal(t, []string{"a", "c"}, s.IDsOfType("employee"))
	assert.Empty(t, s.IDsOfType("swipe"))
}
