package lazyload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func demoScopes() []Scope {
	return []Scope{
		{
			Type:            "swipe",
			Fields:          Fields("employee_id", "employee_name", "department", "date", "time", "entrance_or_exit", "timestamp"),
			FilteringFields: []string{"date"},
		},
		{
			Type:         "employee",
			Fields:       Fields("favorite_color", "favorite_number", "favorite_shape", "entrances"),
			NeedsIDTypes: true,
		},
		{Type: "simple", Fields: Fields("one", "two", "three")},
		{Type: "anything", Fields: AllFields()},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		req   Request
		check func(error) bool
	}{
		{
			name:  "missing type",
			req:   Request{},
			check: IsInvalidRequest,
		},
		{
			name:  "unsupported type",
			req:   Request{Scope: Scope{Type: "badge"}},
			check: IsUnsupportedType,
		},
		{
			name:  "missing id types",
			req:   Request{Scope: Scope{Type: "employee"}},
			check: IsMissingIDTypes,
		},
		{
			name:  "field outside filtering fields",
			req:   Request{Scope: Scope{Type: "swipe"}, Conditions: []Condition{Eq("employee_id", "e1")}},
			check: IsInvalidCondition,
		},
		{
			name:  "empty operator",
			req:   Request{Scope: Scope{Type: "swipe"}, Conditions: []Condition{{Field: "date", Value: "x"}}},
			check: IsInvalidCondition,
		},
		{
			name: "missing id types reported before bad condition",
			req: Request{
				Scope:      Scope{Type: "employee"},
				Conditions: []Condition{Eq("nope", "x")},
			},
			check: IsMissingIDTypes,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.req, demoScopes())
			require.Error(t, err)
			assert.True(t, tt.check(err), "got %v", err)
			assert.True(t, IsValidation(err))
		})
	}
}

func TestValidate_Accepts(t *testing.T) {
	ok := []Request{
		{Scope: Scope{Type: "swipe"}, Conditions: []Condition{Eq("date", "2025-06-06")}},
		{Scope: Scope{Type: "swipe"}, Conditions: []Condition{{Field: "date", Operator: ">", Value: "2025"}}},
		{Scope: Scope{Type: "swipe"}, Conditions: []Condition{Eq(IDField, "swipe_1")}},
		{Scope: Scope{Type: "employee"}, IDTypes: NewIDTypeSet(IDType{"emp_001", "employee"})},
		{Scope: Scope{Type: "anything"}, Conditions: []Condition{Eq("whatever", "1")}},
		{Scope: Scope{Type: "simple"}},
	}
	for _, req := range ok {
		assert.NoError(t, Validate(req, demoScopes()), "%+v", req)
	}
}

func TestValidate_UsesDeclaredScope(t *testing.T) {
	// The caller claims the scope needs nothing and allows everything; the
	// declaration wins.
	req := Request{Scope: Scope{Type: "employee", Fields: AllFields(), NeedsIDTypes: false}}
	assert.True(t, IsMissingIDTypes(Validate(req, demoScopes())))

	req = Request{
		Scope:      Scope{Type: "swipe", Fields: AllFields(), FilteringFields: []string{"time"}},
		Conditions: []Condition{Eq("time", "09:00")},
	}
	assert.True(t, IsInvalidCondition(Validate(req, demoScopes())))
}
