package lazyload

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestFieldSet_JSON(t *testing.T) {
	data, err := json.Marshal(AllFields())
	require.NoError(t, err)
	assert.Equal(t, `"*"`, string(data))

	data, err = json.Marshal(Fields("date", "time"))
	require.NoError(t, err)
	assert.Equal(t, `["date","time"]`, string(data))

	data, err = json.Marshal(FieldSet{})
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(data))

	var f FieldSet
	require.NoError(t, json.Unmarshal([]byte(`"*"`), &f))
	assert.True(t, f.All)

	require.NoError(t, json.Unmarshal([]byte(`["a","b"]`), &f))
	assert.Equal(t, Fields("a", "b"), f)

	assert.Error(t, json.Unmarshal([]byte(`"a"`), &f))
	assert.Error(t, json.Unmarshal([]byte(`42`), &f))
}

func TestScope_JSONDefaults(t *testing.T) {
	var s Scope
	require.NoError(t, json.Unmarshal([]byte(`{"type":"swipe"}`), &s))
	assert.Equal(t, "swipe", s.Type)
	assert.True(t, s.Fields.All, "missing fields means all")

	data, err := json.Marshal(Scope{Type: "simple", Fields: Fields("one")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"simple","fields":["one"],"filtering_fields":[],"needs_id_types":false}`, string(data))
}

func TestScope_YAML(t *testing.T) {
	src := `
- type: swipe
  fields: [employee_id, date]
  filtering_fields: [date]
- type: employee
  fields: "*"
  needs_id_types: true
- type: simple
`
	var scopes []Scope
	require.NoError(t, yaml.Unmarshal([]byte(src), &scopes))
	require.Len(t, scopes, 3)

	assert.Equal(t, Fields("employee_id", "date"), scopes[0].Fields)
	assert.Equal(t, []string{"date"}, scopes[0].FilteringFields)
	assert.True(t, scopes[1].Fields.All)
	assert.True(t, scopes[1].NeedsIDTypes)
	assert.True(t, scopes[2].Fields.All)

	var bad []Scope
	assert.Error(t, yaml.Unmarshal([]byte("- type: x\n  fields: some\n"), &bad))
}

func TestValidateScopes(t *testing.T) {
	require.NoError(t, ValidateScopes(demoScopes()))

	tests := []struct {
		name   string
		scopes []Scope
	}{
		{"missing type", []Scope{{Fields: AllFields()}}},
		{"duplicate", []Scope{{Type: "a", Fields: AllFields()}, {Type: "a", Fields: AllFields()}}},
		{"filter outside fields", []Scope{{Type: "a", Fields: Fields("x"), FilteringFields: []string{"y"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, IsInvalidScope(ValidateScopes(tt.scopes)))
		})
	}

	wild := []Scope{{Type: "a", Fields: AllFields(), FilteringFields: []string{"anything"}}}
	assert.NoError(t, ValidateScopes(wild))
}

func TestFieldSet_String(t *testing.T) {
	assert.Equal(t, "*", AllFields().String())
	assert.Equal(t, "a, b", Fields("a", "b").String())
}
