package lazyload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"
)

// Wildcard is the wire form of a FieldSet covering every field.
const Wildcard = "*"

// FieldSet is either an explicit ordered list of field names or the
// wildcard meaning "all fields".
//
// JSON and YAML: "*" or a list of strings. A missing or null value decodes
// as the wildcard.
type FieldSet struct {
	All   bool
	Names []string
}

// AllFields returns the wildcard FieldSet.
func AllFields() FieldSet {
	return FieldSet{All: true}
}

// Fields returns an explicit FieldSet.
func Fields(names ...string) FieldSet {
	return FieldSet{Names: append([]string{}, names...)}
}

// Contains reports whether name is covered by the set.
func (f FieldSet) Contains(name string) bool {
	return f.All || slices.Contains(f.Names, name)
}

// String renders the set as "*" or a comma-separated list.
func (f FieldSet) String() string {
	if f.All {
		return Wildcard
	}
	var b bytes.Buffer
	for i, n := range f.Names {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(n)
	}
	return b.String()
}

// MarshalJSON implements json.Marshaler.
func (f FieldSet) MarshalJSON() ([]byte, error) {
	if f.All {
		return json.Marshal(Wildcard)
	}
	names := f.Names
	if names == nil {
		names = []string{}
	}
	return json.Marshal(names)
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *FieldSet) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*f = AllFields()
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		return f.setString(s)
	}
	var names []string
	if err := json.Unmarshal(trimmed, &names); err != nil {
		return fmt.Errorf("fields: expected %q or a list of names: %w", Wildcard, err)
	}
	*f = Fields(names...)
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler for provider manifests.
func (f *FieldSet) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*f = AllFields()
			return nil
		}
		return f.setString(node.Value)
	case yaml.SequenceNode:
		var names []string
		if err := node.Decode(&names); err != nil {
			return err
		}
		*f = Fields(names...)
		return nil
	default:
		return fmt.Errorf("fields: line %d: expected %q or a list of names", node.Line, Wildcard)
	}
}

func (f *FieldSet) setString(s string) error {
	if s != Wildcard {
		return fmt.Errorf("fields: string value must be %q, got %q", Wildcard, s)
	}
	*f = AllFields()
	return nil
}

// Scope is a provider-declared description of a queryable object family.
type Scope struct {
	// Type is the discriminator callers name in requests.
	Type string `json:"type" yaml:"type"`

	// Fields the scope exposes.
	Fields FieldSet `json:"fields" yaml:"fields"`

	// FilteringFields may appear in conditions. Must be a subset of Fields
	// when Fields is explicit.
	FilteringFields []string `json:"filtering_fields" yaml:"filtering_fields"`

	// NeedsIDTypes requires requests to carry a non-empty id-type set.
	NeedsIDTypes bool `json:"needs_id_types" yaml:"needs_id_types"`
}

// MarshalJSON keeps filtering_fields a list even when empty.
func (s Scope) MarshalJSON() ([]byte, error) {
	type wire Scope
	w := wire(s)
	if w.FilteringFields == nil {
		w.FilteringFields = []string{}
	}
	return json.Marshal(w)
}

// UnmarshalJSON defaults a missing fields entry to the wildcard.
func (s *Scope) UnmarshalJSON(data []byte) error {
	type wire Scope
	w := wire{Fields: AllFields()}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*s = Scope(w)
	return nil
}

// AllowsFilter reports whether a condition on field is legal for this
// scope. The id pseudo-field is always allowed.
func (s Scope) AllowsFilter(field string) bool {
	if field == IDField || s.Fields.All {
		return true
	}
	return slices.Contains(s.FilteringFields, field)
}

// ValidateScopes checks a provider's declarations: every scope has a type,
// no type is declared twice, and filtering fields are a subset of explicit
// fields.
func ValidateScopes(scopes []Scope) error {
	seen := make(map[string]bool, len(scopes))
	for i, s := range scopes {
		if s.Type == "" {
			return requestErr(ErrCodeInvalidScope, "", "scope %d has no type", i)
		}
		if seen[s.Type] {
			return requestErr(ErrCodeInvalidScope, s.Type, "scope type declared twice")
		}
		seen[s.Type] = true

		if s.Fields.All {
			continue
		}
		for _, f := range s.FilteringFields {
			if !slices.Contains(s.Fields.Names, f) {
				return requestErr(ErrCodeInvalidScope, f,
					"filtering field not among the fields of scope %q", s.Type)
			}
		}
	}
	return nil
}

// UnmarshalYAML defaults a missing fields entry to the wildcard.
func (s *Scope) UnmarshalYAML(node *yaml.Node) error {
	type wire Scope
	w := wire{Fields: AllFields()}
	if err := node.Decode(&w); err != nil {
		return err
	}
	*s = Scope(w)
	return nil
}
