package lazyload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// OpEquals is the only operator every provider understands.
const OpEquals = "=="

// IDField is the pseudo-field naming an object's id. A condition on it is
// legal in every scope.
const IDField = "__id__"

// Condition is a (field, operator, value) filter.
//
// JSON: a three-element array, e.g. ["date", "==", "2025-06-06"]. Scalar
// values of other JSON types are accepted and kept in their textual form.
type Condition struct {
	Field    string
	Operator string
	Value    string
}

// Eq builds an equality condition.
func Eq(field, value string) Condition {
	return Condition{Field: field, Operator: OpEquals, Value: value}
}

// String renders the condition as it appears in plans: field == 'value'.
func (c Condition) String() string {
	return fmt.Sprintf("%s %s '%s'", c.Field, c.Operator, c.Value)
}

// MarshalJSON implements json.Marshaler.
func (c Condition) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]string{c.Field, c.Operator, c.Value})
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Condition) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("condition: expected [field, operator, value]: %w", err)
	}
	if len(parts) != 3 {
		return fmt.Errorf("condition: expected 3 elements, got %d", len(parts))
	}
	var field, op string
	if err := json.Unmarshal(parts[0], &field); err != nil {
		return fmt.Errorf("condition field: %w", err)
	}
	if err := json.Unmarshal(parts[1], &op); err != nil {
		return fmt.Errorf("condition operator: %w", err)
	}
	value, err := scalarText(parts[2])
	if err != nil {
		return fmt.Errorf("condition value for %q: %w", field, err)
	}
	*c = Condition{Field: field, Operator: op, Value: value}
	return nil
}

// ParseCondition parses "field==value" (or any operator among ==, !=, >=,
// <=, >, <) as typed on a command line. Surrounding quotes on the value are
// dropped.
func ParseCondition(s string) (Condition, error) {
	for _, op := range []string{"==", "!=", ">=", "<=", ">", "<"} {
		field, value, ok := strings.Cut(s, op)
		if !ok {
			continue
		}
		field = strings.TrimSpace(field)
		value = strings.Trim(strings.TrimSpace(value), `'"`)
		if field == "" {
			return Condition{}, fmt.Errorf("condition %q: missing field", s)
		}
		return Condition{Field: field, Operator: op, Value: value}, nil
	}
	return Condition{}, fmt.Errorf("condition %q: no operator", s)
}

func scalarText(raw json.RawMessage) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", err
	}
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	case json.Number:
		return val.String(), nil
	case bool:
		return strconv.FormatBool(val), nil
	default:
		return "", fmt.Errorf("expected a scalar, got %T", v)
	}
}

// IDType is an (id, type) cross-reference pair.
//
// JSON: a two-element array, e.g. ["emp_001", "employee"].
type IDType struct {
	ID   string
	Type string
}

// String renders the pair as id:type.
func (p IDType) String() string {
	return p.ID + ":" + p.Type
}

// MarshalJSON implements json.Marshaler.
func (p IDType) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{p.ID, p.Type})
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *IDType) UnmarshalJSON(data []byte) error {
	var parts []string
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("id type: expected [id, type]: %w", err)
	}
	if len(parts) != 2 {
		return fmt.Errorf("id type: expected 2 elements, got %d", len(parts))
	}
	*p = IDType{ID: parts[0], Type: parts[1]}
	return nil
}

// ParseIDType parses "id:type". The type follows the last colon so ids may
// contain colons.
func ParseIDType(s string) (IDType, error) {
	i := strings.LastIndex(s, ":")
	if i <= 0 || i == len(s)-1 {
		return IDType{}, fmt.Errorf("id type %q: expected id:type", s)
	}
	return IDType{ID: s[:i], Type: s[i+1:]}, nil
}

// IDTypeSet is a duplicate-free collection of IDType pairs in first-seen
// order.
type IDTypeSet []IDType

// NewIDTypeSet builds a set, dropping repeated pairs.
func NewIDTypeSet(pairs ...IDType) IDTypeSet {
	out := make(IDTypeSet, 0, len(pairs))
	for _, p := range pairs {
		if !out.Contains(p) {
			out = append(out, p)
		}
	}
	return out
}

// Contains reports whether p is in the set.
func (s IDTypeSet) Contains(p IDType) bool {
	return slices.Contains(s, p)
}

// IDsOfType returns the ids paired with typ, in set order.
func (s IDTypeSet) IDsOfType(typ string) []string {
	var ids []string
	for _, p := range s {
		if p.Type == typ {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// UnmarshalJSON decodes a list of pairs and drops duplicates.
func (s *IDTypeSet) UnmarshalJSON(data []byte) error {
	var pairs []IDType
	if err := json.Unmarshal(data, &pairs); err != nil {
		return err
	}
	*s = NewIDTypeSet(pairs...)
	return nil
}

// Request is one lazy-load query.
//
// Only Scope.Type is read from the caller's scope; validation and the query
// function always see the provider's declared scope for that type.
type Request struct {
	Scope      Scope       `json:"scope"`
	Conditions []Condition `json:"conditions"`
	PlanOnly   bool        `json:"plan_only"`
	IDTypes    IDTypeSet   `json:"id_types"`
}
