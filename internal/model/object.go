package model

import (
	"strings"
)

// Object is an identity-bearing domain record.
//
// Objects are created per fetch or query cycle and are treated as immutable
// afterwards: nothing in this module mutates an Object once it has been
// returned by MakeObject, NormalizeObjects or DeduplicateObjects.
type Object struct {
	// ID is unique within a snapshot. Never empty.
	ID string

	// Types lists the object's types; the first is the primary type.
	// Never empty.
	Types []string

	// Source identifies provenance. Informational only.
	Source string

	// Properties maps property keys to encoded values.
	Properties map[string]Value
}

// MakeObject builds an Object and encodes every property with EncodeValue.
//
// Fails with INVALID_OBJECT when id is empty, types is empty or contains a
// blank entry, or a property cannot be encoded (the cause is wrapped, so
// IsInvalidTimestamp still matches a bad timestamp property).
func MakeObject(id string, types []string, source string, properties map[string]Value) (Object, error) {
	if strings.TrimSpace(id) == "" {
		return Object{}, invalidObject("id", "id is required")
	}
	if len(types) == 0 {
		return Object{}, invalidObject("types", "at least one type is required (object %q)", id)
	}
	for i, t := range types {
		if strings.TrimSpace(t) == "" {
			return Object{}, invalidObject("types", "type %d is blank (object %q)", i, id)
		}
	}

	props, err := encodeProperties(properties)
	if err != nil {
		if e, ok := err.(*Error); ok {
			e.Message = "object " + id + ": " + e.Message
		}
		return Object{}, err
	}

	return Object{
		ID:         id,
		Types:      append([]string(nil), types...),
		Source:     source,
		Properties: props,
	}, nil
}

// MakeObjectFromNative is MakeObject for property bags built from plain Go
// values (see FromNative).
func MakeObjectFromNative(id string, types []string, source string, properties map[string]any) (Object, error) {
	props := make(map[string]Value, len(properties))
	for k, raw := range properties {
		v, err := FromNative(raw)
		if err != nil {
			return Object{}, &Error{Code: ErrCodeInvalidObject, Message: "object " + id + ": property cannot be converted", Field: k, Err: err}
		}
		props[k] = v
	}
	return MakeObject(id, types, source, props)
}

// MustObject is like MakeObject but panics on error.
// Use only in tests or with literal inputs known to be valid.
func MustObject(id string, types []string, source string, properties map[string]Value) Object {
	obj, err := MakeObject(id, types, source, properties)
	if err != nil {
		panic(err)
	}
	return obj
}

// PrimaryType returns the first type, or "" for an invalid object.
func (o Object) PrimaryType() string {
	if len(o.Types) == 0 {
		return ""
	}
	return o.Types[0]
}

// HasType reports whether t is among the object's types.
func (o Object) HasType(t string) bool {
	for _, ot := range o.Types {
		if ot == t {
			return true
		}
	}
	return false
}

// MarshalJSON implements json.Marshaler as
// {"id","properties","source","types"} with canonical property encoding.
func (o Object) MarshalJSON() ([]byte, error) {
	return MarshalCanonical(o)
}
