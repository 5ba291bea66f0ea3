package model

import "fmt"

// NormalizeObjects re-applies EncodeValue to every property of every object.
//
// Producers that bypass MakeObject (e.g. build an Object literal holding a
// Timestamp or a Link) are brought to canonical form here. Normalizing an
// already-normalized object yields an equal object.
//
// The input slice is not modified. Objects failing the MakeObject contract
// (empty id or types) are rejected with INVALID_OBJECT.
func NormalizeObjects(objects []Object) ([]Object, error) {
	out := make([]Object, 0, len(objects))
	for i, obj := range objects {
		norm, err := MakeObject(obj.ID, obj.Types, obj.Source, obj.Properties)
		if err != nil {
			return nil, fmt.Errorf("object[%d]: %w", i, err)
		}
		out = append(out, norm)
	}
	return out, nil
}

// DeduplicateObjects collapses objects sharing an ID.
//
// Policy is last-occurrence-wins: a later object replaces the earlier one's
// types, source and properties entirely (no property merge). The surviving
// entry keeps the position of the first occurrence, so the output order is
// the order in which IDs were first seen.
func DeduplicateObjects(objects []Object) []Object {
	index := make(map[string]int, len(objects))
	out := make([]Object, 0, len(objects))
	for _, obj := range objects {
		if pos, seen := index[obj.ID]; seen {
			out[pos] = obj
			continue
		}
		index[obj.ID] = len(out)
		out = append(out, obj)
	}
	return out
}

// Canonicalize runs NormalizeObjects then DeduplicateObjects, the pipeline
// every fetched or queried batch goes through before it is published.
func Canonicalize(objects []Object) ([]Object, error) {
	normalized, err := NormalizeObjects(objects)
	if err != nil {
		return nil, err
	}
	return DeduplicateObjects(normalized), nil
}
