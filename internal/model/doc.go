// Package model provides the canonical object and value types shared by the
// snapshot runner and the lazy-load protocol.
//
// This package contains no I/O. Every other internal package imports model;
// model imports nothing internal.
//
// Key design constraints:
//   - Property values are a sealed union (Value); there is no open-ended
//     map[string]any on an Object
//   - Timestamps are encoded as UTC RFC 3339 strings at second precision
//   - Links are encoded, never resolved
//   - All JSON tags use snake_case
package model
