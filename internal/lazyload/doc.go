// Package lazyload implements the lazy-load query protocol.
//
// A provider declares the object families it can serve on demand as a list
// of Scopes. A caller sends a Request naming one scope type, a set of
// conditions, an optional cross-reference set of (id, type) pairs, and a
// plan-only flag. The Protocol validates the request against the declared
// scopes, describes what it would do, and, unless plan-only, delegates to
// the provider's QueryFunc. Results pass through the same canonicalization
// as fetched snapshots (model.Canonicalize).
//
// VALIDATION ORDER:
//
//  1. INVALID_REQUEST: no scope type
//  2. UNSUPPORTED_TYPE: type not declared
//  3. MISSING_ID_TYPES: scope needs id types, none supplied
//  4. INVALID_CONDITION: malformed condition, or a field outside the
//     scope's filtering fields when the scope lists its fields explicitly
//
// Validation failures are returned as *RequestError before the QueryFunc
// runs. Failures inside the QueryFunc (returned errors and panics) are
// converted into a PROVIDER_DECLINED result and never propagate as faults.
//
// Only "==" is universally understood. Other operators pass validation and
// are left for the provider to accept or decline.
package lazyload
