package lazyload

// Validate checks req against the provider's declared scopes.
//
// Checks run in a fixed order and stop at the first failure: missing type
// (INVALID_REQUEST), undeclared type (UNSUPPORTED_TYPE), empty id types for
// a scope that needs them (MISSING_ID_TYPES), then each condition in order
// (INVALID_CONDITION). The declared scope's rules apply, never the caller's
// copy.
//
// Validate is a pure function with no side effects.
func Validate(req Request, declared []Scope) error {
	_, err := resolve(req, declared)
	return err
}

// resolve validates req and returns the declared scope it targets.
func resolve(req Request, declared []Scope) (Scope, error) {
	if req.Scope.Type == "" {
		return Scope{}, requestErr(ErrCodeInvalidRequest, "", "invalid scope: missing type")
	}

	scope, ok := findScope(declared, req.Scope.Type)
	if !ok {
		return Scope{}, requestErr(ErrCodeUnsupportedType, req.Scope.Type,
			"type %q not supported for lazy loading", req.Scope.Type)
	}

	if scope.NeedsIDTypes && len(req.IDTypes) == 0 {
		return Scope{}, requestErr(ErrCodeMissingIDTypes, scope.Type,
			"type %q requires a non-empty id_types set", scope.Type)
	}

	for i, c := range req.Conditions {
		if c.Field == "" || c.Operator == "" {
			return Scope{}, requestErr(ErrCodeInvalidCondition, c.Field,
				"condition %d: field and operator are required", i)
		}
		if !scope.AllowsFilter(c.Field) {
			return Scope{}, requestErr(ErrCodeInvalidCondition, c.Field,
				"field %q is not a filtering field of %q", c.Field, scope.Type)
		}
	}

	return scope, nil
}

func findScope(declared []Scope, typ string) (Scope, bool) {
	for _, s := range declared {
		if s.Type == typ {
			return s, true
		}
	}
	return Scope{}, false
}
