package lazyload

import (
	"slices"
	"strings"
)

// Describe returns a human-readable plan for req.
//
// The plan names the target type, the conditions, the id-type set and
// whether data will be fetched:
//
//	Lazy loading swipe objects | with conditions: date == '2025-06-06' | (data fetched)
//
// Conditions and id types are sorted, so two requests that differ only in
// ordering share a plan. Describe never calls a query function.
func Describe(req Request) string {
	parts := []string{"Lazy loading " + req.Scope.Type + " objects"}

	if len(req.Conditions) > 0 {
		conds := make([]string, 0, len(req.Conditions))
		for _, c := range req.Conditions {
			conds = append(conds, c.String())
		}
		slices.Sort(conds)
		parts = append(parts, "with conditions: "+strings.Join(conds, " and "))
	}

	if len(req.IDTypes) > 0 {
		pairs := make([]string, 0, len(req.IDTypes))
		for _, p := range req.IDTypes {
			pairs = append(pairs, p.String())
		}
		slices.Sort(pairs)
		parts = append(parts, "for ids: "+strings.Join(pairs, ", "))
	}

	if req.PlanOnly {
		parts = append(parts, "(plan only - no data fetched)")
	} else {
		parts = append(parts, "(data fetched)")
	}

	return strings.Join(parts, " | ")
}
