package lazyload

import (
	"context"
	"strings"
	"time"
)

// Outcome values recorded for requests that did not fail.
const (
	OutcomeServed   = "served"
	OutcomePlanOnly = "plan_only"
)

// Record summarizes one handled request for auditing.
type Record struct {
	RequestID   string
	ReceivedAt  time.Time
	ScopeType   string
	Conditions  string
	PlanOnly    bool
	ObjectCount int

	// Outcome is OutcomeServed, OutcomePlanOnly, or the ErrorCode of the
	// failure.
	Outcome string
	Plan    string
}

// RequestSink receives a Record for every request Execute handles. Sink
// errors are logged and otherwise ignored.
type RequestSink interface {
	RecordLazyLoad(ctx context.Context, rec Record) error
}

func conditionsText(conds []Condition) string {
	parts := make([]string, 0, len(conds))
	for _, c := range conds {
		parts = append(parts, c.String())
	}
	return strings.Join(parts, " and ")
}
