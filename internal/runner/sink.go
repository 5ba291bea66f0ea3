package runner

import (
	"context"
	"time"
)

// CycleRecord describes one finished cycle.
type CycleRecord struct {
	Cycle       int64
	StartedAt   time.Time
	CompletedAt time.Time
	ObjectCount int

	// Error is empty for a successful cycle.
	Error string
}

// Duration returns how long the cycle ran.
func (r CycleRecord) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}

// CycleSink receives every cycle outcome. RecordCycle is called from the
// goroutine that ran the cycle, after the snapshot (if any) is published.
// A sink error is logged and otherwise ignored.
type CycleSink interface {
	RecordCycle(ctx context.Context, rec CycleRecord) error
}

// CycleSinkFunc adapts a function to CycleSink.
type CycleSinkFunc func(ctx context.Context, rec CycleRecord) error

// RecordCycle calls f.
func (f CycleSinkFunc) RecordCycle(ctx context.Context, rec CycleRecord) error {
	return f(ctx, rec)
}
