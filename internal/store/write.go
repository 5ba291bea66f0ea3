package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/sap/internal/lazyload"
	"github.com/roach88/sap/internal/runner"
)

const timeFormat = time.RFC3339Nano

// RecordCycle implements runner.CycleSink.
// A cycle already recorded for this run is silently ignored.
func (j *Journal) RecordCycle(ctx context.Context, rec runner.CycleRecord) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO cycles
		(run_id, cycle, started_at, completed_at, object_count, error)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, cycle) DO NOTHING
	`,
		j.runID,
		rec.Cycle,
		rec.StartedAt.UTC().Format(timeFormat),
		rec.CompletedAt.UTC().Format(timeFormat),
		rec.ObjectCount,
		rec.Error,
	)
	if err != nil {
		return fmt.Errorf("record cycle: %w", err)
	}
	return nil
}

// RecordLazyLoad implements lazyload.RequestSink.
// A request id already recorded is silently ignored.
func (j *Journal) RecordLazyLoad(ctx context.Context, rec lazyload.Record) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO lazy_loads
		(request_id, run_id, received_at, scope_type, conditions, plan_only, object_count, outcome, plan)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(request_id) DO NOTHING
	`,
		rec.RequestID,
		j.runID,
		rec.ReceivedAt.UTC().Format(timeFormat),
		rec.ScopeType,
		rec.Conditions,
		rec.PlanOnly,
		rec.ObjectCount,
		rec.Outcome,
		rec.Plan,
	)
	if err != nil {
		return fmt.Errorf("record lazy load: %w", err)
	}
	return nil
}
