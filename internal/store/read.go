package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/sap/internal/lazyload"
	"github.com/roach88/sap/internal/runner"
)

// CycleEntry is a journaled cycle.
type CycleEntry struct {
	RunID string `json:"run_id"`
	runner.CycleRecord
}

// LazyLoadEntry is a journaled lazy-load request.
type LazyLoadEntry struct {
	RunID string `json:"run_id"`
	lazyload.Record
}

// RecentCycles returns up to limit cycles, newest first. A limit of zero or
// less returns every cycle.
func (j *Journal) RecentCycles(ctx context.Context, limit int) ([]CycleEntry, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, cycle, started_at, completed_at, object_count, error
		FROM cycles
		ORDER BY seq DESC
		LIMIT ?
	`, sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("recent cycles: %w", err)
	}
	defer rows.Close()

	entries := []CycleEntry{}
	for rows.Next() {
		var (
			e                  CycleEntry
			started, completed string
		)
		if err := rows.Scan(&e.RunID, &e.Cycle, &started, &completed, &e.ObjectCount, &e.Error); err != nil {
			return nil, fmt.Errorf("recent cycles: scan: %w", err)
		}
		if e.StartedAt, err = parseTime(started); err != nil {
			return nil, fmt.Errorf("recent cycles: %w", err)
		}
		if e.CompletedAt, err = parseTime(completed); err != nil {
			return nil, fmt.Errorf("recent cycles: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recent cycles: %w", err)
	}
	return entries, nil
}

// RecentLazyLoads returns up to limit requests, newest first. A non-empty
// scopeType restricts the result to that type.
func (j *Journal) RecentLazyLoads(ctx context.Context, scopeType string, limit int) ([]LazyLoadEntry, error) {
	var (
		rows *sql.Rows
		err  error
	)
	const columns = `run_id, request_id, received_at, scope_type, conditions, plan_only, object_count, outcome, plan`
	if scopeType == "" {
		rows, err = j.db.QueryContext(ctx, `SELECT `+columns+` FROM lazy_loads ORDER BY seq DESC LIMIT ?`, sqlLimit(limit))
	} else {
		rows, err = j.db.QueryContext(ctx, `SELECT `+columns+` FROM lazy_loads WHERE scope_type = ? ORDER BY seq DESC LIMIT ?`, scopeType, sqlLimit(limit))
	}
	if err != nil {
		return nil, fmt.Errorf("recent lazy loads: %w", err)
	}
	defer rows.Close()

	entries := []LazyLoadEntry{}
	for rows.Next() {
		var (
			e        LazyLoadEntry
			received string
		)
		if err := rows.Scan(&e.RunID, &e.RequestID, &received, &e.ScopeType, &e.Conditions, &e.PlanOnly, &e.ObjectCount, &e.Outcome, &e.Plan); err != nil {
			return nil, fmt.Errorf("recent lazy loads: scan: %w", err)
		}
		if e.ReceivedAt, err = parseTime(received); err != nil {
			return nil, fmt.Errorf("recent lazy loads: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recent lazy loads: %w", err)
	}
	return entries, nil
}

// sqlLimit maps "no limit" to SQLite's -1.
func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}
