package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sap/internal/lazyload"
	"github.com/roach88/sap/internal/runner"
	"github.com/roach88/sap/internal/store"
)

func seedJournal(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := store.Open(path, store.WithRunID("run-1"))
	require.NoError(t, err)
	defer j.Close()

	ctx := context.Background()
	base := time.Date(2025, 6, 6, 9, 0, 0, 0, time.UTC)
	require.NoError(t, j.RecordCycle(ctx, runner.CycleRecord{
		Cycle: 0, StartedAt: base, CompletedAt: base.Add(20 * time.Millisecond), ObjectCount: 3,
	}))
	require.NoError(t, j.RecordCycle(ctx, runner.CycleRecord{
		Cycle: 1, StartedAt: base.Add(time.Minute), CompletedAt: base.Add(time.Minute), Error: "FETCH_FAILED: cycle 1: upstream down",
	}))
	require.NoError(t, j.RecordLazyLoad(ctx, lazyload.Record{
		RequestID: "req-1", ReceivedAt: base, ScopeType: "swipe", Conditions: "date == '2025-06-06'",
		ObjectCount: 20, Outcome: lazyload.OutcomeServed, Plan: "Lazy loading swipe objects",
	}))
	require.NoError(t, j.RecordLazyLoad(ctx, lazyload.Record{
		RequestID: "req-2", ReceivedAt: base, ScopeType: "employee", Outcome: lazyload.OutcomePlanOnly, PlanOnly: true,
	}))
	return path
}

func TestHistoryCyclesText(t *testing.T) {
	path := seedJournal(t)

	buf := &bytes.Buffer{}
	cmd := NewHistoryCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--journal", path})
	require.NoError(t, cmd.Execute())

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Contains(t, string(lines[0]), "cycle 1")
	assert.Contains(t, string(lines[0]), "failed: FETCH_FAILED")
	assert.Contains(t, string(lines[1]), "cycle 0")
	assert.Contains(t, string(lines[1]), "3 objects")
}

func TestHistoryCyclesJSONLimit(t *testing.T) {
	path := seedJournal(t)

	buf := &bytes.Buffer{}
	cmd := NewHistoryCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--journal", path, "--limit", "1"})
	require.NoError(t, cmd.Execute())

	var resp struct {
		Status string      `json:"status"`
		Data   []cycleView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "run-1", resp.Data[0].RunID)
	assert.Equal(t, int64(1), resp.Data[0].Cycle)
}

func TestHistoryLazyLoadsByType(t *testing.T) {
	path := seedJournal(t)

	buf := &bytes.Buffer{}
	cmd := NewHistoryCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--journal", path, "--lazy", "--type", "swipe"})
	require.NoError(t, cmd.Execute())

	var resp struct {
		Data []lazyLoadView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "req-1", resp.Data[0].RequestID)
	assert.Equal(t, lazyload.OutcomeServed, resp.Data[0].Outcome)
	assert.Equal(t, 20, resp.Data[0].ObjectCount)
}

func TestHistoryEmptyJournal(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewHistoryCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--journal", filepath.Join(t.TempDir(), "new.db")})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, "no cycles recorded\n", buf.String())
}

func TestHistoryRequiresJournal(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewHistoryCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "SAP_JOURNAL")
}
