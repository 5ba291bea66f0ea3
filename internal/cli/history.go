package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/sap/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Journal string
	Limit   int
	Lazy    bool
	Type    string
}

type cycleView struct {
	RunID       string    `json:"run_id"`
	Cycle       int64     `json:"cycle"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	DurationMS  int64     `json:"duration_ms"`
	ObjectCount int       `json:"object_count"`
	Error       string    `json:"error,omitempty"`
}

type lazyLoadView struct {
	RunID       string    `json:"run_id"`
	RequestID   string    `json:"request_id"`
	ReceivedAt  time.Time `json:"received_at"`
	Type        string    `json:"type"`
	Conditions  string    `json:"conditions"`
	PlanOnly    bool      `json:"plan_only"`
	ObjectCount int       `json:"object_count"`
	Outcome     string    `json:"outcome"`
	Plan        string    `json:"plan"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show journaled cycles or lazy loads",
		Long: `Show the most recent refresh cycles recorded in a journal written by
'sap serve --journal'. With --lazy, show lazy-load requests instead.

Example:
  sap history --journal ./sap.db --limit 5
  sap history --journal ./sap.db --lazy --type swipe`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", rootOpts.Env.Journal, "path to the SQLite journal")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "entries to show (0 for all)")
	cmd.Flags().BoolVar(&opts.Lazy, "lazy", false, "show lazy-load requests instead of cycles")
	cmd.Flags().StringVar(&opts.Type, "type", "", "with --lazy, only requests for this scope type")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd)
	if opts.Journal == "" {
		return out.Fail(ExitCommandError, ErrCodeJournal, "no journal: pass --journal or set SAP_JOURNAL", nil)
	}

	j, err := store.Open(opts.Journal)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeJournal, err.Error(), nil)
	}
	defer j.Close()

	if opts.Lazy {
		entries, err := j.RecentLazyLoads(cmd.Context(), opts.Type, opts.Limit)
		if err != nil {
			return out.Fail(ExitFailure, ErrCodeJournal, err.Error(), nil)
		}
		return out.Success(lazyLoadViews(entries), formatLazyLoads(entries))
	}

	entries, err := j.RecentCycles(cmd.Context(), opts.Limit)
	if err != nil {
		return out.Fail(ExitFailure, ErrCodeJournal, err.Error(), nil)
	}
	return out.Success(cycleViews(entries), formatCycles(entries))
}

func cycleViews(entries []store.CycleEntry) []cycleView {
	views := make([]cycleView, 0, len(entries))
	for _, e := range entries {
		views = append(views, cycleView{
			RunID:       e.RunID,
			Cycle:       e.Cycle,
			StartedAt:   e.StartedAt,
			CompletedAt: e.CompletedAt,
			DurationMS:  e.Duration().Milliseconds(),
			ObjectCount: e.ObjectCount,
			Error:       e.Error,
		})
	}
	return views
}

func lazyLoadViews(entries []store.LazyLoadEntry) []lazyLoadView {
	views := make([]lazyLoadView, 0, len(entries))
	for _, e := range entries {
		views = append(views, lazyLoadView{
			RunID:       e.RunID,
			RequestID:   e.RequestID,
			ReceivedAt:  e.ReceivedAt,
			Type:        e.ScopeType,
			Conditions:  e.Conditions,
			PlanOnly:    e.PlanOnly,
			ObjectCount: e.ObjectCount,
			Outcome:     e.Outcome,
			Plan:        e.Plan,
		})
	}
	return views
}

func formatCycles(entries []store.CycleEntry) string {
	if len(entries) == 0 {
		return "no cycles recorded"
	}
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		status := fmt.Sprintf("%d objects", e.ObjectCount)
		if e.Error != "" {
			status = "failed: " + e.Error
		}
		fmt.Fprintf(&b, "%s  cycle %d  %s  %s",
			e.StartedAt.Format(time.RFC3339), e.Cycle, e.Duration().Round(time.Millisecond), status)
	}
	return b.String()
}

func formatLazyLoads(entries []store.LazyLoadEntry) string {
	if len(entries) == 0 {
		return "no lazy loads recorded"
	}
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s  %s  %s  %d objects  %s",
			e.ReceivedAt.Format(time.RFC3339), e.Outcome, e.ScopeType, e.ObjectCount, e.Plan)
	}
	return b.String()
}
