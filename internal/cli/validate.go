package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/sap/internal/provider"
)

// manifestSummary is the JSON payload of a valid manifest.
type manifestSummary struct {
	Name      string   `json:"name"`
	Source    string   `json:"source"`
	File      string   `json:"file,omitempty"`
	Interval  string   `json:"interval,omitempty"`
	LazyTypes []string `json:"lazy_types"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <manifest>",
		Short: "Validate a provider manifest",
		Long: `Validate a provider manifest (.cue, .yaml or .json) without running it.

Checks required fields, the source and its data file, the interval, and
the lazy-loading scopes.

Example:
  sap validate ./provider.cue
  sap validate --format json ./provider.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	out := newFormatter(opts, cmd)
	out.VerboseLog("validating %s", path)

	m, err := provider.LoadManifest(path)
	if err != nil {
		var me *provider.ManifestError
		if errors.As(err, &me) {
			return out.Fail(ExitFailure, ErrCodeManifest, me.Error(), map[string]any{
				"field": me.Field,
				"line":  me.Line,
			})
		}
		return out.Fail(ExitCommandError, ErrCodeManifest, err.Error(), nil)
	}

	summary := manifestSummary{
		Name:      m.Name,
		Source:    m.SourceKind(),
		File:      m.ResolveFile(),
		LazyTypes: make([]string, 0, len(m.Scopes)),
	}
	if m.Interval > 0 {
		summary.Interval = m.Interval.String()
	}
	for _, s := range m.Scopes {
		summary.LazyTypes = append(summary.LazyTypes, s.Type)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "✓ %s is valid\n", path)
	fmt.Fprintf(&b, "  name:   %s\n", summary.Name)
	fmt.Fprintf(&b, "  source: %s", summary.Source)
	if summary.File != "" {
		fmt.Fprintf(&b, " (%s)", summary.File)
	}
	if len(summary.LazyTypes) > 0 {
		fmt.Fprintf(&b, "\n  lazy:   %s", strings.Join(summary.LazyTypes, ", "))
	}
	return out.Success(summary, b.String())
}
