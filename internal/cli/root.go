package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/sap/internal/config"
)

// Version is the sap release, overridden at build time with -ldflags.
var Version = "0.1.0"

// RootOptions holds global flags and the environment configuration shared by
// all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// Env is loaded once when the root command is built. Flags default
	// from it.
	Env config.Env

	envErr error
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the sap CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}
	opts.Env, opts.envErr = config.Load()

	cmd := &cobra.Command{
		Use:   "sap",
		Short: "SAP - snapshot and lazy-load provider",
		Long: `Run providers that publish a periodically refreshed snapshot of domain
objects and answer narrow lazy-load queries for object families they do not
materialize.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.envErr != nil {
				return WrapExitError(ExitCommandError, "invalid environment", opts.envErr)
			}
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewRegistryCommand(opts))
	cmd.AddCommand(NewPlanCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewVersionCommand(opts))

	return cmd
}

// newLogger builds the process logger: a text handler on w at debug level
// with --verbose, otherwise at SAP_LOG_LEVEL.
func newLogger(opts *RootOptions, w io.Writer) (*slog.Logger, error) {
	level := slog.LevelDebug
	if !opts.Verbose {
		var err error
		if level, err = opts.Env.Level(); err != nil {
			return nil, WrapExitError(ExitCommandError, "invalid SAP_LOG_LEVEL", err)
		}
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler), nil
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}
