package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/sap/internal/registry"
)

// NewRegistryCommand creates the registry command group.
func NewRegistryCommand(rootOpts *RootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Manage the endpoint registry",
		Long: `The registry is a text file with one provider endpoint per line
(default ~/.sa/saps.txt, or SAP_REGISTRY_FILE).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&file, "file", "", "registry file (default from SAP_REGISTRY_FILE or ~/.sa/saps.txt)")

	open := func() (*registry.File, error) {
		path := file
		if path == "" {
			var err error
			if path, err = rootOpts.Env.RegistryPath(); err != nil {
				return nil, WrapExitError(ExitCommandError, "failed to locate registry", err)
			}
		}
		return registry.NewFile(path), nil
	}

	cmd.AddCommand(newRegistryServeCommand(rootOpts, open))
	cmd.AddCommand(newRegistryListCommand(rootOpts, open))
	cmd.AddCommand(newRegistryAddCommand(rootOpts, open))
	return cmd
}

func newRegistryServeCommand(rootOpts *RootOptions, open func() (*registry.File, error)) *cobra.Command {
	var (
		host    string
		port    int
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:           "serve",
		Short:         "Serve the registry over HTTP",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			f, err := open()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			ln, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
			if err != nil {
				return WrapExitError(ExitFailure, "failed to listen", err)
			}
			srv := &http.Server{
				Handler:           registry.NewServer(f, logger),
				ReadHeaderTimeout: 10 * time.Second,
			}
			logger.Info("registry serving", "addr", ln.Addr().String(), "file", f.Path())

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
			if err := g.Wait(); err != nil {
				return WrapExitError(ExitFailure, "registry server failed", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&host, "host", rootOpts.Env.Host, "listen host")
	cmd.Flags().IntVar(&port, "port", rootOpts.Env.RegistryPort, "listen port")
	cmd.Flags().DurationVar(&timeout, "shutdown-timeout", 5*time.Second, "bound on graceful shutdown")
	return cmd
}

func newRegistryListCommand(rootOpts *RootOptions, open func() (*registry.File, error)) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List registered endpoints",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := open()
			if err != nil {
				return err
			}
			out := newFormatter(rootOpts, cmd)
			entries, err := f.Entries()
			if err != nil {
				return out.Fail(ExitCommandError, ErrCodeRegistry, err.Error(), nil)
			}
			text := strings.Join(entries, "\n")
			if len(entries) == 0 {
				text = "no endpoints registered"
			}
			return out.Success(map[string]any{"file": f.Path(), "endpoints": entries}, text)
		},
	}
}

func newRegistryAddCommand(rootOpts *RootOptions, open func() (*registry.File, error)) *cobra.Command {
	return &cobra.Command{
		Use:           "add <endpoint>",
		Short:         "Register an endpoint",
		Example:       "  sap registry add localhost:8080",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := open()
			if err != nil {
				return err
			}
			out := newFormatter(rootOpts, cmd)
			added, err := f.Register(args[0])
			if err != nil {
				return out.Fail(ExitCommandError, ErrCodeRegistry, err.Error(), nil)
			}
			text := fmt.Sprintf("registered %s", args[0])
			if !added {
				text = fmt.Sprintf("%s already registered", args[0])
			}
			return out.Success(map[string]any{"endpoint": args[0], "added": added}, text)
		},
	}
}
