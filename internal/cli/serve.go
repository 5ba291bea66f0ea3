package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/sap/internal/registry"
	"github.com/roach88/sap/internal/server"
	"github.com/roach88/sap/internal/store"
	"github.com/roach88/sap/internal/telemetry"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	providerSource

	Interval            time.Duration
	RunImmediately      bool
	Host                string
	Port                int
	AutoPort            bool
	Register            bool
	RequireInitialFetch bool
	InitialFetchTimeout time.Duration
	Journal             string
	ShutdownTimeout     time.Duration
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a provider over HTTP",
		Long: `Run a provider: refresh its snapshot on an interval and serve it over
HTTP together with the lazy-load endpoint.

Flags override the manifest, which overrides the environment.

Example:
  sap serve --source demo --run-immediately
  sap serve --manifest ./provider.cue --auto-port --register
  sap serve --source xml --file ./library.xml --root-id library`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts, cmd)
		},
	}

	env := rootOpts.Env
	f := cmd.Flags()
	f.StringVar(&opts.Manifest, "manifest", "", "provider manifest (.cue, .yaml or .json)")
	f.StringVar(&opts.Source, "source", "", "provider source (demo|xml|fixture)")
	f.StringVar(&opts.File, "file", "", "data file for xml and fixture sources")
	f.StringVar(&opts.RootID, "root-id", "", "id of the root object for xml sources")
	f.DurationVar(&opts.Interval, "interval", env.Interval, "time between refresh cycles")
	f.BoolVar(&opts.RunImmediately, "run-immediately", true, "run the first cycle before serving (--run-immediately=false waits one interval)")
	f.StringVar(&opts.Host, "host", env.Host, "listen host")
	f.IntVar(&opts.Port, "port", env.Port, "listen port")
	f.BoolVar(&opts.AutoPort, "auto-port", false, "try the following ports when --port is taken")
	f.BoolVar(&opts.Register, "register", false, "append localhost:<port> to the registry file")
	f.BoolVar(&opts.RequireInitialFetch, "require-initial-fetch", false, "wait for the first snapshot before binding")
	f.DurationVar(&opts.InitialFetchTimeout, "initial-fetch-timeout", server.DefaultInitialFetchTimeout, "how long --require-initial-fetch waits")
	f.StringVar(&opts.Journal, "journal", env.Journal, "SQLite journal of cycles and lazy loads")
	f.DurationVar(&opts.ShutdownTimeout, "shutdown-timeout", 10*time.Second, "bound on graceful shutdown")

	return cmd
}

func runServe(ctx context.Context, opts *ServeOptions, cmd *cobra.Command) error {
	logger, err := newLogger(opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	p, m, err := loadProvider(opts.providerSource)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load provider", err)
	}

	interval := opts.Interval
	runImmediately := opts.RunImmediately
	if m != nil {
		if !cmd.Flags().Changed("interval") && m.Interval > 0 {
			interval = m.Interval
		}
		if !cmd.Flags().Changed("run-immediately") && m.RunImmediately != nil {
			runImmediately = *m.RunImmediately
		}
	}

	shutdownTracing, err := telemetry.Setup(ctx, "sap", Version, opts.Env.OTelEndpoint)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to set up tracing", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), opts.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	cfg := server.Config{
		Provider:       p,
		Interval:       interval,
		RunImmediately: runImmediately,
		RefreshToken:   opts.Env.RefreshToken,
		Logger:         logger,
	}

	if opts.Journal != "" {
		logger.Info("opening journal", "path", opts.Journal)
		j, err := store.Open(opts.Journal)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer j.Close()
		cfg.CycleSink = j
		cfg.RequestSink = j
	}

	if opts.Register {
		path, err := opts.Env.RegistryPath()
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to locate registry", err)
		}
		cfg.Registry = registry.NewFile(path)
	}

	srv, err := server.New(cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to configure server", err)
	}

	port, err := srv.Start(ctx, server.ListenOptions{
		Host:                opts.Host,
		Port:                opts.Port,
		AutoPort:            opts.AutoPort,
		Register:            opts.Register,
		RequireInitialFetch: opts.RequireInitialFetch,
		InitialFetchTimeout: opts.InitialFetchTimeout,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return WrapExitError(ExitFailure, "failed to start server", err)
	}

	out := newFormatter(opts.RootOptions, cmd)
	info := p.Info()
	_ = out.Success(map[string]any{
		"name": info.Name,
		"addr": srv.Addr().String(),
		"port": port,
	}, fmt.Sprintf("serving %q on %s", info.Name, srv.Addr()))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		select {
		case err, ok := <-srv.Done():
			if ok && err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			return nil
		case <-gctx.Done():
			return nil
		}
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return srv.Stop(opts.ShutdownTimeout)
	})

	if err := g.Wait(); err != nil {
		return WrapExitError(ExitFailure, "server stopped with error", err)
	}
	return nil
}
