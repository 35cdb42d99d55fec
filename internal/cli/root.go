package cli

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/localdoc/internal/acl"
	"github.com/roach88/localdoc/internal/config"
	"github.com/roach88/localdoc/internal/connmgr"
	"github.com/roach88/localdoc/internal/metrics"
	"github.com/roach88/localdoc/internal/pipeline"
	"github.com/roach88/localdoc/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	DBPath     string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the localdoc CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "localdoc",
		Short:         "localdoc - offline document store",
		Long:          "Inspect and edit a local, offline-first JSON document store and run queries against it.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (.yaml, .yml or .cue)")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "database path, overrides config and "+config.EnvDB)

	cmd.AddCommand(NewBucketCommand(opts))
	cmd.AddCommand(NewPutCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewUpdateCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewDirtyCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewMarkSyncedCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// env is everything a store command needs, opened from config and flags.
type env struct {
	cfg     config.Config
	logger  *slog.Logger
	mgr     *connmgr.Manager
	session *connmgr.Conn
	store   *store.Store
	runner  *pipeline.Runner
	acl     *acl.Engine
	metrics *metrics.Metrics
}

func openEnv(ctx context.Context, opts *RootOptions, cmd *cobra.Command) (*env, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load config", err)
	}
	if opts.DBPath != "" {
		cfg.Store.Path = opts.DBPath
		cfg.Store.InMemory = opts.DBPath == connmgr.MemoryPath
	}

	logger, err := cfg.NewLogger(cmd.ErrOrStderr(), opts.Verbose)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "configure logging", err)
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	mgr, err := connmgr.Open(ctx, cfg.ConnOptions(logger))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open store", err)
	}
	session, err := mgr.NewSession(ctx)
	if err != nil {
		mgr.Close()
		return nil, WrapExitError(ExitCommandError, "open session", err)
	}

	engine, err := acl.NewEngine(acl.WithLogger(logger))
	if err != nil {
		mgr.Close()
		return nil, WrapExitError(ExitCommandError, "create acl engine", err)
	}

	st := store.New(session, store.WithLogger(logger), store.WithMetrics(m))
	return &env{
		cfg:     cfg,
		logger:  logger,
		mgr:     mgr,
		session: session,
		store:   st,
		runner:  pipeline.New(st, pipeline.WithLogger(logger), pipeline.WithMetrics(m)),
		acl:     engine,
		metrics: m,
	}, nil
}

func (e *env) Close() error {
	if err := e.mgr.Release(e.session.ID()); err != nil {
		e.logger.Warn("release session", "session", e.session.ID(), "error", err)
	}
	return e.mgr.Close()
}

// withEnv opens the environment, runs fn, and closes it.
func withEnv(opts *RootOptions, cmd *cobra.Command, fn func(ctx context.Context, e *env) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	e, err := openEnv(ctx, opts, cmd)
	if err != nil {
		return err
	}
	defer e.Close()
	return fn(ctx, e)
}
