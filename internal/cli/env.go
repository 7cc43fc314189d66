package cli

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/roach88/molbuild/internal/builder"
	"github.com/roach88/molbuild/internal/classify"
	"github.com/roach88/molbuild/internal/config"
	"github.com/roach88/molbuild/internal/pipeline"
	"github.com/roach88/molbuild/internal/ports"
	"github.com/roach88/molbuild/internal/rules"
	"github.com/roach88/molbuild/internal/store"
)

// loadConfig reads the config file and applies flag overrides.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	path := opts.ConfigPath
	if path == "" {
		if _, err := os.Stat(config.DefaultFile); err == nil {
			path = config.DefaultFile
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, commandError(ErrCodeConfig, "failed to stat "+config.DefaultFile, err)
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, commandError(ErrCodeConfig, "failed to load config", err)
	}

	overridden := false
	if opts.Driver != "" {
		cfg.Database.Driver = opts.Driver
		overridden = true
	}
	if opts.Database != "" {
		cfg.Database.DSN = opts.Database
		overridden = true
	}
	if opts.Workers != 0 {
		cfg.Workers = opts.Workers
		overridden = true
	}
	if opts.Rules != "" {
		cfg.Rules = opts.Rules
	}
	if overridden {
		if err := cfg.Validate(); err != nil {
			return nil, commandError(ErrCodeConfig, "invalid flags", err)
		}
	}
	return cfg, nil
}

// newLogger builds the command logger. Debug level under --verbose.
func newLogger(opts *RootOptions, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// env is the wiring shared by commands that open the store.
type env struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *store.Store
	tasks     ports.TaskStore
	molecules ports.MoleculeStore
}

// openEnv loads config, opens the store and wraps it with retries.
func openEnv(opts *RootOptions, cmd *cobra.Command) (*env, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	logger := newLogger(opts, cmd.ErrOrStderr())

	logger.Debug("opening database", "driver", cfg.Database.Driver)
	st, err := store.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, commandError(ErrCodeStoreOpen, "failed to open database", err)
	}

	retrier := store.NewRetrier(cfg.RetryPolicy(), store.WithRetryLogger(logger))
	return &env{
		cfg:       cfg,
		logger:    logger,
		store:     st,
		tasks:     store.NewRetryingTaskStore(st, retrier),
		molecules: store.NewRetryingMoleculeStore(st, retrier),
	}, nil
}

func (e *env) Close() {
	if err := e.store.Close(); err != nil {
		e.logger.Error("error closing database", "error", err)
	}
}

// runner wires the builder and pass runner from config.
func (e *env) runner(metrics *pipeline.Metrics) (*pipeline.Runner, error) {
	table, err := rules.Load(e.cfg.Rules)
	if err != nil {
		return nil, commandError(rules.ErrorCode(err), "failed to load rules", err)
	}
	b := builder.New(table, classify.JobType{}, builder.ExactStructure{},
		builder.WithEnergyPath(e.cfg.EnergyPath),
		builder.WithStructurePath(e.cfg.StructurePath),
		builder.WithLogger(e.logger),
	)
	return pipeline.New(e.tasks, e.molecules, b,
		pipeline.WithWorkers(e.cfg.Workers),
		pipeline.WithGroupTimeout(e.cfg.GroupTimeout),
		pipeline.WithMetrics(metrics),
		pipeline.WithLogger(e.logger),
	), nil
}

// serveMetrics exposes reg on addr until ctx is done. The returned
// function stops the listener.
func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics listener failed", "addr", addr, "error", err)
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics shutdown", "error", err)
		}
	}
}
