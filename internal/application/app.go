// Package application wires configuration, logging, metrics, the generator
// service and the HTTP server together. Both cmd/server and the labgen CLI
// start the server through Run.
package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/JonMunkholm/labgen/internal/config"
	"github.com/JonMunkholm/labgen/internal/core"
	"github.com/JonMunkholm/labgen/internal/metrics"
	"github.com/JonMunkholm/labgen/internal/web"
)

// Components are the long-lived pieces built from a Config.
type Components struct {
	Service  *core.Service
	Provider *core.Provider
	Limiter  *core.Limiter
	Metrics  *metrics.Metrics
}

// Build creates the service and its dependencies. The default configuration
// file is loaded once; a bad file is logged and the random fallback is used
// until it is fixed.
func Build(cfg *config.Config, logger *slog.Logger) *Components {
	var (
		m   *metrics.Metrics
		rec core.Recorder
	)
	if cfg.Metrics.Enabled {
		m = metrics.New()
		rec = m
	}

	opts := []core.ProviderOption{
		core.WithDefaultPath(cfg.Store.DefaultPath),
		core.WithProviderLogger(logger),
		core.WithMaxUpload(cfg.Store.MaxFileSize),
	}
	if rec != nil {
		opts = append(opts, core.WithRecorder(rec))
	}
	provider := core.NewProvider(opts...)
	if err := provider.LoadDefault(); err != nil {
		logger.Warn("default config not loaded", "path", cfg.Store.DefaultPath, "error", err)
	}

	limiter := core.NewLimiter(cfg.Generator.MaxConcurrent, cfg.Generator.MaxWait)
	g := cfg.Generator
	svc := core.NewService(core.ServiceConfig{
		Provider: provider,
		Store:    core.NewConfigStore(cfg.Store.Dir),
		Limiter:  limiter,
		Recorder: rec,
		Logger:   logger,
		Limits: core.Limits{
			MaxRows:     g.MaxRows,
			MaxSubjects: g.MaxSubjects,
			MaxColumns:  g.MaxColumns,
		},
		MaxCategories: g.MaxCategories,
		MaxTests:      g.MaxTests,
	})

	return &Components{Service: svc, Provider: provider, Limiter: limiter, Metrics: m}
}

// Run serves HTTP until ctx is cancelled, then drains in-flight generations
// and shuts the server down within cfg.Server.ShutdownTimeout.
func Run(ctx context.Context, cfg *config.Config) error {
	logger := slog.Default()
	c := Build(cfg, logger)

	slog.Info("configuration loaded",
		"addr", cfg.Server.Addr(),
		"config_dir", cfg.Store.Dir,
		"default_config", cfg.Store.DefaultPath,
		"max_rows", cfg.Generator.MaxRows,
		"max_concurrent", cfg.Generator.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"metrics_enabled", cfg.Metrics.Enabled,
	)

	bgCtx, cancelBg := context.WithCancel(context.Background())
	defer cancelBg()

	var watcher *core.Watcher
	if cfg.Store.Watch && cfg.Store.DefaultPath != "" {
		w, err := core.NewWatcher(c.Provider)
		if err != nil {
			slog.Warn("config watcher disabled", "error", err)
		} else {
			watcher = w
			go watcher.Run(bgCtx)
		}
	}

	server := web.NewServer(cfg, c.Service, c.Metrics)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down...")
	cancelBg()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if status := c.Limiter.Status(); status.Active > 0 {
		slog.Info("waiting for generations to complete", "active", status.Active)
		if err := c.Limiter.WaitForDrain(shutdownCtx); err != nil {
			slog.Warn("generations did not complete in time", "error", err)
		}
	}

	var errs []error
	if err := server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	if err := <-errCh; err != nil {
		errs = append(errs, err)
	}
	if watcher != nil {
		<-watcher.Done()
	}
	slog.Info("server stopped")
	return errors.Join(errs...)
}
