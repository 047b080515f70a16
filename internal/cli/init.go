// Package cli holds the process bootstrap shared by cmd/tracker,
// cmd/tracker-worker, cmd/signin and cmd/trackerctl.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"projecttracker/internal/amqp"
	"projecttracker/internal/auth"
	"projecttracker/internal/backend"
	"projecttracker/internal/cache"
	"projecttracker/internal/cloud"
	"projecttracker/internal/config"
	"projecttracker/internal/core"
	"projecttracker/internal/export"
	applog "projecttracker/internal/log"
	"projecttracker/internal/services"
	"projecttracker/internal/worker"
)

// SetupLogger installs a text logger at level as the slog default.
func SetupLogger(level slog.Level) *applog.Logger {
	logger := applog.New(applog.Config{Level: level, Component: applog.ComponentApp})
	slog.SetDefault(logger.Logger)
	return logger
}

// LoadEnvFile loads .env for local development. A missing file is fine.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig exits the process when the configuration is invalid.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// Bootstrap runs the three steps above and re-levels the logger from config.
func Bootstrap() (*config.Config, *applog.Logger) {
	LoadEnvFile()
	logger := SetupLogger(slog.LevelInfo)
	cfg := LoadAndValidateConfig(logger)
	return cfg, SetupLogger(cfg.SlogLevel())
}

// App is the wired store and services for one process.
type App struct {
	Config    *config.Config
	Location  *time.Location
	Backend   *backend.BackendResult
	Session   *auth.Session
	Formatter *export.Formatter
	Cache     *cache.Manager
	Projects  *services.ProjectService
	Stats     *services.StatsService
	Exports   *services.ExportService
	Logger    *applog.Logger
}

// NewApp opens the configured backend and builds the services. dispatcher
// may be nil for processes that never queue cloud jobs.
func NewApp(ctx context.Context, cfg *config.Config, logger *applog.Logger, dispatcher services.Dispatcher) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	formatter, err := export.NewFormatter(cfg.Locale, cfg.Currency, loc)
	if err != nil {
		return nil, err
	}
	session, err := NewSession(cfg)
	if err != nil {
		return nil, err
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	be, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.ExportDir, 0o755); err != nil {
		_ = be.Cleanup()
		return nil, fmt.Errorf("create export directory: %w", err)
	}

	memo := cache.NewLRUCache[core.Dashboard]("dashboard", cfg.StatsCacheSize, cfg.StatsCacheTTL)
	manager := cache.NewManager(logger)
	manager.Register(memo)
	manager.StartCleanup(cfg.StatsCacheTTL)

	app := &App{
		Config:    cfg,
		Location:  loc,
		Backend:   be,
		Session:   session,
		Formatter: formatter,
		Cache:     manager,
		Logger:    logger,
	}
	app.Projects = services.NewProjectService(be.Store, loc, logger)
	app.Stats = services.NewStatsService(be.Store, loc, memo, logger)
	app.Exports = services.NewExportService(be.Store, formatter, dispatcher, session, services.ExportOptions{
		Target:          cfg.CloudExportTarget,
		BackupSupported: be.Backup != nil,
	}, logger)
	return app, nil
}

// NewSession reads the OAuth client when one is configured. Without a
// client the session is never signed in.
func NewSession(cfg *config.Config) (*auth.Session, error) {
	tokens := auth.NewTokenStore(cfg.GoogleOAuthTokenFile)
	if !cfg.HasGoogleClient() {
		return auth.NewSession(nil, tokens), nil
	}
	oc, err := auth.LoadClientConfig(cfg.GoogleOAuthClientFile, cfg.GoogleOAuthClientJSON)
	if err != nil {
		return nil, fmt.Errorf("load oauth client: %w", err)
	}
	return auth.NewSession(oc, tokens), nil
}

// Close stops the cache cleanup and closes the store.
func (a *App) Close() error {
	a.Cache.Stop()
	if a.Backend.Cleanup != nil {
		return a.Backend.Cleanup()
	}
	return nil
}

// Connector opens Drive and Sheets with the stored token for each job.
func (a *App) Connector() worker.Connector {
	return func(ctx context.Context) (worker.Cloud, error) {
		c, err := cloud.Connect(ctx, a.Session, a.Config.DriveFolderName)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

func (a *App) NewJobWorker() *worker.JobWorker {
	return worker.NewJobWorker(a.Exports, a.Backend.Backup, a.Connector(), a.Config.ExportDir, a.Logger)
}

// InlineDispatcher runs jobs in a goroutine of this process, for setups
// without a broker. The job outlives the request that queued it.
func InlineDispatcher(run func(ctx context.Context, msg *amqp.JobMessage) error) services.Dispatcher {
	return services.DispatcherFunc(func(ctx context.Context, msg *amqp.JobMessage) error {
		go func() {
			_ = run(context.WithoutCancel(ctx), msg)
		}()
		return nil
	})
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. The
// returned channel closes once cleanup has run or timeout has passed.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup(shutdownCtx)
			}
			close(finished)
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup is done.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
