package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	_ "github.com/lib/pq"

	"EngagementSync/internal/config"
	"EngagementSync/internal/domain"
	"EngagementSync/internal/extract"
	"EngagementSync/internal/infrastructure/metrics"
	"EngagementSync/internal/infrastructure/parser"
	"EngagementSync/internal/infrastructure/scheduler"
	"EngagementSync/internal/infrastructure/storage"
	"EngagementSync/internal/infrastructure/telegram"
	"EngagementSync/internal/logging"
	"EngagementSync/internal/ports"
	"EngagementSync/internal/scanner"
	"EngagementSync/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

var _ ports.CycleObserver = (*Application)(nil)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	pipeline  *usecase.Pipeline
	collector *metrics.CycleCollector
	db        *sql.DB
	logger    *slog.Logger
}

// New builds the application graph. A configured database is opened and its schema ensured.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	registry := NewRegistry(cfg)
	source := parser.NewStrategySource(registry, cfg.Sources, baseLogger.With("component", "source"))

	plans, err := Plans(cfg)
	if err != nil {
		return nil, err
	}

	paths := make(map[domain.SourceKind]string, len(cfg.Sources))
	kinds := make([]domain.SourceKind, 0, len(cfg.Sources))
	for _, src := range cfg.Sources {
		paths[src.Kind] = src.SnapshotPath
		kinds = append(kinds, src.Kind)
	}

	collector, err := metrics.NewCycleCollector()
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}

	a := &Application{cfg: cfg, collector: collector, logger: baseLogger.With("component", "app")}

	var history ports.HistoryRepository
	if cfg.Database.DSN != "" {
		db, err := sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		repo := storage.NewPostgresRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		a.db = db
		history = repo
	}

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.Enabled() {
		notifier = telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID)
	}

	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Sources:    plans,
		Candidates: source,
		Snapshots:  storage.NewSnapshotFileStore(paths),
		State:      storage.NewStateFileStore(cfg.State.Path, kinds),
		History:    history,
		Notifier:   notifier,
		Observer:   a,
		Logger:     baseLogger,
	})
	return a, nil
}

// NewRegistry registers every fetch strategy the configuration may name.
func NewRegistry(cfg config.Config) *scanner.Registry {
	opts := parser.ClientOptions{Timeout: cfg.APIs.Timeout, RetryCount: cfg.APIs.RetryCount}

	registry := scanner.NewRegistry()
	registry.Register(parser.NewMediumAPIScanner(cfg.APIs.Medium, opts))
	registry.Register(parser.NewMediumFeedScanner("", opts))
	registry.Register(parser.NewLinkedInAPIScanner(cfg.APIs.LinkedIn, opts))
	registry.Register(parser.NewFileScanner())
	return registry
}

// Plans turns source configs into cycle plans with their extractors.
func Plans(cfg config.Config) ([]usecase.SourcePlan, error) {
	plans := make([]usecase.SourcePlan, 0, len(cfg.Sources))
	for _, src := range cfg.Sources {
		extractor, err := extract.NewExtractor(src.Kind, src.FieldMap(), src.Policy())
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", src.Name, err)
		}
		plans = append(plans, usecase.SourcePlan{
			Name:          src.Name,
			Kind:          src.Kind,
			Extractor:     extractor,
			MinInterval:   src.MinInterval,
			FetchTimeout:  src.FetchTimeout,
			MaxCandidates: src.MaxCandidates,
			RetainMissing: src.RetainMissing,
			Author:        src.Author,
		})
	}
	return plans, nil
}

// Run performs a single cycle. force bypasses the freshness gate.
func (a *Application) Run(ctx context.Context, force bool) domain.CycleReport {
	now := time.Now().In(a.cfg.Scheduler.Location())
	return a.pipeline.RunCycle(ctx, now, force)
}

// Status reports the freshness of every source without fetching.
func (a *Application) Status(ctx context.Context) ([]usecase.SourceStatus, error) {
	return a.pipeline.Status(ctx, time.Now().In(a.cfg.Scheduler.Location()))
}

// Plans exposes the configured sources in cycle order.
func (a *Application) Plans() []usecase.SourcePlan {
	return a.pipeline.Plans()
}

// Daemon runs gated cycles on the configured cron schedule until ctx is cancelled.
// The metrics endpoint is served when a listen address is configured.
func (a *Application) Daemon(ctx context.Context, runOnStart bool) error {
	driver, err := scheduler.NewCronScheduler(a.cfg.Scheduler.CronExpression, a.cfg.Scheduler.Location(), runOnStart)
	if err != nil {
		return err
	}
	sched := usecase.NewScheduler(driver, a.pipeline)

	var srv *http.Server
	serveErr := make(chan error, 1)
	if addr := a.cfg.Metrics.ListenAddr; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", a.collector.Handler())
		srv = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			a.logger.Info("metrics endpoint listening", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
		}()
	}

	if err := sched.Start(ctx); err != nil {
		return err
	}
	a.logger.Info("scheduler started",
		"cron", a.cfg.Scheduler.CronExpression,
		"timezone", a.cfg.Scheduler.Location().String(),
		"run_on_start", runOnStart)

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serveErr:
		runErr = fmt.Errorf("metrics endpoint: %w", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := sched.Stop(shutdownCtx); err != nil {
		a.logger.Warn("scheduler did not stop cleanly", "error", err)
	}
	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("metrics endpoint did not stop cleanly", "error", err)
		}
	}
	a.logger.Info("scheduler stopped")
	return runErr
}

// ObserveCycle records cycle metrics and refreshes the textfile export when configured.
func (a *Application) ObserveCycle(report domain.CycleReport) {
	a.collector.ObserveCycle(report)
	if path := a.cfg.Metrics.TextfilePath; path != "" {
		if err := a.collector.WriteTextfile(path); err != nil {
			a.logger.Warn("metrics textfile not written", "path", path, "error", err)
		}
	}
}

// Close releases the database handle.
func (a *Application) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
