package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/felixgeelhaar/codeeasy/internal/api/middleware"
	"github.com/felixgeelhaar/codeeasy/internal/config"
	"github.com/felixgeelhaar/codeeasy/internal/domain"
	"github.com/felixgeelhaar/codeeasy/internal/exercise"
	"github.com/felixgeelhaar/codeeasy/internal/judge"
	"github.com/felixgeelhaar/codeeasy/internal/metrics"
	"github.com/felixgeelhaar/codeeasy/internal/queue"
	"github.com/felixgeelhaar/codeeasy/internal/runner"
	"github.com/felixgeelhaar/codeeasy/internal/storage"
	"github.com/felixgeelhaar/codeeasy/internal/storage/local"
	"github.com/felixgeelhaar/codeeasy/internal/storage/postgres"
	"github.com/felixgeelhaar/codeeasy/internal/storage/sqlite"
)

// jobGrace is added to the judge timeout to bound one queued job.
const jobGrace = 10 * time.Second

// App holds all application dependencies
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Store   storage.Store
	Catalog *exercise.Catalog
	Judge   judge.Client
	Runner  *runner.Service
	Metrics *metrics.Metrics

	// Queue is nil unless async submissions are enabled
	Queue    *queue.Connection
	Producer *queue.Producer
	Results  *queue.ResultConsumer
	consumer *queue.Consumer

	version string
}

// AppConfig holds configuration for application initialization
type AppConfig struct {
	Config  *config.Config
	Logger  *slog.Logger
	Version string
}

// NewApp creates a new application instance with all dependencies wired
func NewApp(ctx context.Context, cfg AppConfig) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := cfg.Config

	app := &App{
		Config:  c,
		Logger:  logger,
		Metrics: metrics.New(),
		version: cfg.Version,
	}

	// Exercise content
	locator := exercise.NewLocator(c.Content.Root, logger)
	app.Catalog = exercise.NewCatalog(locator)

	// Judge backend, instrumented outside the breaker so rejected calls count
	client, err := judge.New(judge.Config{
		Backend: c.Judge.Backend,
		BaseURL: c.Judge.URL,
		APIKey:  c.Judge.APIKey,
		APIHost: c.Judge.APIHost,
		Timeout: c.JudgeTimeout(),
		Breaker: judge.BreakerConfig{
			Disabled:    !c.Judge.BreakerEnabled,
			Failures:    c.Judge.BreakerFailures,
			OpenTimeout: time.Duration(c.Judge.BreakerOpenSeconds) * time.Second,
		},
		Limits: judge.LimitConfig{
			MaxConcurrent: c.Judge.MaxConcurrent,
			RatePerSecond: c.Judge.RatePerSecond,
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("init judge: %w", err)
	}
	app.Judge = app.Metrics.InstrumentJudge(client)

	// Submission orchestrator
	app.Runner = runner.NewService(
		runner.Config{Timeout: c.JudgeTimeout()},
		locator,
		app.Judge,
		runner.WithAssemblers(runner.NewAssemblerRegistry(runner.AssemblerOptions{
			CompileTimeout: c.CompileTimeout(),
			RunTimeout:     c.RunTimeout(),
		})),
		runner.WithObserver(app.Metrics),
		runner.WithLogger(logger),
	)

	// Persistence
	app.Store, err = OpenStore(ctx, c, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	// Async submissions
	if c.Queue.Enabled {
		if err := app.initQueue(); err != nil {
			app.Store.Close()
			return nil, err
		}
	}

	return app, nil
}

// OpenStore opens the configured storage driver
func OpenStore(ctx context.Context, c *config.Config, logger *slog.Logger) (storage.Store, error) {
	switch c.Storage.Driver {
	case "postgres":
		return postgres.New(ctx, c.Storage.DatabaseURL)

	case "local":
		path, err := c.LocalStorePath()
		if err != nil {
			return nil, err
		}
		return local.NewStore(path)

	case "sqlite", "":
		path, err := c.SQLitePath()
		if err != nil {
			return nil, err
		}
		return sqlite.New(ctx, path, logger)

	default:
		return nil, fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
}

func (a *App) initQueue() error {
	conn, err := queue.NewConnection(queue.Config{
		URL:         a.Config.Queue.URL,
		JobQueue:    a.Config.Queue.Jobs,
		ResultQueue: a.Config.Queue.Results,
	}, a.Logger)
	if err != nil {
		return fmt.Errorf("init queue: %w", err)
	}

	a.Queue = conn
	a.Producer = queue.NewProducer(conn)
	a.Results = queue.NewResultConsumer(conn)
	a.consumer = queue.NewConsumer(conn, a.HandleJob, queue.ConsumerConfig{
		Workers:    a.Config.Queue.Workers,
		Prefetch:   a.Config.Queue.Prefetch,
		JobTimeout: a.Config.JudgeTimeout() + jobGrace,
	})
	return nil
}

// Start begins consuming queued jobs and their results. It is a no-op
// when the queue is disabled.
func (a *App) Start(ctx context.Context) error {
	if a.Queue == nil {
		return nil
	}
	if err := a.consumer.Start(ctx); err != nil {
		return fmt.Errorf("start job consumer: %w", err)
	}
	if err := a.Results.Start(ctx); err != nil {
		return fmt.Errorf("start result consumer: %w", err)
	}
	return nil
}

// Handler returns the HTTP API
func (a *App) Handler() http.Handler {
	cfg := Config{
		Grader:      a.Runner,
		Catalog:     a.Catalog,
		Store:       a.Store,
		Metrics:     a.Metrics.Handler(),
		Observer:    a.Metrics,
		JudgeName:   a.Judge.Name(),
		Version:     a.version,
		CORSOrigins: a.Config.Server.CORSOrigins,
		RateLimit: middleware.RateLimitConfig{
			RequestsPerMinute: a.Config.Server.RateLimit,
			BurstMultiplier:   middleware.DefaultRateLimitConfig().BurstMultiplier,
		},
		MaxAsyncWait: a.Config.JudgeTimeout() + jobGrace,
		Logger:       a.Logger,
	}
	// Typed nils must not reach the interfaces
	if a.Producer != nil {
		cfg.Publisher = a.Producer
		cfg.Results = a.Results
	}
	return NewRouter(cfg)
}

// HandleJob grades one queued submission and stores its outcome under the
// job ID.
func (a *App) HandleJob(ctx context.Context, job *queue.SubmissionJob) (*queue.SubmissionResult, error) {
	outcome, err := a.Runner.SubmitWithID(ctx, job.ID, job.Request)
	if err != nil {
		// Rejected requests still close their pending record
		outcome = runner.RejectedOutcome(job.ID, err)
	}

	rec := domain.NewSubmissionRecord(job.ID, job.Request, outcome, time.Now())
	if !job.CreatedAt.IsZero() {
		rec.CreatedAt = job.CreatedAt
	}
	if storeErr := storage.RecordSubmission(ctx, a.Store, rec); storeErr != nil {
		a.Logger.Error("failed to record queued submission", "job_id", job.ID, "error", storeErr)
	}

	if err != nil {
		a.Metrics.ObserveJob(queue.ResultFailed)
		return nil, err
	}
	a.Metrics.ObserveJob(queue.ResultCompleted)
	return &queue.SubmissionResult{Status: queue.ResultCompleted, Outcome: outcome}, nil
}

// Close stops consumers and releases resources
func (a *App) Close() error {
	var errs []error
	if a.Queue != nil {
		a.consumer.Stop()
		a.Results.Stop()
		errs = append(errs, a.Queue.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	if c, ok := a.Judge.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
