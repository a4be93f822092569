package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/felixgeelhaar/codeeasy/internal/api/middleware"
	"github.com/felixgeelhaar/codeeasy/internal/domain"
	"github.com/felixgeelhaar/codeeasy/internal/exercise"
	"github.com/felixgeelhaar/codeeasy/internal/queue"
	"github.com/felixgeelhaar/codeeasy/internal/runner"
	"github.com/felixgeelhaar/codeeasy/internal/storage"
)

// Grader runs the submission pipeline
type Grader interface {
	Languages() []runner.LanguageInfo
	Validate(req domain.SubmissionRequest) error
	SubmitWithID(ctx context.Context, id string, req domain.SubmissionRequest) (*domain.SubmissionOutcome, error)
}

// Catalog serves read-only track content
type Catalog interface {
	Tracks() ([]exercise.TrackSummary, error)
	TrackConfig(track string) (json.RawMessage, error)
	TrackAbout(track string) (string, error)
	Categories(track string) ([]string, error)
	Exercises(track, category string) ([]exercise.ExerciseSummary, error)
	Exercise(track, category, slug string) (*exercise.ExerciseDetail, error)
	Concepts(track string) ([]exercise.ConceptRef, error)
	Concept(track, slug string) (*exercise.ConceptDetail, error)
}

// JobPublisher enqueues asynchronous submissions
type JobPublisher interface {
	PublishJob(ctx context.Context, job *queue.SubmissionJob) error
}

// ResultWaiter delivers the result of a published job
type ResultWaiter interface {
	Subscribe(jobID string, handler queue.ResultHandler)
	Unsubscribe(jobID string)
}

// Config holds the router's collaborators. Store, Publisher, Results and
// Metrics are optional; their routes answer 503 or are not registered
// when they are nil.
type Config struct {
	Grader      Grader
	Catalog     Catalog
	Store       storage.Store
	Publisher   JobPublisher
	Results     ResultWaiter
	Metrics     http.Handler
	Observer    middleware.HTTPObserver
	JudgeName   string
	Version     string
	CORSOrigins []string
	RateLimit   middleware.RateLimitConfig
	// MaxAsyncWait caps the ?wait= parameter of async submissions.
	MaxAsyncWait time.Duration
	Logger       *slog.Logger
}

// Router wraps the HTTP multiplexer with middleware and handlers
type Router struct {
	mux    *http.ServeMux
	cfg    Config
	logger *slog.Logger
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg Config) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxAsyncWait <= 0 {
		cfg.MaxAsyncWait = 30 * time.Second
	}

	r := &Router{
		mux:    http.NewServeMux(),
		cfg:    cfg,
		logger: cfg.Logger,
	}
	r.registerRoutes()

	return r.buildMiddlewareChain(r.mux)
}

func (r *Router) registerRoutes() {
	r.mux.HandleFunc("GET /health", r.handleHealth)
	if r.cfg.Metrics != nil {
		r.mux.Handle("GET /metrics", r.cfg.Metrics)
	}

	r.mux.HandleFunc("GET /api/languages", r.handleLanguages)

	// Content catalog
	r.mux.HandleFunc("GET /api/tracks", r.handleListTracks)
	r.mux.HandleFunc("GET /api/tracks/{track}/config", r.handleTrackConfig)
	r.mux.HandleFunc("GET /api/tracks/{track}/about", r.handleTrackAbout)
	r.mux.HandleFunc("GET /api/tracks/{track}/categories", r.handleCategories)
	r.mux.HandleFunc("GET /api/tracks/{track}/exercises", r.handleCategories)
	r.mux.HandleFunc("GET /api/tracks/{track}/exercises/{category}", r.handleListExercises)
	r.mux.HandleFunc("GET /api/tracks/{track}/exercises/{category}/{slug}", r.handleGetExercise)
	r.mux.HandleFunc("GET /api/tracks/{track}/concepts", r.handleListConcepts)
	r.mux.HandleFunc("GET /api/tracks/{track}/concepts/{slug}", r.handleGetConcept)

	// Submissions cost a judge call each and are rate limited
	limit := middleware.RateLimit(r.cfg.RateLimit)
	r.mux.Handle("POST /api/submissions", limit(http.HandlerFunc(r.handleSubmit)))
	r.mux.Handle("POST /api/submissions/async", limit(http.HandlerFunc(r.handleSubmitAsync)))
	r.mux.HandleFunc("GET /api/submissions", r.handleListSubmissions)
	r.mux.HandleFunc("GET /api/submissions/{id}", r.handleGetSubmission)

	// Progress
	r.mux.HandleFunc("POST /api/progress/complete", r.handleCompleteProgress)
	r.mux.HandleFunc("GET /api/progress", r.handleListProgress)
}

func (r *Router) buildMiddlewareChain(handler http.Handler) http.Handler {
	// Apply middleware in reverse order (last applied = first executed)
	handler = middleware.UserID(handler)
	handler = middleware.Recovery(handler)
	handler = middleware.Logger(r.logger, r.cfg.Observer)(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.CORS(r.cfg.CORSOrigins)(handler)

	return handler
}

func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"judge":   r.cfg.JudgeName,
		"storage": r.cfg.Store != nil,
		"queue":   r.cfg.Publisher != nil,
		"version": r.cfg.Version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (r *Router) handleLanguages(w http.ResponseWriter, req *http.Request) {
	languages := r.cfg.Grader.Languages()
	WriteJSON(w, http.StatusOK, map[string]any{
		"languages": languages,
		"total":     len(languages),
	})
}
