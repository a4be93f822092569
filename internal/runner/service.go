package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/codeeasy/internal/domain"
	"github.com/felixgeelhaar/codeeasy/internal/exercise"
	"github.com/google/uuid"
)

// Config holds orchestrator configuration
type Config struct {
	// Timeout bounds one submission end to end, judge call included.
	Timeout time.Duration
}

// DefaultConfig returns default orchestrator configuration
func DefaultConfig() Config {
	return Config{
		Timeout: 30 * time.Second,
	}
}

// Judge executes an assembled payload on a remote execution service.
type Judge interface {
	Execute(ctx context.Context, payload *domain.Payload, lang domain.LanguageProfile) (*domain.ExecutionResult, error)
}

// FixtureLocator resolves the test fixture of an exercise.
type FixtureLocator interface {
	Locate(q exercise.Query) (*exercise.Fixture, error)
}

// Observer is notified of every finished submission.
type Observer interface {
	ObserveSubmission(language string, status domain.Status, duration time.Duration)
}

// Stage is a step of the submission state machine.
type Stage string

const (
	StageReceived        Stage = "received"
	StageFixtureResolved Stage = "fixture_resolved"
	StageAssembled       Stage = "assembled"
	StageExecuted        Stage = "executed"
	StageNormalized      Stage = "normalized"
	StageDone            Stage = "done"
)

// LanguageInfo describes a judge language and whether it can be graded.
type LanguageInfo struct {
	domain.LanguageProfile
	Gradable bool `json:"gradable"`
}

// Service is the submission orchestrator: it validates a request, resolves
// the fixture, assembles the payload, calls the judge once and normalizes
// the result. Every failure after validation becomes an outcome.
type Service struct {
	config     Config
	languages  *LanguageTable
	assemblers *AssemblerRegistry
	locator    FixtureLocator
	judge      Judge
	parser     *Parser
	observer   Observer
	logger     *slog.Logger
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithLanguages replaces the default language table.
func WithLanguages(t *LanguageTable) ServiceOption {
	return func(s *Service) { s.languages = t }
}

// WithAssemblers replaces the default assembler registry.
func WithAssemblers(r *AssemblerRegistry) ServiceOption {
	return func(s *Service) { s.assemblers = r }
}

// WithObserver sets the outcome observer.
func WithObserver(o Observer) ServiceOption {
	return func(s *Service) { s.observer = o }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// NewService creates a new submission service
func NewService(cfg Config, locator FixtureLocator, judge Judge, opts ...ServiceOption) *Service {
	s := &Service{
		config:     cfg,
		languages:  DefaultLanguageTable(),
		assemblers: NewAssemblerRegistry(DefaultAssemblerOptions()),
		locator:    locator,
		judge:      judge,
		parser:     NewParser(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.config.Timeout <= 0 {
		s.config.Timeout = DefaultConfig().Timeout
	}
	return s
}

// Languages lists the known judge languages.
func (s *Service) Languages() []LanguageInfo {
	profiles := s.languages.Profiles()
	out := make([]LanguageInfo, len(profiles))
	for i, p := range profiles {
		out[i] = LanguageInfo{LanguageProfile: p, Gradable: s.assemblers.Supports(p.ID)}
	}
	return out
}

// Resolve validates req and returns its language profile and assembler.
// A zero language ID is inferred from the track slug.
func (s *Service) Resolve(req domain.SubmissionRequest) (domain.LanguageProfile, Assembler, error) {
	if err := req.Validate(); err != nil {
		return domain.LanguageProfile{}, nil, err
	}

	id := req.LanguageID
	if id == 0 {
		id = LanguageIDJavaScript
		if p, ok := s.languages.ForTrack(req.TrackSlug); ok {
			id = p.ID
		}
	}

	profile, ok := s.languages.Lookup(id)
	if !ok {
		return domain.LanguageProfile{}, nil, &domain.UnsupportedLanguageError{ID: id, Supported: s.languages.IDs()}
	}
	asm, err := s.assemblers.Get(id)
	if err != nil {
		return domain.LanguageProfile{}, nil, &domain.UnsupportedLanguageError{
			ID:        id,
			Name:      profile.Name,
			Supported: s.assemblers.IDs(),
		}
	}
	return profile, asm, nil
}

// Validate reports whether req would be accepted by Submit.
func (s *Service) Validate(req domain.SubmissionRequest) error {
	_, _, err := s.Resolve(req)
	return err
}

// Submit grades a submission under a fresh ID. The error is non-nil only
// when the request is rejected before any I/O.
func (s *Service) Submit(ctx context.Context, req domain.SubmissionRequest) (*domain.SubmissionOutcome, error) {
	return s.SubmitWithID(ctx, uuid.NewString(), req)
}

// SubmitWithID grades a submission under the given ID.
func (s *Service) SubmitWithID(ctx context.Context, id string, req domain.SubmissionRequest) (*domain.SubmissionOutcome, error) {
	profile, asm, err := s.Resolve(req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	outcome := s.run(ctx, id, req, profile, asm)
	outcome.ID = id
	outcome.Language = profile.Name
	duration := time.Since(start)

	if s.observer != nil {
		s.observer.ObserveSubmission(profile.Name, outcome.Status, duration)
	}
	s.logger.Info("submission graded",
		"submission_id", id,
		"exercise", req.ExercisePath(),
		"language", profile.Name,
		"status", outcome.Status,
		"passed", outcome.Passed,
		"tests", len(outcome.TestResults),
		"duration", duration,
	)
	return outcome, nil
}

func (s *Service) run(ctx context.Context, id string, req domain.SubmissionRequest, profile domain.LanguageProfile, asm Assembler) (outcome *domain.SubmissionOutcome) {
	stage := StageReceived
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("submission panicked", "submission_id", id, "stage", stage, "panic", r)
			outcome = errorOutcome(fmt.Errorf("internal error after %s: %v", stage, r))
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	advance := func(next Stage) {
		stage = next
		s.logger.Debug("submission stage", "submission_id", id, "stage", stage)
	}

	fx, err := s.locator.Locate(exercise.Query{
		Track:     req.TrackSlug,
		Category:  req.Category,
		Slug:      req.ExerciseSlug,
		Extension: profile.Extension,
		Header:    asm.NeedsHeader(),
	})
	if errors.Is(err, domain.ErrExerciseNotFound) {
		s.logger.Warn("exercise not found", "submission_id", id, "exercise", req.ExercisePath())
		return notFoundOutcome(req)
	}
	if err != nil {
		return s.fail(id, stage, fmt.Errorf("resolve fixture: %w", err))
	}
	advance(StageFixtureResolved)

	payload, err := asm.Assemble(AssembleInput{
		Slug:     req.ExerciseSlug,
		UserCode: req.SourceCode,
		Stdin:    req.Stdin,
		Fixture:  fx,
	})
	if err != nil {
		return s.fail(id, stage, fmt.Errorf("assemble: %w", err))
	}
	advance(StageAssembled)

	res, err := s.judge.Execute(ctx, payload, profile)
	if err != nil {
		return s.fail(id, stage, fmt.Errorf("execute: %w", err))
	}
	advance(StageExecuted)

	status, results := s.parser.Normalize(res, asm.Format())
	advance(StageNormalized)

	outcome = buildOutcome(status, results, res)
	advance(StageDone)
	return outcome
}

func (s *Service) fail(id string, stage Stage, err error) *domain.SubmissionOutcome {
	s.logger.Error("submission failed", "submission_id", id, "stage", stage, "error", err)
	return errorOutcome(err)
}

func formatSeconds(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}

func buildOutcome(status domain.Status, results []domain.TestResult, res *domain.ExecutionResult) *domain.SubmissionOutcome {
	outcome := &domain.SubmissionOutcome{
		Status:      status,
		Passed:      status == domain.StatusAccepted,
		TestResults: results,
	}

	if status == domain.StatusCompilationError {
		compileOutput := res.Compile.Stderr
		if compileOutput == "" {
			compileOutput = res.Compile.Stdout
		}
		outcome.Stdout = res.Compile.Stdout
		outcome.Stderr = res.Compile.Stderr
		outcome.CompileOutput = &compileOutput
		outcome.Time = formatSeconds(0)
		return outcome
	}

	outcome.Stdout = res.Run.Stdout
	outcome.Stderr = res.Run.Stderr
	outcome.Time = formatSeconds(res.Run.Time)
	outcome.Memory = res.Run.Memory
	if res.Compile != nil && res.Compile.Stderr != "" {
		warnings := res.Compile.Stderr
		outcome.CompileOutput = &warnings
	}
	return outcome
}

func notFoundOutcome(req domain.SubmissionRequest) *domain.SubmissionOutcome {
	return &domain.SubmissionOutcome{
		Status: domain.StatusNotFound,
		Stderr: "Exercise not found: " + req.ExercisePath(),
		Time:   formatSeconds(0),
		Passed: false,
		TestResults: []domain.TestResult{{
			Input:          "Exercise lookup",
			ExpectedOutput: "Found",
			ActualOutput:   "Not Found",
			Passed:         false,
		}},
	}
}

func errorOutcome(err error) *domain.SubmissionOutcome {
	return &domain.SubmissionOutcome{
		Status: domain.StatusError,
		Stderr: err.Error(),
		Error:  err.Error(),
		Time:   formatSeconds(0),
		Passed: false,
		TestResults: []domain.TestResult{{
			Input:          "Execution",
			ExpectedOutput: labelSuccess,
			ActualOutput:   "Error",
			Passed:         false,
		}},
	}
}

// RejectedOutcome is the Error outcome recorded for a submission that was
// refused before it reached the judge.
func RejectedOutcome(id string, err error) *domain.SubmissionOutcome {
	outcome := errorOutcome(err)
	outcome.ID = id
	return outcome
}
