package mcp

import (
	"context"
	"fmt"
	"strings"

	mcp "github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/mcp-go/server"

	"github.com/felixgeelhaar/codeeasy/internal/domain"
	"github.com/felixgeelhaar/codeeasy/internal/exercise"
	"github.com/felixgeelhaar/codeeasy/internal/runner"
)

// Grader grades submissions
type Grader interface {
	Languages() []runner.LanguageInfo
	Submit(ctx context.Context, req domain.SubmissionRequest) (*domain.SubmissionOutcome, error)
}

// Catalog serves exercise content
type Catalog interface {
	Tracks() ([]exercise.TrackSummary, error)
	Exercise(track, category, slug string) (*exercise.ExerciseDetail, error)
}

// Server wraps the MCP server with CodeEasy functionality
type Server struct {
	mcpServer *server.Server
	grader    Grader
	catalog   Catalog
}

// Config contains configuration for the MCP server
type Config struct {
	Grader  Grader
	Catalog Catalog
	Version string
}

// NewServer creates a new MCP server for CodeEasy
func NewServer(cfg Config) *Server {
	s := &Server{
		grader:  cfg.Grader,
		catalog: cfg.Catalog,
	}

	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	s.mcpServer = server.New(server.Info{
		Name:    "codeeasy",
		Version: version,
	}, server.WithInstructions(`
CodeEasy grades exercise solutions against the exercise's own test suite
on a remote judge and reports per-test results.

Available tools:
- codeeasy_tracks: List the available tracks
- codeeasy_exercise: Read an exercise's instructions and starter code
- codeeasy_languages: List judge languages and whether they can be graded
- codeeasy_submit: Grade a solution

Statuses: Accepted, Wrong Answer, Compilation Error, Not Found, Error.
`))

	s.registerTools()

	return s
}

// registerTools registers all CodeEasy MCP tools
func (s *Server) registerTools() {
	s.mcpServer.Tool("codeeasy_tracks").
		Description("List the available learning tracks.").
		Handler(s.handleTracks)

	s.mcpServer.Tool("codeeasy_exercise").
		Description("Get an exercise's instructions, starter code and tests.").
		Handler(s.handleExercise)

	s.mcpServer.Tool("codeeasy_languages").
		Description("List judge languages and whether submissions in them can be graded.").
		Handler(s.handleLanguages)

	s.mcpServer.Tool("codeeasy_submit").
		Description("Grade a solution against the exercise's test suite.").
		Handler(s.handleSubmit)
}

// Input/Output types for tools

type TracksInput struct{}

type TracksOutput struct {
	Tracks []exercise.TrackSummary `json:"tracks"`
}

type ExerciseInput struct {
	Track    string `json:"track" jsonschema:"description=Track slug such as javascript or c"`
	Category string `json:"category,omitempty" jsonschema:"description=Exercise category: practice or concept (default practice)"`
	Slug     string `json:"slug" jsonschema:"description=Exercise slug such as hello-world"`
}

type ExerciseOutput struct {
	Title        string            `json:"title"`
	Category     string            `json:"category"`
	Blurb        string            `json:"blurb,omitempty"`
	Instructions string            `json:"instructions,omitempty"`
	StarterCode  map[string]string `json:"starter_code,omitempty"`
	Tests        string            `json:"tests,omitempty"`
}

type LanguagesInput struct{}

type LanguageOutput struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Version  string `json:"version"`
	Gradable bool   `json:"gradable"`
}

type LanguagesOutput struct {
	Languages []LanguageOutput `json:"languages"`
}

type SubmitInput struct {
	Track      string `json:"track" jsonschema:"description=Track slug such as javascript or c"`
	Category   string `json:"category,omitempty" jsonschema:"description=Exercise category (default practice)"`
	Exercise   string `json:"exercise" jsonschema:"description=Exercise slug"`
	Code       string `json:"code" jsonschema:"description=Solution source code"`
	LanguageID int    `json:"language_id,omitempty" jsonschema:"description=Judge language ID; inferred from the track when omitted"`
	Stdin      string `json:"stdin,omitempty"`
}

type TestResultOutput struct {
	Name     string `json:"name"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	Passed   bool   `json:"passed"`
}

type SubmitOutput struct {
	ID            string             `json:"id"`
	Status        string             `json:"status"`
	Passed        bool               `json:"passed"`
	PassedTests   int                `json:"passed_tests"`
	FailedTests   int                `json:"failed_tests"`
	Summary       string             `json:"summary"`
	TestResults   []TestResultOutput `json:"test_results"`
	Stdout        string             `json:"stdout,omitempty"`
	Stderr        string             `json:"stderr,omitempty"`
	CompileOutput string             `json:"compile_output,omitempty"`
}

// Tool handlers

func (s *Server) handleTracks(ctx context.Context, input TracksInput) (TracksOutput, error) {
	tracks, err := s.catalog.Tracks()
	if err != nil {
		return TracksOutput{}, fmt.Errorf("list tracks: %w", err)
	}
	return TracksOutput{Tracks: tracks}, nil
}

func (s *Server) handleExercise(ctx context.Context, input ExerciseInput) (ExerciseOutput, error) {
	category := input.Category
	if category == "" {
		category = "practice"
	}

	ex, err := s.catalog.Exercise(input.Track, category, input.Slug)
	if err != nil {
		return ExerciseOutput{}, fmt.Errorf("exercise %s/%s/%s: %w", input.Track, category, input.Slug, err)
	}

	return ExerciseOutput{
		Title:        ex.Title,
		Category:     ex.Category,
		Blurb:        ex.Blurb,
		Instructions: ex.Docs["instructions"],
		StarterCode:  ex.StarterCode,
		Tests:        ex.Tests,
	}, nil
}

func (s *Server) handleLanguages(ctx context.Context, input LanguagesInput) (LanguagesOutput, error) {
	languages := s.grader.Languages()
	out := LanguagesOutput{Languages: make([]LanguageOutput, len(languages))}
	for i, l := range languages {
		out.Languages[i] = LanguageOutput{
			ID:       l.ID,
			Name:     l.Name,
			Version:  l.Version,
			Gradable: l.Gradable,
		}
	}
	return out, nil
}

func (s *Server) handleSubmit(ctx context.Context, input SubmitInput) (SubmitOutput, error) {
	outcome, err := s.grader.Submit(ctx, domain.SubmissionRequest{
		TrackSlug:    input.Track,
		Category:     input.Category,
		ExerciseSlug: input.Exercise,
		SourceCode:   input.Code,
		LanguageID:   input.LanguageID,
		Stdin:        input.Stdin,
	})
	if err != nil {
		return SubmitOutput{}, fmt.Errorf("submission rejected: %w", err)
	}

	passed, failed := outcome.Counts()
	output := SubmitOutput{
		ID:          outcome.ID,
		Status:      outcome.Status.String(),
		Passed:      outcome.Passed,
		PassedTests: passed,
		FailedTests: failed,
		Stdout:      outcome.Stdout,
		Stderr:      outcome.Stderr,
		TestResults: make([]TestResultOutput, len(outcome.TestResults)),
	}
	if outcome.CompileOutput != nil {
		output.CompileOutput = *outcome.CompileOutput
	}
	for i, tr := range outcome.TestResults {
		output.TestResults[i] = TestResultOutput{
			Name:     tr.Input,
			Expected: tr.ExpectedOutput,
			Actual:   tr.ActualOutput,
			Passed:   tr.Passed,
		}
	}
	output.Summary = summarize(outcome.Status, output.TestResults)

	return output, nil
}

// summarize renders a one-line verdict with the failing test names
func summarize(status domain.Status, results []TestResultOutput) string {
	total := len(results)
	var failing []string
	for _, r := range results {
		if !r.Passed {
			failing = append(failing, r.Name)
		}
	}

	summary := fmt.Sprintf("%s: %d/%d tests passed", status, total-len(failing), total)
	if len(failing) > 0 {
		summary += " | failing: " + strings.Join(failing, ", ")
	}
	return summary
}

// ServeStdio starts the MCP server on stdio (for editor integration)
func (s *Server) ServeStdio(ctx context.Context) error {
	return mcp.ServeStdio(ctx, s.mcpServer)
}

// ServeHTTP starts the MCP server on HTTP (alternative transport)
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	return mcp.ServeHTTP(ctx, s.mcpServer, addr)
}

// GetMCPServer returns the underlying MCP server (for testing)
func (s *Server) GetMCPServer() *server.Server {
	return s.mcpServer
}
