package domain

import (
	"regexp"
	"strings"
	"time"
)

// slugPattern guards path components taken from requests.
var slugPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// ValidSlug reports whether s is safe to use as a single path component.
func ValidSlug(s string) bool {
	return slugPattern.MatchString(s)
}

// SubmissionRequest is one user submission.
type SubmissionRequest struct {
	TrackSlug    string `json:"trackSlug"`
	Category     string `json:"category,omitempty"`
	ExerciseSlug string `json:"exerciseSlug"`
	SourceCode   string `json:"sourceCode"`
	LanguageID   int    `json:"languageId,omitempty"`
	Stdin        string `json:"stdin,omitempty"`
	UserID       string `json:"userId,omitempty"`
}

// Validate checks the fields that do not depend on the language registry.
func (r SubmissionRequest) Validate() error {
	if strings.TrimSpace(r.SourceCode) == "" {
		return &ValidationError{Field: "sourceCode", Message: "must not be empty"}
	}
	if !ValidSlug(r.TrackSlug) {
		return &ValidationError{Field: "trackSlug", Message: "must be a valid slug"}
	}
	if !ValidSlug(r.ExerciseSlug) {
		return &ValidationError{Field: "exerciseSlug", Message: "must be a valid slug"}
	}
	if r.Category != "" && !ValidSlug(r.Category) {
		return &ValidationError{Field: "category", Message: "must be a valid slug"}
	}
	return nil
}

// ExercisePath renders track/category/slug for messages.
func (r SubmissionRequest) ExercisePath() string {
	category := r.Category
	if category == "" {
		category = "practice"
	}
	return r.TrackSlug + "/" + category + "/" + r.ExerciseSlug
}

// Status is the terminal classification of a submission.
type Status string

const (
	StatusAccepted         Status = "Accepted"
	StatusWrongAnswer      Status = "Wrong Answer"
	StatusCompilationError Status = "Compilation Error"
	StatusNotFound         Status = "Not Found"
	StatusError            Status = "Error"
)

// String returns the status as a string
func (s Status) String() string {
	return string(s)
}

// IsValid checks if the status is one of the known values
func (s Status) IsValid() bool {
	switch s {
	case StatusAccepted, StatusWrongAnswer, StatusCompilationError, StatusNotFound, StatusError:
		return true
	default:
		return false
	}
}

// TestResult is one normalized test case.
type TestResult struct {
	Input          string `json:"input"`
	ExpectedOutput string `json:"expectedOutput"`
	ActualOutput   string `json:"actualOutput"`
	Passed         bool   `json:"passed"`
}

// SubmissionOutcome is the normalized report returned for every submission.
type SubmissionOutcome struct {
	ID            string       `json:"id"`
	Language      string       `json:"language,omitempty"`
	Status        Status       `json:"status"`
	Stdout        string       `json:"stdout"`
	Stderr        string       `json:"stderr"`
	CompileOutput *string      `json:"compileOutput"`
	Time          string       `json:"time"`
	Memory        int64        `json:"memory"`
	Passed        bool         `json:"passed"`
	TestResults   []TestResult `json:"testResults"`
	Error         string       `json:"error,omitempty"`
}

// Counts returns the number of passing and failing test results.
func (o *SubmissionOutcome) Counts() (passed, failed int) {
	for _, tr := range o.TestResults {
		if tr.Passed {
			passed++
		} else {
			failed++
		}
	}
	return passed, failed
}

// SubmissionRecord is a persisted submission with its outcome.
type SubmissionRecord struct {
	ID           string             `json:"id"`
	UserID       string             `json:"userId,omitempty"`
	TrackSlug    string             `json:"trackSlug"`
	Category     string             `json:"category,omitempty"`
	ExerciseSlug string             `json:"exerciseSlug"`
	LanguageID   int                `json:"languageId"`
	SourceCode   string             `json:"sourceCode"`
	Outcome      *SubmissionOutcome `json:"outcome,omitempty"` // nil while an async job is pending
	CreatedAt    time.Time          `json:"createdAt"`
	CompletedAt  *time.Time         `json:"completedAt,omitempty"`
}

// Pending reports whether the record is still waiting for a judge result.
func (r *SubmissionRecord) Pending() bool {
	return r.Outcome == nil
}

// NewSubmissionRecord builds a record from a request.
func NewSubmissionRecord(id string, req SubmissionRequest, outcome *SubmissionOutcome, now time.Time) *SubmissionRecord {
	rec := &SubmissionRecord{
		ID:           id,
		UserID:       req.UserID,
		TrackSlug:    req.TrackSlug,
		Category:     req.Category,
		ExerciseSlug: req.ExerciseSlug,
		LanguageID:   req.LanguageID,
		SourceCode:   req.SourceCode,
		Outcome:      outcome,
		CreatedAt:    now,
	}
	if outcome != nil {
		rec.CompletedAt = &now
	}
	return rec
}

// ProgressStatus tracks a user's state on one exercise.
type ProgressStatus string

const (
	ProgressInProgress ProgressStatus = "in_progress"
	ProgressCompleted  ProgressStatus = "completed"
)

// ProgressEntry is one (user, track, exercise) progress row.
type ProgressEntry struct {
	UserID       string         `json:"userId"`
	TrackSlug    string         `json:"trackSlug"`
	Category     string         `json:"category"`
	ExerciseSlug string         `json:"exerciseSlug"`
	Status       ProgressStatus `json:"status"`
	CompletedAt  *time.Time     `json:"completedAt,omitempty"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}
