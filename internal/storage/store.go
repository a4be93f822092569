// Package storage defines persistence for submission history and progress.
// Drivers live in subpackages: sqlite, postgres and local.
package storage

import (
	"context"
	"time"

	"github.com/felixgeelhaar/codeeasy/internal/domain"
)

// List limits
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// SubmissionFilter narrows a submission listing. Empty fields match all.
type SubmissionFilter struct {
	UserID       string
	TrackSlug    string
	ExerciseSlug string
	Limit        int
}

// EffectiveLimit clamps Limit to [1, MaxListLimit], defaulting to
// DefaultListLimit.
func (f SubmissionFilter) EffectiveLimit() int {
	switch {
	case f.Limit <= 0:
		return DefaultListLimit
	case f.Limit > MaxListLimit:
		return MaxListLimit
	default:
		return f.Limit
	}
}

// Matches reports whether rec passes the filter.
func (f SubmissionFilter) Matches(rec *domain.SubmissionRecord) bool {
	return (f.UserID == "" || rec.UserID == f.UserID) &&
		(f.TrackSlug == "" || rec.TrackSlug == f.TrackSlug) &&
		(f.ExerciseSlug == "" || rec.ExerciseSlug == f.ExerciseSlug)
}

// SubmissionStore persists submission records.
type SubmissionStore interface {
	// SaveSubmission inserts or replaces a record by ID.
	SaveSubmission(ctx context.Context, rec *domain.SubmissionRecord) error

	// GetSubmission returns domain.ErrSubmissionNotFound for unknown IDs.
	GetSubmission(ctx context.Context, id string) (*domain.SubmissionRecord, error)

	// ListSubmissions returns matching records, newest first.
	ListSubmissions(ctx context.Context, filter SubmissionFilter) ([]*domain.SubmissionRecord, error)
}

// ProgressStore persists per-user exercise progress.
type ProgressStore interface {
	// SaveProgress upserts an entry keyed by user, track, category and
	// exercise. A completed entry is never downgraded.
	SaveProgress(ctx context.Context, entry *domain.ProgressEntry) error

	// ListProgress returns a user's entries, optionally for one track.
	ListProgress(ctx context.Context, userID, track string) ([]*domain.ProgressEntry, error)
}

// Store is the full persistence surface used by the daemon.
type Store interface {
	SubmissionStore
	ProgressStore
	Close() error
}

// MergeProgress applies the no-downgrade rule: once completed, an entry
// stays completed and keeps its first completion time.
func MergeProgress(existing, next *domain.ProgressEntry) *domain.ProgressEntry {
	merged := *next
	if existing != nil && existing.Status == domain.ProgressCompleted {
		merged.Status = domain.ProgressCompleted
		merged.CompletedAt = existing.CompletedAt
	}
	if merged.Status == domain.ProgressCompleted && merged.CompletedAt == nil {
		t := merged.UpdatedAt
		merged.CompletedAt = &t
	}
	return &merged
}

// RecordSubmission saves rec and advances the user's progress: a graded
// submission marks the exercise in progress, an Accepted one completes it.
// Anonymous, pending and Not Found records leave progress untouched.
func RecordSubmission(ctx context.Context, s Store, rec *domain.SubmissionRecord) error {
	if err := s.SaveSubmission(ctx, rec); err != nil {
		return err
	}
	if rec.UserID == "" || rec.Outcome == nil || rec.Outcome.Status == domain.StatusNotFound {
		return nil
	}

	status := domain.ProgressInProgress
	if rec.Outcome.Status == domain.StatusAccepted {
		status = domain.ProgressCompleted
	}
	category := rec.Category
	if category == "" {
		category = "practice"
	}
	at := time.Now()
	if rec.CompletedAt != nil {
		at = *rec.CompletedAt
	}

	return s.SaveProgress(ctx, &domain.ProgressEntry{
		UserID:       rec.UserID,
		TrackSlug:    rec.TrackSlug,
		Category:     category,
		ExerciseSlug: rec.ExerciseSlug,
		Status:       status,
		UpdatedAt:    at,
	})
}
