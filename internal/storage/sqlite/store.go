package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/felixgeelhaar/codeeasy/internal/domain"
	"github.com/felixgeelhaar/codeeasy/internal/storage"
)

// Store implements storage.Store backed by SQLite.
type Store struct {
	db *DB
}

// New opens path, applies migrations and returns a ready store.
func New(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	db, err := Open(path, logger)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveSubmission inserts or replaces a submission record.
func (s *Store) SaveSubmission(ctx context.Context, rec *domain.SubmissionRecord) error {
	var status, outcome sql.NullString
	if rec.Outcome != nil {
		data, err := json.Marshal(rec.Outcome)
		if err != nil {
			return fmt.Errorf("marshal outcome: %w", err)
		}
		status = sql.NullString{String: rec.Outcome.Status.String(), Valid: true}
		outcome = sql.NullString{String: string(data), Valid: true}
	}

	var completedAt sql.NullTime
	if rec.CompletedAt != nil {
		completedAt = sql.NullTime{Time: rec.CompletedAt.UTC(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO submissions (id, user_id, track_slug, category, exercise_slug,
			language_id, source_code, status, outcome, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status=excluded.status, outcome=excluded.outcome,
			completed_at=excluded.completed_at`,
		rec.ID, rec.UserID, rec.TrackSlug, rec.Category, rec.ExerciseSlug,
		rec.LanguageID, rec.SourceCode, status, outcome,
		rec.CreatedAt.UTC(), completedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert submission: %w", err)
	}
	return nil
}

// GetSubmission retrieves a submission by ID.
func (s *Store) GetSubmission(ctx context.Context, id string) (*domain.SubmissionRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, track_slug, category, exercise_slug, language_id,
			source_code, outcome, created_at, completed_at
		FROM submissions WHERE id = ?`, id)

	rec, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrSubmissionNotFound, id)
	}
	return rec, err
}

// ListSubmissions returns matching submissions, newest first.
func (s *Store) ListSubmissions(ctx context.Context, filter storage.SubmissionFilter) ([]*domain.SubmissionRecord, error) {
	var where []string
	var args []any
	if filter.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.TrackSlug != "" {
		where = append(where, "track_slug = ?")
		args = append(args, filter.TrackSlug)
	}
	if filter.ExerciseSlug != "" {
		where = append(where, "exercise_slug = ?")
		args = append(args, filter.ExerciseSlug)
	}

	query := `SELECT id, user_id, track_slug, category, exercise_slug, language_id,
			source_code, outcome, created_at, completed_at
		FROM submissions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, filter.EffectiveLimit())

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	recs := make([]*domain.SubmissionRecord, 0)
	for rows.Next() {
		rec, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// SaveProgress upserts a progress entry without downgrading completion.
func (s *Store) SaveProgress(ctx context.Context, entry *domain.ProgressEntry) error {
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = time.Now()
	}
	entry = storage.MergeProgress(nil, entry)

	var completedAt sql.NullTime
	if entry.CompletedAt != nil {
		completedAt = sql.NullTime{Time: entry.CompletedAt.UTC(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO progress (user_id, track_slug, category, exercise_slug, status, completed_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, track_slug, category, exercise_slug) DO UPDATE SET
			status = CASE WHEN progress.status = 'completed' THEN 'completed' ELSE excluded.status END,
			completed_at = COALESCE(progress.completed_at, excluded.completed_at),
			updated_at = excluded.updated_at`,
		entry.UserID, entry.TrackSlug, entry.Category, entry.ExerciseSlug,
		string(entry.Status), completedAt, entry.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert progress: %w", err)
	}
	return nil
}

// ListProgress returns a user's progress, optionally for one track.
func (s *Store) ListProgress(ctx context.Context, userID, track string) ([]*domain.ProgressEntry, error) {
	query := `SELECT user_id, track_slug, category, exercise_slug, status, completed_at, updated_at
		FROM progress WHERE user_id = ?`
	args := []any{userID}
	if track != "" {
		query += " AND track_slug = ?"
		args = append(args, track)
	}
	query += " ORDER BY track_slug, category, exercise_slug"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	defer rows.Close()

	entries := make([]*domain.ProgressEntry, 0)
	for rows.Next() {
		var e domain.ProgressEntry
		var status string
		var completedAt sql.NullTime
		if err := rows.Scan(&e.UserID, &e.TrackSlug, &e.Category, &e.ExerciseSlug,
			&status, &completedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan progress row: %w", err)
		}
		e.Status = domain.ProgressStatus(status)
		if completedAt.Valid {
			t := completedAt.Time
			e.CompletedAt = &t
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row scanner) (*domain.SubmissionRecord, error) {
	var rec domain.SubmissionRecord
	var outcome sql.NullString
	var completedAt sql.NullTime

	err := row.Scan(
		&rec.ID, &rec.UserID, &rec.TrackSlug, &rec.Category, &rec.ExerciseSlug,
		&rec.LanguageID, &rec.SourceCode, &outcome, &rec.CreatedAt, &completedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan submission: %w", err)
	}

	if outcome.Valid {
		rec.Outcome = &domain.SubmissionOutcome{}
		if err := json.Unmarshal([]byte(outcome.String), rec.Outcome); err != nil {
			return nil, fmt.Errorf("unmarshal outcome: %w", err)
		}
	}
	if completedAt.Valid {
		t := completedAt.Time
		rec.CompletedAt = &t
	}
	return &rec, nil
}
