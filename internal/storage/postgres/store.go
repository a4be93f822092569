// Package postgres implements storage.Store on PostgreSQL through pgxpool.
package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sqlc-dev/pqtype"

	"github.com/felixgeelhaar/codeeasy/internal/domain"
	"github.com/felixgeelhaar/codeeasy/internal/storage"
)

//go:embed schema.sql
var schema string

var _ storage.Store = (*Store)(nil)

// Store implements storage.Store using PostgreSQL
type Store struct {
	pool *pgxpool.Pool
}

// errUnreachable marks connection failures worth retrying.
var errUnreachable = errors.New("postgres unreachable")

// ConnectRetry bounds the attempts made by New.
var ConnectRetry = retry.Config{
	MaxAttempts:   5,
	InitialDelay:  500 * time.Millisecond,
	MaxDelay:      5 * time.Second,
	Multiplier:    2.0,
	BackoffPolicy: retry.BackoffExponential,
	Jitter:        true,
}

// New connects to databaseURL and applies the schema. A database that is
// still starting is retried with exponential backoff.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg := ConnectRetry
	cfg.IsRetryable = func(err error) bool {
		return errors.Is(err, errUnreachable)
	}

	return retry.New[*Store](cfg).Do(ctx, func(ctx context.Context) (*Store, error) {
		return connect(ctx, databaseURL)
	})
}

func connect(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w: %w", errUnreachable, err)
	}

	s := NewStore(pool)
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewStore wraps an existing pool
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Migrate creates missing tables and indexes.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close releases the pool
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// SaveSubmission inserts or replaces a submission record
func (s *Store) SaveSubmission(ctx context.Context, rec *domain.SubmissionRecord) error {
	var status *string
	var outcome, results pqtype.NullRawMessage
	if rec.Outcome != nil {
		st := rec.Outcome.Status.String()
		status = &st

		data, err := json.Marshal(rec.Outcome)
		if err != nil {
			return fmt.Errorf("marshal outcome: %w", err)
		}
		outcome = pqtype.NullRawMessage{RawMessage: data, Valid: true}

		data, err = json.Marshal(rec.Outcome.TestResults)
		if err != nil {
			return fmt.Errorf("marshal test results: %w", err)
		}
		results = pqtype.NullRawMessage{RawMessage: data, Valid: true}
	}

	query := `
		INSERT INTO submissions (id, user_id, track_slug, category, exercise_slug,
			language_id, source_code, status, outcome, test_results, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			outcome = EXCLUDED.outcome,
			test_results = EXCLUDED.test_results,
			completed_at = EXCLUDED.completed_at
	`
	_, err := s.pool.Exec(ctx, query,
		rec.ID, rec.UserID, rec.TrackSlug, rec.Category, rec.ExerciseSlug,
		rec.LanguageID, rec.SourceCode, status, outcome, results,
		rec.CreatedAt.UTC(), rec.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert submission: %w", err)
	}
	return nil
}

// GetSubmission retrieves a submission by ID
func (s *Store) GetSubmission(ctx context.Context, id string) (*domain.SubmissionRecord, error) {
	query := `
		SELECT id, user_id, track_slug, category, exercise_slug, language_id,
			source_code, outcome, created_at, completed_at
		FROM submissions WHERE id = $1
	`
	rec, err := scanSubmission(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrSubmissionNotFound, id)
	}
	return rec, err
}

// ListSubmissions returns matching submissions, newest first
func (s *Store) ListSubmissions(ctx context.Context, filter storage.SubmissionFilter) ([]*domain.SubmissionRecord, error) {
	var where []string
	var args []any
	add := func(column, value string) {
		args = append(args, value)
		where = append(where, column+" = $"+strconv.Itoa(len(args)))
	}
	if filter.UserID != "" {
		add("user_id", filter.UserID)
	}
	if filter.TrackSlug != "" {
		add("track_slug", filter.TrackSlug)
	}
	if filter.ExerciseSlug != "" {
		add("exercise_slug", filter.ExerciseSlug)
	}

	query := `
		SELECT id, user_id, track_slug, category, exercise_slug, language_id,
			source_code, outcome, created_at, completed_at
		FROM submissions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, filter.EffectiveLimit())
	query += " ORDER BY created_at DESC LIMIT $" + strconv.Itoa(len(args))

	rows, err := s.pool.Query(ctx, query, args...)
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

// SaveProgress upserts a progress entry without downgrading completion
func (s *Store) SaveProgress(ctx context.Context, entry *domain.ProgressEntry) error {
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = time.Now()
	}
	entry = storage.MergeProgress(nil, entry)

	query := `
		INSERT INTO progress (user_id, track_slug, category, exercise_slug, status, completed_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, track_slug, category, exercise_slug) DO UPDATE SET
			status = CASE WHEN progress.status = 'completed' THEN 'completed' ELSE EXCLUDED.status END,
			completed_at = COALESCE(progress.completed_at, EXCLUDED.completed_at),
			updated_at = EXCLUDED.updated_at
	`
	_, err := s.pool.Exec(ctx, query,
		entry.UserID, entry.TrackSlug, entry.Category, entry.ExerciseSlug,
		string(entry.Status), entry.CompletedAt, entry.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert progress: %w", err)
	}
	return nil
}

// ListProgress returns a user's progress, optionally for one track
func (s *Store) ListProgress(ctx context.Context, userID, track string) ([]*domain.ProgressEntry, error) {
	query := `
		SELECT user_id, track_slug, category, exercise_slug, status, completed_at, updated_at
		FROM progress WHERE user_id = $1`
	args := []any{userID}
	if track != "" {
		query += " AND track_slug = $2"
		args = append(args, track)
	}
	query += " ORDER BY track_slug, category, exercise_slug"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	defer rows.Close()

	entries := make([]*domain.ProgressEntry, 0)
	for rows.Next() {
		var e domain.ProgressEntry
		var status string
		if err := rows.Scan(&e.UserID, &e.TrackSlug, &e.Category, &e.ExerciseSlug,
			&status, &e.CompletedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan progress row: %w", err)
		}
		e.Status = domain.ProgressStatus(status)
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func scanSubmission(row pgx.Row) (*domain.SubmissionRecord, error) {
	var rec domain.SubmissionRecord
	var outcome pqtype.NullRawMessage

	err := row.Scan(
		&rec.ID, &rec.UserID, &rec.TrackSlug, &rec.Category, &rec.ExerciseSlug,
		&rec.LanguageID, &rec.SourceCode, &outcome, &rec.CreatedAt, &rec.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan submission: %w", err)
	}

	if outcome.Valid {
		rec.Outcome = &domain.SubmissionOutcome{}
		if err := json.Unmarshal(outcome.RawMessage, rec.Outcome); err != nil {
			return nil, fmt.Errorf("unmarshal outcome: %w", err)
		}
	}
	return &rec, nil
}
