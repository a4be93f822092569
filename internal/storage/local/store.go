// Package local is a JSON file store for single-user setups: one file per
// record under <base>/<collection>/<id>.json.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/felixgeelhaar/codeeasy/internal/domain"
	"github.com/felixgeelhaar/codeeasy/internal/storage"
)

const (
	submissionsCollection = "submissions"
	progressCollection    = "progress"
)

var _ storage.Store = (*Store)(nil)

// Store provides thread-safe JSON file storage
type Store struct {
	basePath string
	mu       sync.RWMutex
}

// NewStore creates a new local JSON store
func NewStore(basePath string) (*Store, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &Store{basePath: basePath}, nil
}

// Close is a no-op
func (s *Store) Close() error {
	return nil
}

// SaveSubmission writes the record, replacing any previous version.
func (s *Store) SaveSubmission(_ context.Context, rec *domain.SubmissionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(submissionsCollection, rec.ID, rec)
}

// GetSubmission reads one record.
func (s *Store) GetSubmission(_ context.Context, id string) (*domain.SubmissionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rec domain.SubmissionRecord
	if err := s.load(submissionsCollection, id, &rec); err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidID) {
			return nil, fmt.Errorf("%w: %s", domain.ErrSubmissionNotFound, id)
		}
		return nil, err
	}
	return &rec, nil
}

// ListSubmissions scans every record. Fine for the volumes a local
// install produces.
func (s *Store) ListSubmissions(_ context.Context, filter storage.SubmissionFilter) ([]*domain.SubmissionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids, err := s.list(submissionsCollection)
	if err != nil {
		return nil, err
	}

	recs := make([]*domain.SubmissionRecord, 0, len(ids))
	for _, id := range ids {
		var rec domain.SubmissionRecord
		if err := s.load(submissionsCollection, id, &rec); err != nil {
			return nil, err
		}
		if filter.Matches(&rec) {
			recs = append(recs, &rec)
		}
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].CreatedAt.After(recs[j].CreatedAt)
	})
	if limit := filter.EffectiveLimit(); len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

// SaveProgress upserts an entry without downgrading completion.
func (s *Store) SaveProgress(_ context.Context, entry *domain.ProgressEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = time.Now()
	}

	key := progressKey(entry)
	var existing domain.ProgressEntry
	switch err := s.load(progressCollection, key, &existing); {
	case err == nil:
		return s.save(progressCollection, key, storage.MergeProgress(&existing, entry))
	case errors.Is(err, ErrNotFound):
		return s.save(progressCollection, key, storage.MergeProgress(nil, entry))
	default:
		return err
	}
}

// ListProgress returns a user's entries, optionally for one track.
func (s *Store) ListProgress(_ context.Context, userID, track string) ([]*domain.ProgressEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys, err := s.list(progressCollection)
	if err != nil {
		return nil, err
	}

	entries := make([]*domain.ProgressEntry, 0)
	for _, key := range keys {
		var e domain.ProgressEntry
		if err := s.load(progressCollection, key, &e); err != nil {
			return nil, err
		}
		if e.UserID == userID && (track == "" || e.TrackSlug == track) {
			entries = append(entries, &e)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return progressKey(entries[i]) < progressKey(entries[j])
	})
	return entries, nil
}

func progressKey(e *domain.ProgressEntry) string {
	return strings.Join([]string{
		url.PathEscape(e.UserID), e.TrackSlug, e.Category, e.ExerciseSlug,
	}, "~")
}

// save writes data atomically through a temp file. Callers hold the lock.
func (s *Store) save(collection, id string, data any) error {
	path, err := s.path(collection, id)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create collection directory: %w", err)
	}

	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, encoded, 0644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename file: %w", err)
	}
	return nil
}

// load reads a JSON record. Callers hold the lock.
func (s *Store) load(collection, id string, data any) error {
	path, err := s.path(collection, id)
	if err != nil {
		return err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("read file: %w", err)
	}
	if err := json.Unmarshal(raw, data); err != nil {
		return fmt.Errorf("decode json %s: %w", filepath.Base(path), err)
	}
	return nil
}

// list returns all record IDs in a collection.
func (s *Store) list(collection string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.basePath, collection))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("read directory: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	return ids, nil
}

func (s *Store) path(collection, id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return filepath.Join(s.basePath, collection, id+".json"), nil
}
