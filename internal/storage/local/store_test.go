package local

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/felixgeelhaar/codeeasy/internal/domain"
	"github.com/felixgeelhaar/codeeasy/internal/storage"
)

func TestNewStore_CreatesDirectory(t *testing.T) {
	newDir := filepath.Join(t.TempDir(), "subdir", "nested")

	store, err := NewStore(newDir)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if store.basePath != newDir {
		t.Errorf("basePath = %v, want %v", store.basePath, newDir)
	}

	info, err := os.Stat(newDir)
	if err != nil {
		t.Fatalf("directory not created: %v", err)
	}
	if !info.IsDir() {
		t.Error("expected directory, got file")
	}
}

func newRecord(id, user, track string, created time.Time) *domain.SubmissionRecord {
	return &domain.SubmissionRecord{
		ID:           id,
		UserID:       user,
		TrackSlug:    track,
		ExerciseSlug: "two-fer",
		LanguageID:   63,
		SourceCode:   "x",
		CreatedAt:    created,
	}
}

func TestStore_Submissions(t *testing.T) {
	store, _ := NewStore(t.TempDir())
	ctx := context.Background()
	base := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	_ = store.SaveSubmission(ctx, newRecord("a", "u1", "javascript", base))
	_ = store.SaveSubmission(ctx, newRecord("b", "u2", "python", base.Add(time.Minute)))
	_ = store.SaveSubmission(ctx, newRecord("c", "u1", "javascript", base.Add(2*time.Minute)))

	got, err := store.GetSubmission(ctx, "b")
	if err != nil {
		t.Fatalf("GetSubmission() error = %v", err)
	}
	if got.TrackSlug != "python" || !got.Pending() {
		t.Errorf("record = %+v", got)
	}

	list, err := store.ListSubmissions(ctx, storage.SubmissionFilter{UserID: "u1"})
	if err != nil {
		t.Fatalf("ListSubmissions() error = %v", err)
	}
	if len(list) != 2 || list[0].ID != "c" || list[1].ID != "a" {
		t.Errorf("ListSubmissions() = %v, want [c a]", ids(list))
	}

	limited, _ := store.ListSubmissions(ctx, storage.SubmissionFilter{Limit: 1})
	if len(limited) != 1 || limited[0].ID != "c" {
		t.Errorf("limited = %v", ids(limited))
	}
}

func TestStore_GetSubmission_NotFound(t *testing.T) {
	store, _ := NewStore(t.TempDir())

	for _, id := range []string{"missing", "../escape", ""} {
		if _, err := store.GetSubmission(context.Background(), id); !errors.Is(err, domain.ErrSubmissionNotFound) {
			t.Errorf("GetSubmission(%q) error = %v, want ErrSubmissionNotFound", id, err)
		}
	}
}

func TestStore_Progress(t *testing.T) {
	store, _ := NewStore(t.TempDir())
	ctx := context.Background()
	t0 := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	save := func(user, slug string, status domain.ProgressStatus, at time.Time) {
		t.Helper()
		err := store.SaveProgress(ctx, &domain.ProgressEntry{
			UserID: user, TrackSlug: "javascript", Category: "practice", ExerciseSlug: slug,
			Status: status, UpdatedAt: at,
		})
		if err != nil {
			t.Fatalf("SaveProgress() error = %v", err)
		}
	}

	save("user/1", "two-fer", domain.ProgressCompleted, t0)
	save("user/1", "two-fer", domain.ProgressInProgress, t0.Add(time.Hour))
	save("user/1", "leap", domain.ProgressInProgress, t0)
	save("user-2", "leap", domain.ProgressCompleted, t0)

	entries, err := store.ListProgress(ctx, "user/1", "javascript")
	if err != nil {
		t.Fatalf("ListProgress() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].ExerciseSlug != "leap" || entries[1].ExerciseSlug != "two-fer" {
		t.Errorf("order = %s, %s", entries[0].ExerciseSlug, entries[1].ExerciseSlug)
	}
	tf := entries[1]
	if tf.Status != domain.ProgressCompleted || tf.CompletedAt == nil || !tf.CompletedAt.Equal(t0) {
		t.Errorf("two-fer entry = %+v, want completed at t0", tf)
	}
	if !tf.UpdatedAt.Equal(t0.Add(time.Hour)) {
		t.Errorf("UpdatedAt = %v", tf.UpdatedAt)
	}
}

func TestStore_ConcurrentSaves(t *testing.T) {
	store, _ := NewStore(t.TempDir())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a' + i))
			if err := store.SaveSubmission(ctx, newRecord(id, "u", "javascript", time.Now())); err != nil {
				t.Errorf("SaveSubmission(%s) error = %v", id, err)
			}
		}(i)
	}
	wg.Wait()

	list, err := store.ListSubmissions(ctx, storage.SubmissionFilter{Limit: 100})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 20 {
		t.Errorf("records = %d, want 20", len(list))
	}
}

func ids(recs []*domain.SubmissionRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}
