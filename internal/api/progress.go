package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/felixgeelhaar/codeeasy/internal/api/middleware"
	"github.com/felixgeelhaar/codeeasy/internal/domain"
)

// CompleteRequest marks an exercise completed
type CompleteRequest struct {
	TrackSlug    string `json:"trackSlug"`
	Category     string `json:"category"`
	ExerciseSlug string `json:"exerciseSlug"`
}

// requireProgress checks the store and caller identity shared by the
// progress routes.
func (r *Router) requireProgress(w http.ResponseWriter, req *http.Request) (string, bool) {
	if r.cfg.Store == nil {
		ServiceUnavailable(w, req, "progress tracking is disabled", nil)
		return "", false
	}
	userID, ok := middleware.GetUserID(req.Context())
	if !ok {
		WriteError(w, req, http.StatusUnauthorized,
			NewAPIError("UNAUTHORIZED", middleware.UserIDHeader+" header required"))
		return "", false
	}
	return userID, true
}

func (r *Router) handleCompleteProgress(w http.ResponseWriter, req *http.Request) {
	userID, ok := r.requireProgress(w, req)
	if !ok {
		return
	}

	var body CompleteRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		BadRequest(w, req, "invalid request body")
		return
	}
	if body.Category == "" {
		body.Category = "practice"
	}
	for _, f := range []struct{ name, value string }{
		{"trackSlug", body.TrackSlug},
		{"category", body.Category},
		{"exerciseSlug", body.ExerciseSlug},
	} {
		if !domain.ValidSlug(f.value) {
			ValidationFailed(w, req, &domain.ValidationError{Field: f.name, Message: "must be a valid slug"})
			return
		}
	}

	now := time.Now().UTC()
	entry := &domain.ProgressEntry{
		UserID:       userID,
		TrackSlug:    body.TrackSlug,
		Category:     body.Category,
		ExerciseSlug: body.ExerciseSlug,
		Status:       domain.ProgressCompleted,
		CompletedAt:  &now,
		UpdatedAt:    now,
	}
	if err := r.cfg.Store.SaveProgress(req.Context(), entry); err != nil {
		InternalError(w, req, "failed to save progress", err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    entry,
	})
}

func (r *Router) handleListProgress(w http.ResponseWriter, req *http.Request) {
	userID, ok := r.requireProgress(w, req)
	if !ok {
		return
	}

	entries, err := r.cfg.Store.ListProgress(req.Context(), userID, req.URL.Query().Get("track"))
	if err != nil {
		InternalError(w, req, "failed to load progress", err)
		return
	}
	if entries == nil {
		entries = []*domain.ProgressEntry{}
	}

	completed := 0
	for _, e := range entries {
		if e.Status == domain.ProgressCompleted {
			completed++
		}
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"data":      entries,
		"completed": completed,
	})
}
