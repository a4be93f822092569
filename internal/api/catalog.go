package api

import (
	"net/http"

	"github.com/felixgeelhaar/codeeasy/internal/domain"
)

// validPath rejects path values that are not single slugs.
func validPath(w http.ResponseWriter, r *http.Request, names ...string) bool {
	for _, name := range names {
		if !domain.ValidSlug(r.PathValue(name)) {
			BadRequest(w, r, "invalid "+name)
			return false
		}
	}
	return true
}

func (r *Router) handleListTracks(w http.ResponseWriter, req *http.Request) {
	tracks, err := r.cfg.Catalog.Tracks()
	if err != nil {
		InternalError(w, req, "failed to list tracks", err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"tracks":  tracks,
		"total":   len(tracks),
	})
}

func (r *Router) handleTrackConfig(w http.ResponseWriter, req *http.Request) {
	if !validPath(w, req, "track") {
		return
	}

	config, err := r.cfg.Catalog.TrackConfig(req.PathValue("track"))
	if err != nil {
		catalogError(w, req, "track", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(config)
}

func (r *Router) handleTrackAbout(w http.ResponseWriter, req *http.Request) {
	if !validPath(w, req, "track") {
		return
	}

	track := req.PathValue("track")
	about, err := r.cfg.Catalog.TrackAbout(track)
	if err != nil {
		catalogError(w, req, "track about", err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"track":   track,
		"content": about,
	})
}

func (r *Router) handleCategories(w http.ResponseWriter, req *http.Request) {
	if !validPath(w, req, "track") {
		return
	}

	track := req.PathValue("track")
	categories, err := r.cfg.Catalog.Categories(track)
	if err != nil {
		catalogError(w, req, "track", err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"track":      track,
		"categories": categories,
	})
}

func (r *Router) handleListExercises(w http.ResponseWriter, req *http.Request) {
	if !validPath(w, req, "track", "category") {
		return
	}

	track, category := req.PathValue("track"), req.PathValue("category")
	exercises, err := r.cfg.Catalog.Exercises(track, category)
	if err != nil {
		catalogError(w, req, "category", err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"track":     track,
		"category":  category,
		"exercises": exercises,
		"total":     len(exercises),
	})
}

func (r *Router) handleGetExercise(w http.ResponseWriter, req *http.Request) {
	if !validPath(w, req, "track", "category", "slug") {
		return
	}

	track, category := req.PathValue("track"), req.PathValue("category")
	ex, err := r.cfg.Catalog.Exercise(track, category, req.PathValue("slug"))
	if err != nil {
		catalogError(w, req, "exercise", err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"track":    track,
		"category": category,
		"exercise": ex,
	})
}

func (r *Router) handleListConcepts(w http.ResponseWriter, req *http.Request) {
	if !validPath(w, req, "track") {
		return
	}

	track := req.PathValue("track")
	concepts, err := r.cfg.Catalog.Concepts(track)
	if err != nil {
		catalogError(w, req, "track", err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"track":    track,
		"concepts": concepts,
	})
}

func (r *Router) handleGetConcept(w http.ResponseWriter, req *http.Request) {
	if !validPath(w, req, "track", "slug") {
		return
	}

	track := req.PathValue("track")
	concept, err := r.cfg.Catalog.Concept(track, req.PathValue("slug"))
	if err != nil {
		catalogError(w, req, "concept", err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"track":   track,
		"concept": concept,
	})
}
