package exercise

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/felixgeelhaar/codeeasy/internal/domain"
)

// TrackSummary is the listing view of a track.
type TrackSummary struct {
	Slug          string `json:"slug"`
	Name          string `json:"name"`
	Blurb         string `json:"blurb"`
	Active        bool   `json:"active"`
	ConceptCount  int    `json:"conceptCount"`
	ExerciseCount int    `json:"exerciseCount"`
}

// ConceptRef is a concept entry from a track's config.json.
type ConceptRef struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
	UUID string `json:"uuid"`
}

type trackConfig struct {
	Language  string       `json:"language"`
	Blurb     string       `json:"blurb"`
	Active    bool         `json:"active"`
	Concepts  []ConceptRef `json:"concepts"`
	Exercises struct {
		Concept  []json.RawMessage `json:"concept"`
		Practice []json.RawMessage `json:"practice"`
	} `json:"exercises"`
}

// ExerciseSummary is the listing view of an exercise.
type ExerciseSummary struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
	Blurb string `json:"blurb,omitempty"`
}

// ExerciseDetail is everything a client needs to render an exercise.
type ExerciseDetail struct {
	Track       string            `json:"track"`
	Category    string            `json:"category"`
	Slug        string            `json:"slug"`
	Title       string            `json:"title"`
	Blurb       string            `json:"blurb,omitempty"`
	Docs        map[string]string `json:"docs"`
	StarterCode map[string]string `json:"starter_code"`
	Tests       string            `json:"tests"`
	Source      string            `json:"source,omitempty"`
	SourceURL   string            `json:"source_url,omitempty"`
}

// ConceptDetail is the content of one concept.
type ConceptDetail struct {
	Slug         string          `json:"slug"`
	Title        string          `json:"title"`
	Blurb        string          `json:"blurb"`
	Authors      []string        `json:"authors"`
	About        string          `json:"about"`
	Introduction string          `json:"introduction"`
	Links        json.RawMessage `json:"links"`
}

var exerciseDocs = []string{"introduction", "instructions", "hints"}

// Catalog serves read-only track and exercise content.
type Catalog struct {
	locator *Locator
}

// NewCatalog creates a catalog over the locator's content root.
func NewCatalog(locator *Locator) *Catalog {
	return &Catalog{locator: locator}
}

func (c *Catalog) trackDir(track string) (string, error) {
	if !domain.ValidSlug(track) {
		return "", fmt.Errorf("%w: %s", domain.ErrTrackNotFound, track)
	}
	dir := filepath.Join(c.locator.Root(), track)
	if !isFile(filepath.Join(dir, "config.json")) {
		return "", fmt.Errorf("%w: %s", domain.ErrTrackNotFound, track)
	}
	return dir, nil
}

func (c *Catalog) loadTrackConfig(dir string) (*trackConfig, error) {
	data, err := os.ReadFile(filepath.Join(dir, "config.json"))
	if err != nil {
		return nil, fmt.Errorf("read track config: %w", err)
	}
	var cfg trackConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse track config: %w", err)
	}
	return &cfg, nil
}

// Tracks lists every directory under the root that has a config.json.
func (c *Catalog) Tracks() ([]TrackSummary, error) {
	entries, err := os.ReadDir(c.locator.Root())
	if err != nil {
		return nil, fmt.Errorf("read content root: %w", err)
	}

	tracks := make([]TrackSummary, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(c.locator.Root(), entry.Name())
		if !isFile(filepath.Join(dir, "config.json")) {
			continue
		}
		cfg, err := c.loadTrackConfig(dir)
		if err != nil {
			return nil, fmt.Errorf("track %s: %w", entry.Name(), err)
		}
		tracks = append(tracks, TrackSummary{
			Slug:          entry.Name(),
			Name:          cfg.Language,
			Blurb:         cfg.Blurb,
			Active:        cfg.Active,
			ConceptCount:  len(cfg.Concepts),
			ExerciseCount: len(cfg.Exercises.Concept) + len(cfg.Exercises.Practice),
		})
	}
	return tracks, nil
}

// TrackConfig returns the raw config.json of a track.
func (c *Catalog) TrackConfig(track string) (json.RawMessage, error) {
	dir, err := c.trackDir(track)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, "config.json"))
	if err != nil {
		return nil, fmt.Errorf("read track config: %w", err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("parse track config: invalid JSON in %s", track)
	}
	return json.RawMessage(data), nil
}

// TrackAbout returns docs/ABOUT.md of a track.
func (c *Catalog) TrackAbout(track string) (string, error) {
	dir, err := c.trackDir(track)
	if err != nil {
		return "", err
	}
	about, ok, err := readOptional(filepath.Join(dir, "docs", "ABOUT.md"))
	if err != nil {
		return "", fmt.Errorf("read track about: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("%w: about page for %s", domain.ErrTrackNotFound, track)
	}
	return about, nil
}

// Categories lists the exercise categories present for a track.
func (c *Catalog) Categories(track string) ([]string, error) {
	if !domain.ValidSlug(track) {
		return nil, fmt.Errorf("%w: %s", domain.ErrTrackNotFound, track)
	}
	entries, err := os.ReadDir(filepath.Join(c.locator.Root(), track, "exercises"))
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read exercises dir: %w", err)
	}

	categories := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			categories = append(categories, entry.Name())
		}
	}
	return categories, nil
}

// Exercises lists the exercises in one category, sorted by slug.
func (c *Catalog) Exercises(track, category string) ([]ExerciseSummary, error) {
	if !domain.ValidSlug(track) || !domain.ValidSlug(category) {
		return nil, fmt.Errorf("%w: %s/%s", domain.ErrCategoryNotFound, track, category)
	}
	dir := filepath.Join(c.locator.Root(), track, "exercises", category)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s/%s", domain.ErrCategoryNotFound, track, category)
	}
	if err != nil {
		return nil, fmt.Errorf("read category dir: %w", err)
	}

	exercises := make([]ExerciseSummary, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		summary := ExerciseSummary{Slug: entry.Name(), Title: entry.Name()}
		if meta, err := loadMeta(filepath.Join(dir, entry.Name())); err == nil {
			if meta.Title != "" {
				summary.Title = meta.Title
			}
			summary.Blurb = meta.Blurb
		}
		exercises = append(exercises, summary)
	}
	sort.Slice(exercises, func(i, j int) bool { return exercises[i].Slug < exercises[j].Slug })
	return exercises, nil
}

// Exercise returns the full detail view of an exercise.
func (c *Catalog) Exercise(track, category, slug string) (*ExerciseDetail, error) {
	dir, resolved, err := c.locator.ResolveDir(track, category, slug)
	if err != nil {
		return nil, err
	}

	meta, err := loadMeta(dir)
	if err != nil {
		return nil, err
	}

	detail := &ExerciseDetail{
		Track:       track,
		Category:    resolved,
		Slug:        slug,
		Title:       meta.Title,
		Blurb:       meta.Blurb,
		Docs:        make(map[string]string),
		StarterCode: make(map[string]string),
		Source:      meta.Source,
		SourceURL:   meta.SourceURL,
	}
	if detail.Title == "" {
		detail.Title = slug
	}

	for _, doc := range exerciseDocs {
		content, ok, err := readOptional(filepath.Join(dir, ".docs", doc+".md"))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", doc, err)
		}
		if ok {
			detail.Docs[doc] = content
		}
	}

	for _, pattern := range meta.Files.Solution {
		name := ExpandPattern(pattern, slug)
		path := filepath.Join(dir, name)
		if !within(dir, path) {
			continue
		}
		content, ok, err := readOptional(path)
		if err != nil {
			return nil, fmt.Errorf("read starter code: %w", err)
		}
		if ok {
			detail.StarterCode[name] = content
		}
	}

	// The last existing test pattern wins, matching how clients render a single file.
	for _, pattern := range meta.Files.Test {
		path := filepath.Join(dir, ExpandPattern(pattern, slug))
		if !within(dir, path) {
			continue
		}
		if content, ok, err := readOptional(path); err == nil && ok {
			detail.Tests = content
		}
	}

	return detail, nil
}

// Concepts lists the concepts declared in a track's config.json.
func (c *Catalog) Concepts(track string) ([]ConceptRef, error) {
	dir, err := c.trackDir(track)
	if err != nil {
		return nil, err
	}
	cfg, err := c.loadTrackConfig(dir)
	if err != nil {
		return nil, err
	}
	if cfg.Concepts == nil {
		return []ConceptRef{}, nil
	}
	return cfg.Concepts, nil
}

// Concept returns the content of <track>/concepts/<slug>.
func (c *Catalog) Concept(track, slug string) (*ConceptDetail, error) {
	if !domain.ValidSlug(track) || !domain.ValidSlug(slug) {
		return nil, fmt.Errorf("%w: %s/%s", domain.ErrConceptNotFound, track, slug)
	}
	dir := filepath.Join(c.locator.Root(), track, "concepts", slug)
	if !isDir(dir) {
		return nil, fmt.Errorf("%w: %s/%s", domain.ErrConceptNotFound, track, slug)
	}

	detail := &ConceptDetail{Slug: slug, Title: slug, Authors: []string{}, Links: json.RawMessage("[]")}

	meta, err := loadMeta(dir)
	if err != nil {
		return nil, err
	}
	if meta.Title != "" {
		detail.Title = meta.Title
	}
	detail.Blurb = meta.Blurb
	if meta.Authors != nil {
		detail.Authors = meta.Authors
	}

	if detail.About, _, err = readOptional(filepath.Join(dir, "about.md")); err != nil {
		return nil, fmt.Errorf("read concept about: %w", err)
	}
	if detail.Introduction, _, err = readOptional(filepath.Join(dir, "introduction.md")); err != nil {
		return nil, fmt.Errorf("read concept introduction: %w", err)
	}
	links, ok, err := readOptional(filepath.Join(dir, "links.json"))
	if err != nil {
		return nil, fmt.Errorf("read concept links: %w", err)
	}
	if ok && json.Valid([]byte(links)) {
		detail.Links = json.RawMessage(strings.TrimSpace(links))
	}

	return detail, nil
}
