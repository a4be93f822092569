package exercise

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/felixgeelhaar/codeeasy/internal/domain"
)

// Categories tried, in order, after the requested one.
var fallbackCategories = []string{"practice", "concept"}

// frameworkDir holds a bundled assertion library when an exercise ships one.
const frameworkDir = "test-framework"

// Query identifies an exercise and the language conventions used to find
// its fixture files.
type Query struct {
	Track     string
	Category  string
	Slug      string
	Extension string // e.g. ".js"; selects the fallback test file names
	Header    bool   // resolve <snake_slug>.h as well
}

// Fixture holds the test-side files of one exercise. Absent files are
// represented by empty strings.
type Fixture struct {
	Dir           string
	Category      string // category the exercise was actually found in
	TestFile      string // path relative to Dir, "" when no test file exists
	TestContent   string
	HeaderFile    string
	HeaderContent string
	Framework     []domain.SourceFile
	Meta          MetaConfig
}

// HasTests reports whether a test file was found.
func (f *Fixture) HasTests() bool {
	return f.TestFile != ""
}

// FrameworkFile returns a bundled test-framework file by name.
func (f *Fixture) FrameworkFile(name string) (domain.SourceFile, bool) {
	for _, file := range f.Framework {
		if file.Name == name {
			return file, true
		}
	}
	return domain.SourceFile{}, false
}

// SolutionFile returns the first expanded solution pattern with the given
// extension, or "" when none is declared.
func (f *Fixture) SolutionFile(slug, ext string) string {
	for _, pattern := range f.Meta.Files.Solution {
		name := ExpandPattern(pattern, slug)
		if strings.HasSuffix(name, ext) {
			return filepath.Base(name)
		}
	}
	return ""
}

// Locator resolves exercise fixtures under a content root laid out as
// <root>/<track>/exercises/<category>/<slug>/. It never writes.
type Locator struct {
	root   string
	logger *slog.Logger
}

// NewLocator creates a locator rooted at root.
func NewLocator(root string, logger *slog.Logger) *Locator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Locator{root: root, logger: logger}
}

// Root returns the content root directory.
func (l *Locator) Root() string {
	return l.root
}

// ResolveDir finds the exercise directory, trying the requested category
// first and then the fallback categories.
func (l *Locator) ResolveDir(track, category, slug string) (dir, resolved string, err error) {
	if !domain.ValidSlug(track) || !domain.ValidSlug(slug) || (category != "" && !domain.ValidSlug(category)) {
		return "", "", fmt.Errorf("%w: %s/%s/%s", domain.ErrExerciseNotFound, track, category, slug)
	}

	candidates := make([]string, 0, 3)
	if category != "" {
		candidates = append(candidates, category)
	}
	for _, c := range fallbackCategories {
		if c != category {
			candidates = append(candidates, c)
		}
	}

	for _, c := range candidates {
		dir := filepath.Join(l.root, track, "exercises", c, slug)
		if isDir(dir) {
			return dir, c, nil
		}
	}
	return "", "", fmt.Errorf("%w: %s/%s/%s", domain.ErrExerciseNotFound, track, category, slug)
}

// Locate resolves and reads the fixture for q.
func (l *Locator) Locate(q Query) (*Fixture, error) {
	dir, category, err := l.ResolveDir(q.Track, q.Category, q.Slug)
	if err != nil {
		return nil, err
	}

	meta, err := loadMeta(dir)
	if err != nil {
		// Metadata is optional; a broken file degrades to the fixed names.
		l.logger.Warn("ignoring exercise metadata", "dir", dir, "error", err)
	}

	fx := &Fixture{
		Dir:      dir,
		Category: category,
		Meta:     meta,
	}

	if err := l.readTestFile(fx, q); err != nil {
		return nil, err
	}

	if q.Header {
		name := SnakeSlug(q.Slug) + ".h"
		content, ok, err := readOptional(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read header file: %w", err)
		}
		if ok {
			fx.HeaderFile = name
			fx.HeaderContent = content
		}
	}

	framework, err := readFramework(filepath.Join(dir, frameworkDir))
	if err != nil {
		return nil, fmt.Errorf("read test framework: %w", err)
	}
	fx.Framework = framework

	return fx, nil
}

func (l *Locator) readTestFile(fx *Fixture, q Query) error {
	for _, name := range testCandidates(fx.Meta, q) {
		path := filepath.Join(fx.Dir, name)
		if !within(fx.Dir, path) || !isFile(path) {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read test file: %w", err)
		}
		fx.TestFile = name
		fx.TestContent = string(data)
		return nil
	}
	return nil
}

// testCandidates lists metadata patterns first, then the fixed names.
func testCandidates(meta MetaConfig, q Query) []string {
	names := make([]string, 0, len(meta.Files.Test)+4)
	for _, pattern := range meta.Files.Test {
		names = append(names, ExpandPattern(pattern, q.Slug))
	}
	if q.Extension == "" {
		return names
	}

	kebab, snake := KebabSlug(q.Slug), SnakeSlug(q.Slug)
	return append(names,
		kebab+".spec"+q.Extension,
		kebab+".test"+q.Extension,
		"test_"+snake+q.Extension,
		snake+"_test"+q.Extension,
	)
}

func readFramework(dir string) ([]domain.SourceFile, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var files []domain.SourceFile
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		files = append(files, domain.SourceFile{Name: entry.Name(), Content: string(data)})
	}
	return files, nil
}

// within reports whether path stays inside dir.
func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
