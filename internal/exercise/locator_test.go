package exercise

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/felixgeelhaar/codeeasy/internal/domain"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func TestLocator_ResolveDir(t *testing.T) {
	root := t.TempDir()
	os.MkdirAll(filepath.Join(root, "javascript", "exercises", "practice", "two-fer"), 0755)
	os.MkdirAll(filepath.Join(root, "javascript", "exercises", "concept", "lasagna"), 0755)

	loc := NewLocator(root, nil)

	tests := []struct {
		name         string
		category     string
		slug         string
		wantCategory string
		wantErr      bool
	}{
		{name: "exact category", category: "practice", slug: "two-fer", wantCategory: "practice"},
		{name: "empty category falls back to practice", category: "", slug: "two-fer", wantCategory: "practice"},
		{name: "wrong category falls back", category: "concept", slug: "two-fer", wantCategory: "practice"},
		{name: "unknown category falls back to concept", category: "bogus", slug: "lasagna", wantCategory: "concept"},
		{name: "missing exercise", category: "practice", slug: "nope", wantErr: true},
		{name: "traversal rejected", category: "..", slug: "two-fer", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir, category, err := loc.ResolveDir("javascript", tc.category, tc.slug)
			if tc.wantErr {
				if !errors.Is(err, domain.ErrExerciseNotFound) {
					t.Fatalf("error = %v, want ErrExerciseNotFound", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveDir() error = %v", err)
			}
			if category != tc.wantCategory {
				t.Errorf("category = %q, want %q", category, tc.wantCategory)
			}
			if filepath.Base(dir) != tc.slug {
				t.Errorf("dir = %q", dir)
			}
		})
	}
}

func TestLocator_Locate_MetaPatterns(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "javascript", "exercises", "practice", "two-fer")
	writeFile(t, filepath.Join(dir, ".meta", "config.json"),
		`{"title":"Two Fer","files":{"solution":["%{kebab_slug}.js"],"test":["missing.js","%{kebab_slug}.spec.js"]}}`)
	writeFile(t, filepath.Join(dir, "two-fer.spec.js"), "test('x', () => {});")
	writeFile(t, filepath.Join(dir, "two-fer.test.js"), "should not be picked")

	fx, err := NewLocator(root, nil).Locate(Query{Track: "javascript", Category: "practice", Slug: "two-fer", Extension: ".js"})
	if err != nil {
		t.Fatalf("Locate() error = %v", err)
	}
	if fx.TestFile != "two-fer.spec.js" {
		t.Errorf("TestFile = %q", fx.TestFile)
	}
	if fx.TestContent != "test('x', () => {});" {
		t.Errorf("TestContent = %q", fx.TestContent)
	}
	if fx.Meta.Title != "Two Fer" {
		t.Errorf("Meta.Title = %q", fx.Meta.Title)
	}
	if got := fx.SolutionFile("two-fer", ".js"); got != "two-fer.js" {
		t.Errorf("SolutionFile() = %q", got)
	}
}

func TestLocator_Locate_FallbackNames(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "c", "exercises", "practice", "two-fer")
	writeFile(t, filepath.Join(dir, "test_two_fer.c"), "int main(void) { return 0; }")
	writeFile(t, filepath.Join(dir, "two_fer.h"), "#ifndef TWO_FER_H\n#endif\n")
	writeFile(t, filepath.Join(dir, "test-framework", "unity.h"), "/* unity.h */")
	writeFile(t, filepath.Join(dir, "test-framework", "unity.c"), "/* unity.c */")

	fx, err := NewLocator(root, nil).Locate(Query{Track: "c", Slug: "two-fer", Extension: ".c", Header: true})
	if err != nil {
		t.Fatalf("Locate() error = %v", err)
	}
	if fx.TestFile != "test_two_fer.c" {
		t.Errorf("TestFile = %q", fx.TestFile)
	}
	if fx.HeaderFile != "two_fer.h" || fx.HeaderContent == "" {
		t.Errorf("header = %q (%d bytes)", fx.HeaderFile, len(fx.HeaderContent))
	}
	if len(fx.Framework) != 2 {
		t.Fatalf("Framework = %d files, want 2", len(fx.Framework))
	}
	if _, ok := fx.FrameworkFile("unity.c"); !ok {
		t.Error("unity.c should be bundled")
	}
}

func TestLocator_Locate_IncompleteFixture(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "c", "exercises", "practice", "hello-world")
	os.MkdirAll(dir, 0755)
	writeFile(t, filepath.Join(dir, ".meta", "config.json"), "{not json")

	fx, err := NewLocator(root, nil).Locate(Query{Track: "c", Slug: "hello-world", Extension: ".c", Header: true})
	if err != nil {
		t.Fatalf("Locate() error = %v", err)
	}
	if fx.HasTests() || fx.TestContent != "" {
		t.Error("missing test file should yield empty content")
	}
	if fx.HeaderFile != "" || fx.HeaderContent != "" {
		t.Error("missing header should yield empty content")
	}
	if fx.Framework != nil {
		t.Error("missing framework dir should yield no files")
	}
}

func TestLocator_Locate_RejectsEscapingPatterns(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "javascript", "exercises", "practice", "leap")
	writeFile(t, filepath.Join(root, "secret.js"), "secret")
	writeFile(t, filepath.Join(dir, ".meta", "config.json"), `{"files":{"test":["../../../../secret.js"]}}`)

	fx, err := NewLocator(root, nil).Locate(Query{Track: "javascript", Slug: "leap", Extension: ".js"})
	if err != nil {
		t.Fatalf("Locate() error = %v", err)
	}
	if fx.TestContent != "" {
		t.Errorf("pattern escaping the exercise dir was read: %q", fx.TestContent)
	}
}

func TestLocator_Locate_Idempotent(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "javascript", "exercises", "practice", "two-fer")
	writeFile(t, filepath.Join(dir, "two-fer.spec.js"), "describe('x', () => {});\n")

	loc := NewLocator(root, nil)
	q := Query{Track: "javascript", Slug: "two-fer", Extension: ".js"}

	first, err := loc.Locate(q)
	if err != nil {
		t.Fatalf("Locate() error = %v", err)
	}
	second, err := loc.Locate(q)
	if err != nil {
		t.Fatalf("Locate() error = %v", err)
	}
	if first.TestContent != second.TestContent || first.TestFile != second.TestFile {
		t.Error("repeated Locate() should return identical content")
	}
}

func TestLocator_Locate_NotFound(t *testing.T) {
	_, err := NewLocator(t.TempDir(), nil).Locate(Query{Track: "javascript", Slug: "ghost", Extension: ".js"})
	if !errors.Is(err, domain.ErrExerciseNotFound) {
		t.Fatalf("error = %v, want ErrExerciseNotFound", err)
	}
}
