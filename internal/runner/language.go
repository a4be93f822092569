package runner

import (
	"sort"
	"strings"

	"github.com/felixgeelhaar/codeeasy/internal/domain"
)

// Judge language IDs used by the assemblers.
const (
	LanguageIDC          = 50
	LanguageIDJavaScript = 63
	LanguageIDPython     = 71
)

// DefaultLanguageProfiles returns the judge languages known to the service.
func DefaultLanguageProfiles() []domain.LanguageProfile {
	return []domain.LanguageProfile{
		{ID: 50, Name: "c", Version: "10.2.0", Extension: ".c"},
		{ID: 54, Name: "cpp", Version: "10.2.0", Extension: ".cpp"},
		{ID: 63, Name: "javascript", Version: "18.15.0", Extension: ".js"},
		{ID: 71, Name: "python", Version: "3.10.0", Extension: ".py"},
		{ID: 62, Name: "java", Version: "15.0.2", Extension: ".java"},
		{ID: 72, Name: "ruby", Version: "3.0.1", Extension: ".rb"},
		{ID: 74, Name: "typescript", Version: "5.0.3", Extension: ".ts"},
		{ID: 60, Name: "go", Version: "1.16.2", Extension: ".go"},
		{ID: 73, Name: "rust", Version: "1.68.2", Extension: ".rs"},
		{ID: 51, Name: "csharp", Version: "6.12.0", Extension: ".cs"},
		{ID: 68, Name: "php", Version: "8.2.3", Extension: ".php"},
		{ID: 83, Name: "swift", Version: "5.3.3", Extension: ".swift"},
		{ID: 78, Name: "kotlin", Version: "1.8.20", Extension: ".kt"},
		{ID: 81, Name: "scala", Version: "3.2.2", Extension: ".scala"},
		{ID: 57, Name: "elixir", Version: "1.11.3", Extension: ".ex"},
		{ID: 61, Name: "haskell", Version: "9.0.1", Extension: ".hs"},
		{ID: 64, Name: "lua", Version: "5.4.4", Extension: ".lua"},
		{ID: 80, Name: "rscript", Version: "4.1.1", Extension: ".r"},
		{ID: 85, Name: "perl", Version: "5.36.0", Extension: ".pl"},
		{ID: 46, Name: "bash", Version: "5.2.0", Extension: ".sh"},
		{ID: 90, Name: "dart", Version: "2.19.6", Extension: ".dart"},
	}
}

// trackAliases maps track slugs that differ from judge language names.
var trackAliases = map[string]string{
	"cplusplus": "cpp",
	"js":        "javascript",
	"node":      "javascript",
	"py":        "python",
	"python3":   "python",
	"golang":    "go",
	"r":         "rscript",
	"shell":     "bash",
}

// LanguageTable is an immutable lookup of judge languages, built once at
// startup and shared by every submission.
type LanguageTable struct {
	byID   map[int]domain.LanguageProfile
	byName map[string]domain.LanguageProfile
	ids    []int
}

// NewLanguageTable builds a table from profiles. Later duplicates win.
func NewLanguageTable(profiles []domain.LanguageProfile) *LanguageTable {
	t := &LanguageTable{
		byID:   make(map[int]domain.LanguageProfile, len(profiles)),
		byName: make(map[string]domain.LanguageProfile, len(profiles)),
	}
	for _, p := range profiles {
		if _, dup := t.byID[p.ID]; !dup {
			t.ids = append(t.ids, p.ID)
		}
		t.byID[p.ID] = p
		t.byName[p.Name] = p
	}
	sort.Ints(t.ids)
	return t
}

// DefaultLanguageTable returns a table over DefaultLanguageProfiles.
func DefaultLanguageTable() *LanguageTable {
	return NewLanguageTable(DefaultLanguageProfiles())
}

// Lookup returns the profile for a judge language ID.
func (t *LanguageTable) Lookup(id int) (domain.LanguageProfile, bool) {
	p, ok := t.byID[id]
	return p, ok
}

// ForTrack resolves a track slug to a profile by language name.
func (t *LanguageTable) ForTrack(track string) (domain.LanguageProfile, bool) {
	name := strings.ToLower(track)
	if alias, ok := trackAliases[name]; ok {
		name = alias
	}
	p, ok := t.byName[name]
	return p, ok
}

// IDs returns every known ID in ascending order.
func (t *LanguageTable) IDs() []int {
	out := make([]int, len(t.ids))
	copy(out, t.ids)
	return out
}

// Profiles returns every profile ordered by ID.
func (t *LanguageTable) Profiles() []domain.LanguageProfile {
	out := make([]domain.LanguageProfile, 0, len(t.ids))
	for _, id := range t.ids {
		out = append(out, t.byID[id])
	}
	return out
}
