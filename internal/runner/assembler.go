package runner

import (
	"fmt"
	"sort"
	"time"

	"github.com/felixgeelhaar/codeeasy/internal/domain"
	"github.com/felixgeelhaar/codeeasy/internal/exercise"
)

// OutputFormat selects the normalizer rules applied to a language's output.
type OutputFormat int

const (
	// FormatRunner is the "TEST: <name> - PASS|FAIL" format emitted by the
	// generated runners.
	FormatRunner OutputFormat = iota
	// FormatUnity is the "<file>:<line>:<name>:PASS|FAIL" format of the
	// Unity assertion framework.
	FormatUnity
)

// String returns the format name
func (f OutputFormat) String() string {
	switch f {
	case FormatRunner:
		return "runner"
	case FormatUnity:
		return "unity"
	default:
		return "unknown"
	}
}

// AssembleInput is what an assembler merges into a payload.
type AssembleInput struct {
	Slug     string
	UserCode string
	Stdin    string
	Fixture  *exercise.Fixture
}

// Assembler merges user code with an exercise fixture for one language.
type Assembler interface {
	// LanguageID returns the judge language this assembler handles
	LanguageID() int

	// NeedsHeader reports whether the fixture header file is required
	NeedsHeader() bool

	// Format returns the output format produced by the assembled program
	Format() OutputFormat

	// Assemble builds the judge payload
	Assemble(in AssembleInput) (*domain.Payload, error)
}

// AssemblerOptions holds per-language execution limits.
type AssemblerOptions struct {
	CompileTimeout time.Duration
	RunTimeout     time.Duration
}

// DefaultAssemblerOptions returns the limits used for compiled exercises.
func DefaultAssemblerOptions() AssemblerOptions {
	return AssemblerOptions{
		CompileTimeout: 10 * time.Second,
		RunTimeout:     3 * time.Second,
	}
}

// AssemblerRegistry manages language assemblers
type AssemblerRegistry struct {
	assemblers map[int]Assembler
}

// NewAssemblerRegistry creates a registry with every built-in assembler.
func NewAssemblerRegistry(opts AssemblerOptions) *AssemblerRegistry {
	r := &AssemblerRegistry{assemblers: make(map[int]Assembler)}
	r.Register(NewJavaScriptAssembler(opts))
	r.Register(NewCAssembler(opts))
	r.Register(NewPythonAssembler(opts))
	return r
}

// Register adds an assembler to the registry
func (r *AssemblerRegistry) Register(a Assembler) {
	r.assemblers[a.LanguageID()] = a
}

// Get returns the assembler for a language ID
func (r *AssemblerRegistry) Get(id int) (Assembler, error) {
	a, ok := r.assemblers[id]
	if !ok {
		return nil, fmt.Errorf("no assembler registered for language: %d", id)
	}
	return a, nil
}

// Supports reports whether the language ID can be graded.
func (r *AssemblerRegistry) Supports(id int) bool {
	_, ok := r.assemblers[id]
	return ok
}

// IDs returns the gradable language IDs in ascending order.
func (r *AssemblerRegistry) IDs() []int {
	ids := make([]int, 0, len(r.assemblers))
	for id := range r.assemblers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
