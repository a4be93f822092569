package domain

import "time"

// SourceFile is one named entry of an assembled payload.
type SourceFile struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Payload is the unit sent to the judge. Files are ordered; backends that
// accept a single blob flatten them.
type Payload struct {
	Files          []SourceFile
	Stdin          string
	CompileTimeout time.Duration
	RunTimeout     time.Duration
}

// Entry returns the first file, which judges treat as the program entry point.
func (p *Payload) Entry() SourceFile {
	if len(p.Files) == 0 {
		return SourceFile{}
	}
	return p.Files[0]
}

// Stage is the raw result of one judge stage (compile or run).
type Stage struct {
	Code    int
	Stdout  string
	Stderr  string
	Signal  string        // set when the process was killed
	Message string        // judge-supplied status text, if any
	Time    time.Duration // wall or cpu time reported by the judge
	Memory  int64         // judge-reported units
}

// ExecutionResult is the backend-independent judge response.
type ExecutionResult struct {
	Compile *Stage
	Run     Stage
}

// CompileFailed reports whether a compile stage exists and exited non-zero.
func (r *ExecutionResult) CompileFailed() bool {
	return r.Compile != nil && r.Compile.Code != 0
}
