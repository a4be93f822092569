package judge

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/felixgeelhaar/codeeasy/internal/domain"
)

// Judge0 status IDs
const (
	judge0InQueue           = 1
	judge0Processing        = 2
	judge0Accepted          = 3
	judge0CompilationError  = 6
	judge0InternalError     = 13
	defaultJudge0BaseURL    = "http://localhost:2358"
	judge0SubmissionsSuffix = "/submissions?base64_encoded=false&wait=true"
)

var judge0Signals = map[int]string{
	6:  "SIGABRT",
	8:  "SIGFPE",
	9:  "SIGKILL",
	11: "SIGSEGV",
	15: "SIGTERM",
	24: "SIGXCPU",
	25: "SIGXFSZ",
}

// Judge0Config holds configuration for the Judge0 backend
type Judge0Config struct {
	BaseURL string
	APIKey  string // sent as X-RapidAPI-Key when set
	APIHost string // sent as X-RapidAPI-Host when set
	Timeout time.Duration
}

// Judge0Client implements Client for Judge0 (self-hosted or RapidAPI)
type Judge0Client struct {
	baseURL    string
	headers    map[string]string
	httpClient *http.Client
}

// NewJudge0Client creates a new Judge0 client
func NewJudge0Client(cfg Judge0Config) *Judge0Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultJudge0BaseURL
	}

	headers := make(map[string]string)
	if cfg.APIKey != "" {
		headers["X-RapidAPI-Key"] = cfg.APIKey
	}
	if cfg.APIHost != "" {
		headers["X-RapidAPI-Host"] = cfg.APIHost
	}

	return &Judge0Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		headers:    headers,
		httpClient: newJudgeHTTPClient(cfg.Timeout),
	}
}

func (c *Judge0Client) Name() string {
	return BackendJudge0
}

type judge0Request struct {
	SourceCode   string  `json:"source_code"`
	LanguageID   int     `json:"language_id"`
	Stdin        string  `json:"stdin"`
	CPUTimeLimit float64 `json:"cpu_time_limit,omitempty"`
}

type judge0Status struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

type judge0Response struct {
	Token         string        `json:"token"`
	Stdout        *string       `json:"stdout"`
	Stderr        *string       `json:"stderr"`
	CompileOutput *string       `json:"compile_output"`
	Message       *string       `json:"message"`
	Time          *string       `json:"time"`
	Memory        *int64        `json:"memory"`
	ExitCode      *int          `json:"exit_code"`
	ExitSignal    *int          `json:"exit_signal"`
	Status        *judge0Status `json:"status"`
}

// Execute submits the flattened payload and waits for the verdict.
func (c *Judge0Client) Execute(ctx context.Context, payload *domain.Payload, lang domain.LanguageProfile) (*domain.ExecutionResult, error) {
	req := judge0Request{
		SourceCode:   FlattenSources(payload.Files),
		LanguageID:   lang.ID,
		Stdin:        payload.Stdin,
		CPUTimeLimit: payload.RunTimeout.Seconds(),
	}

	var resp judge0Response
	if err := postJSON(ctx, c.httpClient, BackendJudge0, c.baseURL+judge0SubmissionsSuffix, c.headers, req, &resp); err != nil {
		return nil, err
	}
	return resp.toResult()
}

func (r *judge0Response) toResult() (*domain.ExecutionResult, error) {
	if r.Status == nil {
		return nil, fmt.Errorf("%w: judge0: response has no status", domain.ErrJudgeProtocol)
	}

	switch r.Status.ID {
	case judge0InQueue, judge0Processing:
		return nil, fmt.Errorf("%w: judge0: submission %s still %s", domain.ErrJudgeProtocol, r.Token, strings.ToLower(r.Status.Description))
	case judge0InternalError:
		return nil, fmt.Errorf("%w: judge0: %s", domain.ErrJudgeUnavailable, r.message())
	case judge0CompilationError:
		return &domain.ExecutionResult{
			Compile: &domain.Stage{Code: 1, Stderr: deref(r.CompileOutput), Message: r.Status.Description},
		}, nil
	}

	result := &domain.ExecutionResult{
		Run: domain.Stage{
			Stdout: deref(r.Stdout),
			Stderr: deref(r.Stderr),
			Time:   parseSeconds(deref(r.Time)),
		},
	}
	if r.Memory != nil {
		result.Run.Memory = *r.Memory
	}
	if out := deref(r.CompileOutput); out != "" {
		result.Compile = &domain.Stage{Code: 0, Stderr: out}
	}

	if r.Status.ID == judge0Accepted {
		return result, nil
	}

	result.Run.Code = 1
	if r.ExitCode != nil && *r.ExitCode != 0 {
		result.Run.Code = *r.ExitCode
	}
	if r.ExitSignal != nil && *r.ExitSignal != 0 {
		result.Run.Signal = signalName(*r.ExitSignal)
	}
	result.Run.Message = r.message()
	return result, nil
}

func (r *judge0Response) message() string {
	msg := r.Status.Description
	if m := deref(r.Message); m != "" {
		msg += ": " + m
	}
	return msg
}

var cIncludeLine = regexp.MustCompile(`^\s*#\s*include\s*"([^"]+)"\s*$`)

// FlattenSources joins a multi-file payload into the single source Judge0
// accepts: headers first, then the remaining files in order, dropping local
// includes of files that are already part of the blob.
func FlattenSources(files []domain.SourceFile) string {
	if len(files) == 1 {
		return files[0].Content
	}

	names := make(map[string]bool, len(files))
	for _, f := range files {
		names[f.Name] = true
	}

	ordered := make([]domain.SourceFile, 0, len(files))
	for _, f := range files {
		if isHeader(f.Name) {
			ordered = append(ordered, f)
		}
	}
	for _, f := range files {
		if !isHeader(f.Name) {
			ordered = append(ordered, f)
		}
	}

	var b strings.Builder
	for _, f := range ordered {
		fmt.Fprintf(&b, "/* %s */\n", f.Name)
		for _, line := range strings.Split(f.Content, "\n") {
			if m := cIncludeLine.FindStringSubmatch(line); m != nil && names[path.Base(m[1])] {
				continue
			}
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func isHeader(name string) bool {
	ext := path.Ext(name)
	return ext == ".h" || ext == ".hpp"
}

func signalName(sig int) string {
	if name, ok := judge0Signals[sig]; ok {
		return name
	}
	return "SIG" + strconv.Itoa(sig)
}

func parseSeconds(s string) time.Duration {
	secs, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
