package judge

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/felixgeelhaar/codeeasy/internal/domain"
)

// PistonConfig holds configuration for the Piston backend
type PistonConfig struct {
	BaseURL string // default: http://localhost:2000/api/v2
	Timeout time.Duration
}

// PistonClient implements Client for the Piston execution engine
type PistonClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewPistonClient creates a new Piston client
func NewPistonClient(cfg PistonConfig) *PistonClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:2000/api/v2"
	}
	return &PistonClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: newJudgeHTTPClient(cfg.Timeout),
	}
}

func (c *PistonClient) Name() string {
	return BackendPiston
}

type pistonFile struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

type pistonRequest struct {
	Language       string       `json:"language"`
	Version        string       `json:"version"`
	Files          []pistonFile `json:"files"`
	Stdin          string       `json:"stdin"`
	Args           []string     `json:"args"`
	CompileTimeout int64        `json:"compile_timeout,omitempty"`
	RunTimeout     int64        `json:"run_timeout,omitempty"`
}

type pistonStage struct {
	Stdout   string   `json:"stdout"`
	Stderr   string   `json:"stderr"`
	Output   string   `json:"output"`
	Code     *int     `json:"code"`
	Signal   *string  `json:"signal"`
	Message  *string  `json:"message"`
	Status   *string  `json:"status"`
	CPUTime  *float64 `json:"cpu_time"`
	WallTime *float64 `json:"wall_time"`
	Memory   *int64   `json:"memory"`
}

type pistonResponse struct {
	Language string       `json:"language"`
	Version  string       `json:"version"`
	Run      *pistonStage `json:"run"`
	Compile  *pistonStage `json:"compile"`
}

// Execute posts the payload to {base}/execute.
func (c *PistonClient) Execute(ctx context.Context, payload *domain.Payload, lang domain.LanguageProfile) (*domain.ExecutionResult, error) {
	req := pistonRequest{
		Language:       lang.Name,
		Version:        lang.Version,
		Files:          make([]pistonFile, len(payload.Files)),
		Stdin:          payload.Stdin,
		Args:           []string{},
		CompileTimeout: payload.CompileTimeout.Milliseconds(),
		RunTimeout:     payload.RunTimeout.Milliseconds(),
	}
	for i, f := range payload.Files {
		req.Files[i] = pistonFile{Name: f.Name, Content: f.Content}
	}

	var resp pistonResponse
	if err := postJSON(ctx, c.httpClient, BackendPiston, c.baseURL+"/execute", nil, req, &resp); err != nil {
		return nil, err
	}

	result := &domain.ExecutionResult{}
	if resp.Compile != nil {
		stage := resp.Compile.toStage()
		result.Compile = &stage
	}
	if resp.Run == nil {
		if result.CompileFailed() {
			return result, nil
		}
		return nil, fmt.Errorf("%w: piston: response has no run stage", domain.ErrJudgeProtocol)
	}
	result.Run = resp.Run.toStage()
	return result, nil
}

// toStage converts a Piston stage. A null code with a signal means the
// process was killed.
func (s *pistonStage) toStage() domain.Stage {
	stage := domain.Stage{
		Stdout: s.Stdout,
		Stderr: s.Stderr,
	}
	if s.Code != nil {
		stage.Code = *s.Code
	}
	if s.Signal != nil && *s.Signal != "" {
		stage.Signal = *s.Signal
		if s.Code == nil {
			stage.Code = 1
		}
	}
	if s.Message != nil {
		stage.Message = *s.Message
	}
	switch {
	case s.WallTime != nil:
		stage.Time = msToDuration(*s.WallTime)
	case s.CPUTime != nil:
		stage.Time = msToDuration(*s.CPUTime)
	}
	if s.Memory != nil {
		stage.Memory = *s.Memory
	}
	return stage
}

func msToDuration(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}
