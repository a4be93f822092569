// Package judge talks to remote code execution services.
package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/felixgeelhaar/codeeasy/internal/domain"
)

// Backend names
const (
	BackendPiston = "piston"
	BackendJudge0 = "judge0"
)

// maxResponseBytes caps how much of a judge response is read.
const maxResponseBytes = 8 << 20

// Client executes an assembled payload on a remote judge. Implementations
// make exactly one HTTP attempt per call.
type Client interface {
	// Name returns the backend name
	Name() string

	// Execute runs payload and returns the raw stage results
	Execute(ctx context.Context, payload *domain.Payload, lang domain.LanguageProfile) (*domain.ExecutionResult, error)
}

// Config selects and configures a judge backend
type Config struct {
	Backend string
	BaseURL string
	APIKey  string // Judge0 over RapidAPI
	APIHost string
	Timeout time.Duration

	Breaker BreakerConfig
	Limits  LimitConfig
}

// New creates the configured backend, wrapped in a circuit breaker unless
// the breaker is disabled. Limits sit outside the breaker so throttled calls
// never count as judge failures.
func New(cfg Config, logger *slog.Logger) (Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var client Client
	switch cfg.Backend {
	case BackendPiston, "":
		client = NewPistonClient(PistonConfig{BaseURL: cfg.BaseURL, Timeout: cfg.Timeout})
	case BackendJudge0:
		client = NewJudge0Client(Judge0Config{
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
			APIHost: cfg.APIHost,
			Timeout: cfg.Timeout,
		})
	default:
		return nil, fmt.Errorf("unknown judge backend %q", cfg.Backend)
	}

	if !cfg.Breaker.Disabled {
		client = NewBreaker(client, cfg.Breaker, logger)
	}
	if cfg.Limits.enabled() {
		client = NewLimiter(client, cfg.Limits)
	}
	return client, nil
}

// postJSON sends one JSON request and decodes the response into out.
// Transport failures, 5xx and 429 are classified as ErrJudgeUnavailable,
// everything else that goes wrong as ErrJudgeProtocol.
func postJSON(ctx context.Context, client *http.Client, backend, url string, headers map[string]string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%w: %s: marshal request: %v", domain.ErrJudgeProtocol, backend, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %s: create request: %v", domain.ErrJudgeProtocol, backend, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrJudgeUnavailable, backend, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: %s: read response: %v", domain.ErrJudgeUnavailable, backend, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return fmt.Errorf("%w: %s returned status %d: %s", domain.ErrJudgeUnavailable, backend, resp.StatusCode, errorMessage(data))
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: %s returned status %d: %s", domain.ErrJudgeProtocol, backend, resp.StatusCode, errorMessage(data))
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s: decode response: %v", domain.ErrJudgeProtocol, backend, err)
	}
	return nil
}

// errorMessage extracts {"message"} or {"error"} from an error body,
// falling back to the trimmed raw body.
func errorMessage(data []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	msg := strings.TrimSpace(string(data))
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	return msg
}

// IsUnavailable reports whether err means the judge could not be reached.
func IsUnavailable(err error) bool {
	return errors.Is(err, domain.ErrJudgeUnavailable)
}
