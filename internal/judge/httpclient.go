package judge

import (
	"net"
	"net/http"
	"time"
)

// defaultTimeout bounds one judge request end to end.
const defaultTimeout = 30 * time.Second

// newJudgeHTTPClient creates an HTTP client for judge calls. Judges hold
// the connection until the program finishes, so the header timeout matches
// the overall request timeout.
func newJudgeHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 || timeout > defaultTimeout {
		timeout = defaultTimeout
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: timeout,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       20,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
