// Package metrics exposes Prometheus instruments for submissions, judge
// calls, queue jobs and HTTP requests.
package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/felixgeelhaar/codeeasy/internal/domain"
	"github.com/felixgeelhaar/codeeasy/internal/judge"
)

const namespace = "codeeasy"

// Metrics holds every instrument registered by the daemon.
type Metrics struct {
	registry *prometheus.Registry

	Submissions        *prometheus.CounterVec
	SubmissionDuration *prometheus.HistogramVec
	JudgeRequests      *prometheus.CounterVec
	JudgeDuration      *prometheus.HistogramVec
	QueueJobs          *prometheus.CounterVec
	HTTPRequests       *prometheus.CounterVec
}

// New registers the instruments on a fresh registry, alongside the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Graded submissions by language and status",
		}, []string{"language", "status"}),
		SubmissionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "submission_duration_seconds",
			Help:      "End-to-end grading time per submission",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30},
		}, []string{"language"}),
		JudgeRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "judge_requests_total",
			Help:      "Judge calls by backend and result",
		}, []string{"backend", "result"}),
		JudgeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "judge_request_duration_seconds",
			Help:      "Judge call latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"backend"}),
		QueueJobs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_jobs_total",
			Help:      "Asynchronous submission jobs by result status",
		}, []string{"status"}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code",
		}, []string{"method", "code"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveSubmission records a graded submission.
func (m *Metrics) ObserveSubmission(language string, status domain.Status, duration time.Duration) {
	m.Submissions.WithLabelValues(language, status.String()).Inc()
	m.SubmissionDuration.WithLabelValues(language).Observe(duration.Seconds())
}

// ObserveJob records a finished queue job.
func (m *Metrics) ObserveJob(status string) {
	m.QueueJobs.WithLabelValues(status).Inc()
}

// ObserveHTTP records one HTTP response.
func (m *Metrics) ObserveHTTP(method string, code int) {
	m.HTTPRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
}

// Judge result labels
const (
	judgeOK          = "ok"
	judgeUnavailable = "unavailable"
	judgeProtocol    = "protocol_error"
	judgeError       = "error"
)

// InstrumentJudge wraps a judge client so every call is counted and timed.
func (m *Metrics) InstrumentJudge(next judge.Client) judge.Client {
	return &instrumentedJudge{next: next, m: m}
}

type instrumentedJudge struct {
	next judge.Client
	m    *Metrics
}

func (j *instrumentedJudge) Name() string { return j.next.Name() }

func (j *instrumentedJudge) Execute(ctx context.Context, payload *domain.Payload, lang domain.LanguageProfile) (*domain.ExecutionResult, error) {
	start := time.Now()
	res, err := j.next.Execute(ctx, payload, lang)

	backend := j.next.Name()
	j.m.JudgeDuration.WithLabelValues(backend).Observe(time.Since(start).Seconds())
	j.m.JudgeRequests.WithLabelValues(backend, judgeResult(err)).Inc()
	return res, err
}

// Close releases the wrapped client when it holds resources.
func (j *instrumentedJudge) Close() error {
	if c, ok := j.next.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func judgeResult(err error) string {
	switch {
	case err == nil:
		return judgeOK
	case errors.Is(err, domain.ErrJudgeUnavailable):
		return judgeUnavailable
	case errors.Is(err, domain.ErrJudgeProtocol):
		return judgeProtocol
	default:
		return judgeError
	}
}
