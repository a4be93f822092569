package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/codeeasy/internal/api/middleware"
	"github.com/felixgeelhaar/codeeasy/internal/domain"
	"github.com/felixgeelhaar/codeeasy/internal/queue"
	"github.com/felixgeelhaar/codeeasy/internal/storage"
)

// maxSubmissionBytes bounds the request body of a submission.
const maxSubmissionBytes = 1 << 20

// SubmitRequest is the request body for a submission. Older clients send
// track, source_code and language_id; both spellings are accepted.
type SubmitRequest struct {
	Track           string `json:"track"`
	TrackSlug       string `json:"trackSlug"`
	Category        string `json:"category"`
	ExerciseSlug    string `json:"exerciseSlug"`
	SourceCode      string `json:"sourceCode"`
	SourceCodeSnake string `json:"source_code"`
	LanguageID      int    `json:"languageId"`
	LanguageIDSnake int    `json:"language_id"`
	Stdin           string `json:"stdin"`
}

// toDomain resolves aliases into a domain request.
func (b SubmitRequest) toDomain() domain.SubmissionRequest {
	req := domain.SubmissionRequest{
		TrackSlug:    b.TrackSlug,
		Category:     b.Category,
		ExerciseSlug: b.ExerciseSlug,
		SourceCode:   b.SourceCode,
		LanguageID:   b.LanguageID,
		Stdin:        b.Stdin,
	}
	if req.TrackSlug == "" {
		req.TrackSlug = b.Track
	}
	if req.SourceCode == "" {
		req.SourceCode = b.SourceCodeSnake
	}
	if req.LanguageID == 0 {
		req.LanguageID = b.LanguageIDSnake
	}
	return req
}

// ResultView is the judge-shaped part of a submission response
type ResultView struct {
	Status        domain.Status `json:"status"`
	Stdout        string        `json:"stdout"`
	Stderr        string        `json:"stderr"`
	CompileOutput *string       `json:"compileOutput"`
	Time          string        `json:"time"`
	Memory        int64         `json:"memory"`
}

// SubmissionView is a graded submission in API responses
type SubmissionView struct {
	ID          string              `json:"id"`
	Language    string              `json:"language,omitempty"`
	Result      ResultView          `json:"result"`
	Passed      bool                `json:"passed"`
	TestResults []domain.TestResult `json:"testResults"`
}

// SubmitResponse is the envelope for POST /api/submissions
type SubmitResponse struct {
	Success    bool           `json:"success"`
	Message    string         `json:"message"`
	Submission SubmissionView `json:"submission"`
}

func newSubmissionView(o *domain.SubmissionOutcome) SubmissionView {
	results := o.TestResults
	if results == nil {
		results = []domain.TestResult{}
	}
	return SubmissionView{
		ID:       o.ID,
		Language: o.Language,
		Result: ResultView{
			Status:        o.Status,
			Stdout:        o.Stdout,
			Stderr:        o.Stderr,
			CompileOutput: o.CompileOutput,
			Time:          o.Time,
			Memory:        o.Memory,
		},
		Passed:      o.Passed,
		TestResults: results,
	}
}

// decodeSubmission reads the body and attaches the caller's user ID.
func decodeSubmission(w http.ResponseWriter, r *http.Request) (domain.SubmissionRequest, bool) {
	var body SubmitRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSubmissionBytes)).Decode(&body); err != nil {
		BadRequest(w, r, "invalid request body")
		return domain.SubmissionRequest{}, false
	}

	req := body.toDomain()
	if userID, ok := middleware.GetUserID(r.Context()); ok {
		req.UserID = userID
	}
	return req, true
}

func (r *Router) handleSubmit(w http.ResponseWriter, req *http.Request) {
	sub, ok := decodeSubmission(w, req)
	if !ok {
		return
	}

	id := uuid.NewString()
	outcome, err := r.cfg.Grader.SubmitWithID(req.Context(), id, sub)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			ValidationFailed(w, req, err)
			return
		}
		InternalError(w, req, "submission failed", err)
		return
	}

	r.record(req.Context(), domain.NewSubmissionRecord(id, sub, outcome, time.Now()))

	WriteJSON(w, http.StatusOK, SubmitResponse{
		Success:    true,
		Message:    "Code executed successfully",
		Submission: newSubmissionView(outcome),
	})
}

// record persists a submission when a store is configured. Failures are
// logged; the caller already has its outcome.
func (r *Router) record(ctx context.Context, rec *domain.SubmissionRecord) {
	if r.cfg.Store == nil {
		return
	}
	if err := storage.RecordSubmission(ctx, r.cfg.Store, rec); err != nil {
		r.logger.Error("failed to record submission",
			"submission_id", rec.ID,
			"error", err,
			"request_id", middleware.GetRequestID(ctx),
		)
	}
}

// AsyncResponse is returned for queued submissions
type AsyncResponse struct {
	Success    bool            `json:"success"`
	JobID      string          `json:"jobId"`
	Status     string          `json:"status"`
	Submission *SubmissionView `json:"submission,omitempty"`
	Error      string          `json:"error,omitempty"`
}

func (r *Router) handleSubmitAsync(w http.ResponseWriter, req *http.Request) {
	if r.cfg.Publisher == nil {
		ServiceUnavailable(w, req, "async submissions are disabled", domain.ErrQueueUnavailable)
		return
	}

	sub, ok := decodeSubmission(w, req)
	if !ok {
		return
	}
	if err := r.cfg.Grader.Validate(sub); err != nil {
		ValidationFailed(w, req, err)
		return
	}

	wait, err := r.parseWait(req)
	if err != nil {
		BadRequest(w, req, err.Error())
		return
	}

	job := queue.NewSubmissionJob(sub)

	// Subscribe before publishing so a fast worker cannot beat us
	var results chan *queue.SubmissionResult
	if wait > 0 && r.cfg.Results != nil {
		results = make(chan *queue.SubmissionResult, 1)
		r.cfg.Results.Subscribe(job.ID, func(res *queue.SubmissionResult) {
			select {
			case results <- res:
			default:
			}
		})
		defer r.cfg.Results.Unsubscribe(job.ID)
	}

	if r.cfg.Store != nil {
		if err := r.cfg.Store.SaveSubmission(req.Context(), domain.NewSubmissionRecord(job.ID, sub, nil, job.CreatedAt)); err != nil {
			InternalError(w, req, "failed to store submission", err)
			return
		}
	}

	if err := r.cfg.Publisher.PublishJob(req.Context(), job); err != nil {
		ServiceUnavailable(w, req, "failed to queue submission", err)
		return
	}

	if results == nil {
		WriteJSON(w, http.StatusAccepted, AsyncResponse{Success: true, JobID: job.ID, Status: "queued"})
		return
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case res := <-results:
		resp := AsyncResponse{Success: true, JobID: job.ID, Status: res.Status, Error: res.Error}
		if res.Outcome != nil {
			view := newSubmissionView(res.Outcome)
			resp.Submission = &view
		}
		WriteJSON(w, http.StatusOK, resp)
	case <-timer.C:
		WriteJSON(w, http.StatusAccepted, AsyncResponse{Success: true, JobID: job.ID, Status: "queued"})
	case <-req.Context().Done():
	}
}

// parseWait reads ?wait= as a duration ("5s") or whole seconds ("5"),
// capped at MaxAsyncWait.
func (r *Router) parseWait(req *http.Request) (time.Duration, error) {
	raw := req.URL.Query().Get("wait")
	if raw == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		secs, convErr := strconv.Atoi(raw)
		if convErr != nil {
			return 0, errors.New("wait must be a duration or a number of seconds")
		}
		d = time.Duration(secs) * time.Second
	}
	if d < 0 {
		return 0, errors.New("wait must not be negative")
	}
	return min(d, r.cfg.MaxAsyncWait), nil
}

// SubmissionListResponse lists stored submissions
type SubmissionListResponse struct {
	Submissions []*domain.SubmissionRecord `json:"submissions"`
	Total       int                        `json:"total"`
}

func (r *Router) handleListSubmissions(w http.ResponseWriter, req *http.Request) {
	if r.cfg.Store == nil {
		ServiceUnavailable(w, req, "submission history is disabled", nil)
		return
	}

	q := req.URL.Query()
	filter := storage.SubmissionFilter{
		TrackSlug:    q.Get("track"),
		ExerciseSlug: q.Get("exercise"),
	}
	if userID, ok := middleware.GetUserID(req.Context()); ok {
		filter.UserID = userID
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			BadRequest(w, req, "limit must be a non-negative integer")
			return
		}
		filter.Limit = limit
	}

	records, err := r.cfg.Store.ListSubmissions(req.Context(), filter)
	if err != nil {
		InternalError(w, req, "failed to list submissions", err)
		return
	}
	if records == nil {
		records = []*domain.SubmissionRecord{}
	}

	WriteJSON(w, http.StatusOK, SubmissionListResponse{Submissions: records, Total: len(records)})
}

func (r *Router) handleGetSubmission(w http.ResponseWriter, req *http.Request) {
	if r.cfg.Store == nil {
		ServiceUnavailable(w, req, "submission history is disabled", nil)
		return
	}

	rec, err := r.cfg.Store.GetSubmission(req.Context(), req.PathValue("id"))
	if err != nil {
		if errors.Is(err, domain.ErrSubmissionNotFound) {
			NotFound(w, req, "submission")
			return
		}
		InternalError(w, req, "failed to load submission", err)
		return
	}

	// Records belong to their submitter when one is known
	if userID, ok := middleware.GetUserID(req.Context()); ok && rec.UserID != "" && rec.UserID != userID {
		NotFound(w, req, "submission")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"submission": rec,
		"pending":    rec.Pending(),
	})
}
