package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/codeeasy/internal/domain"
)

// Producer publishes submission jobs and their results
type Producer struct {
	conn   *Connection
	logger *slog.Logger
}

// NewProducer creates a new queue producer
func NewProducer(conn *Connection) *Producer {
	return &Producer{conn: conn, logger: conn.logger}
}

// PublishJob publishes a submission job, filling in a missing ID and
// creation time.
func (p *Producer) PublishJob(ctx context.Context, job *SubmissionJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}

	if err := p.conn.PublishJSON(ctx, p.conn.JobQueue(), job); err != nil {
		return fmt.Errorf("failed to publish submission job: %w", err)
	}

	p.logger.Info("published submission job",
		"job_id", job.ID,
		"user_id", job.Request.UserID,
		"exercise", job.Request.ExercisePath(),
	)

	return nil
}

// PublishResult publishes a graded result to the results queue
func (p *Producer) PublishResult(ctx context.Context, result *SubmissionResult) error {
	if result.CompletedAt.IsZero() {
		result.CompletedAt = time.Now()
	}

	if err := p.conn.PublishJSON(ctx, p.conn.ResultQueue(), result); err != nil {
		return fmt.Errorf("failed to publish submission result: %w", err)
	}

	p.logger.Debug("published submission result",
		"job_id", result.JobID,
		"status", result.Status,
		"duration", result.Duration,
	)

	return nil
}

// NewSubmissionJob wraps a request in a job with a fresh ID
func NewSubmissionJob(req domain.SubmissionRequest) *SubmissionJob {
	return &SubmissionJob{
		ID:        uuid.NewString(),
		Request:   req,
		CreatedAt: time.Now(),
	}
}
