//go:build integration

package queue_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"

	"github.com/felixgeelhaar/codeeasy/internal/domain"
	"github.com/felixgeelhaar/codeeasy/internal/queue"
)

// setupRabbitMQ starts a RabbitMQ container and returns a live connection
func setupRabbitMQ(t *testing.T) *queue.Connection {
	t.Helper()
	ctx := context.Background()

	container, err := rabbitmq.Run(ctx, "rabbitmq:3.12-management")
	if err != nil {
		t.Fatalf("failed to start RabbitMQ container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	amqpURL, err := container.AmqpURL(ctx)
	if err != nil {
		t.Fatalf("failed to get AMQP URL: %v", err)
	}

	conn, err := queue.NewConnection(queue.Config{URL: amqpURL}, nil)
	if err != nil {
		t.Fatalf("failed to create connection: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func twoFerRequest() domain.SubmissionRequest {
	return domain.SubmissionRequest{
		TrackSlug:    "javascript",
		Category:     "practice",
		ExerciseSlug: "two-fer",
		SourceCode:   "const twoFer = (name = 'you') => `One for ${name}, one for me.`;",
		LanguageID:   63,
	}
}

func TestIntegration_Connection_InvalidURL(t *testing.T) {
	_, err := queue.NewConnection(queue.Config{URL: "amqp://invalid:5672"}, nil)
	if err == nil {
		t.Error("expected error for invalid URL")
	}
}

func TestIntegration_Producer_PublishJob(t *testing.T) {
	conn := setupRabbitMQ(t)

	if !conn.IsConnected() {
		t.Fatal("expected connection to be active")
	}

	producer := queue.NewProducer(conn)
	if err := producer.PublishJob(context.Background(), &queue.SubmissionJob{Request: twoFerRequest()}); err != nil {
		t.Fatalf("failed to publish job: %v", err)
	}

	q, err := conn.Channel().QueueInspect(conn.JobQueue())
	if err != nil {
		t.Fatalf("failed to inspect queue: %v", err)
	}
	if q.Messages != 1 {
		t.Errorf("expected 1 message in queue, got %d", q.Messages)
	}
}

func TestIntegration_Consumer_ProcessJobs(t *testing.T) {
	conn := setupRabbitMQ(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var mu sync.Mutex
	var received []string
	receivedCh := make(chan struct{}, 5)

	handler := func(ctx context.Context, job *queue.SubmissionJob) (*queue.SubmissionResult, error) {
		mu.Lock()
		received = append(received, job.ID)
		mu.Unlock()
		receivedCh <- struct{}{}

		return &queue.SubmissionResult{
			Outcome: &domain.SubmissionOutcome{ID: job.ID, Status: domain.StatusAccepted, Passed: true},
		}, nil
	}

	consumer := queue.NewConsumer(conn, handler, queue.ConsumerConfig{Workers: 2, Prefetch: 1})
	if err := consumer.Start(ctx); err != nil {
		t.Fatalf("failed to start consumer: %v", err)
	}
	defer consumer.Stop()

	producer := queue.NewProducer(conn)
	const jobCount = 3
	for i := 0; i < jobCount; i++ {
		if err := producer.PublishJob(ctx, queue.NewSubmissionJob(twoFerRequest())); err != nil {
			t.Fatalf("failed to publish job %d: %v", i, err)
		}
	}

	for i := 0; i < jobCount; i++ {
		select {
		case <-receivedCh:
		case <-ctx.Done():
			t.Fatalf("timeout waiting for job %d", i)
		}
	}

	mu.Lock()
	if len(received) != jobCount {
		t.Errorf("expected %d jobs, got %d", jobCount, len(received))
	}
	mu.Unlock()
}

func TestIntegration_Consumer_HandlerErrorPublishesResult(t *testing.T) {
	conn := setupRabbitMQ(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resultConsumer := queue.NewResultConsumer(conn)
	if err := resultConsumer.Start(ctx); err != nil {
		t.Fatalf("failed to start result consumer: %v", err)
	}
	defer resultConsumer.Stop()

	job := queue.NewSubmissionJob(twoFerRequest())
	resultCh := make(chan *queue.SubmissionResult, 1)
	resultConsumer.Subscribe(job.ID, func(result *queue.SubmissionResult) {
		resultCh <- result
	})
	defer resultConsumer.Unsubscribe(job.ID)

	handler := func(ctx context.Context, job *queue.SubmissionJob) (*queue.SubmissionResult, error) {
		return nil, context.DeadlineExceeded
	}
	consumer := queue.NewConsumer(conn, handler, queue.DefaultConsumerConfig())
	if err := consumer.Start(ctx); err != nil {
		t.Fatalf("failed to start consumer: %v", err)
	}
	defer consumer.Stop()

	if err := queue.NewProducer(conn).PublishJob(ctx, job); err != nil {
		t.Fatalf("failed to publish job: %v", err)
	}

	select {
	case result := <-resultCh:
		if result.JobID != job.ID {
			t.Errorf("expected job ID %s, got %s", job.ID, result.JobID)
		}
		if result.Status != queue.ResultTimeout {
			t.Errorf("expected status %q, got %q", queue.ResultTimeout, result.Status)
		}
	case <-ctx.Done():
		t.Fatal("timeout waiting for result")
	}
}
