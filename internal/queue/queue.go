package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/felixgeelhaar/codeeasy/internal/domain"
)

// Default queue names
const (
	DefaultJobQueue    = "codeeasy.submissions"
	DefaultResultQueue = "codeeasy.results"
)

// Result statuses
const (
	ResultCompleted = "completed"
	ResultFailed    = "failed"
	ResultTimeout   = "timeout"
)

// Config names the broker and the two queues.
type Config struct {
	URL         string
	JobQueue    string
	ResultQueue string
}

func (c Config) withDefaults() Config {
	if c.JobQueue == "" {
		c.JobQueue = DefaultJobQueue
	}
	if c.ResultQueue == "" {
		c.ResultQueue = DefaultResultQueue
	}
	return c
}

// SubmissionJob is a submission waiting to be graded
type SubmissionJob struct {
	ID        string                   `json:"id"`
	Request   domain.SubmissionRequest `json:"request"`
	CreatedAt time.Time                `json:"created_at"`
}

// SubmissionResult is published once a job has been graded
type SubmissionResult struct {
	JobID       string                    `json:"job_id"`
	Status      string                    `json:"status"` // completed, failed, timeout
	Outcome     *domain.SubmissionOutcome `json:"outcome,omitempty"`
	Error       string                    `json:"error,omitempty"`
	Duration    time.Duration             `json:"duration"`
	CompletedAt time.Time                 `json:"completed_at"`
}

// Connection manages the RabbitMQ connection with automatic reconnection
type Connection struct {
	cfg        Config
	conn       *amqp.Connection
	channel    *amqp.Channel
	logger     *slog.Logger
	mu         sync.RWMutex
	closed     bool
	reconnects int
}

// NewConnection dials the broker and declares both queues.
func NewConnection(cfg Config, logger *slog.Logger) (*Connection, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Connection{
		cfg:    cfg.withDefaults(),
		logger: logger,
	}

	if err := c.connect(); err != nil {
		return nil, err
	}

	return c, nil
}

// JobQueue returns the job queue name
func (c *Connection) JobQueue() string { return c.cfg.JobQueue }

// ResultQueue returns the result queue name
func (c *Connection) ResultQueue() string { return c.cfg.ResultQueue }

// connect establishes connection and channel
func (c *Connection) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	c.conn, err = amqp.Dial(c.cfg.URL)
	if err != nil {
		return fmt.Errorf("%w: connect to RabbitMQ: %v", domain.ErrQueueUnavailable, err)
	}

	c.channel, err = c.conn.Channel()
	if err != nil {
		c.conn.Close()
		return fmt.Errorf("%w: open channel: %v", domain.ErrQueueUnavailable, err)
	}

	if err := c.declareQueues(); err != nil {
		c.channel.Close()
		c.conn.Close()
		return err
	}

	go c.handleReconnect()

	c.logger.Info("connected to RabbitMQ", "url", sanitizeURL(c.cfg.URL))
	return nil
}

// declareQueues creates the job and result queues
func (c *Connection) declareQueues() error {
	// Jobs outlive a broker restart; a job older than 5 minutes is dropped
	_, err := c.channel.QueueDeclare(
		c.cfg.JobQueue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		amqp.Table{
			"x-message-ttl": int32(300000),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to declare job queue: %w", err)
	}

	_, err = c.channel.QueueDeclare(
		c.cfg.ResultQueue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		amqp.Table{
			"x-message-ttl": int32(60000),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to declare result queue: %w", err)
	}

	return nil
}

// handleReconnect listens for connection close and attempts to reconnect
func (c *Connection) handleReconnect() {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	err, ok := <-conn.NotifyClose(make(chan *amqp.Error, 1))
	if !ok || err == nil {
		return // normal close
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.logger.Warn("RabbitMQ connection closed, attempting to reconnect",
		"error", err,
		"reconnects", c.reconnects,
	)

	for i := 0; i < 10; i++ {
		c.reconnects++
		time.Sleep(reconnectBackoff(i))

		if err := c.connect(); err != nil {
			c.logger.Error("reconnection failed", "error", err, "attempt", i+1)
			continue
		}

		c.logger.Info("reconnected to RabbitMQ", "attempts", i+1)
		return
	}

	c.logger.Error("failed to reconnect to RabbitMQ after 10 attempts")
}

// reconnectBackoff doubles from 1s and caps at 30s.
func reconnectBackoff(attempt int) time.Duration {
	backoff := time.Duration(1<<attempt) * time.Second
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	return backoff
}

// Channel returns the current channel (thread-safe)
func (c *Connection) Channel() *amqp.Channel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.channel
}

// Close closes the connection
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true

	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected checks if the connection is active
func (c *Connection) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil && !c.conn.IsClosed()
}

// PublishJSON publishes a JSON message to a queue
func (c *Connection) PublishJSON(ctx context.Context, queue string, data any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	c.mu.RLock()
	ch := c.channel
	c.mu.RUnlock()

	err = ch.PublishWithContext(
		ctx,
		"",    // exchange
		queue, // routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrQueueUnavailable, err)
	}
	return nil
}

// sanitizeURL hides the password of an AMQP URL for logging
func sanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		if len(raw) > 20 {
			return raw[:20] + "..."
		}
		return raw
	}
	return u.Redacted()
}
