package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// QueueNotifications is the Redis list key for order notification e-mail jobs.
	QueueNotifications = "worker:notifications"
	// QueueDLQ is the dead-letter queue for failed jobs after retries.
	QueueDLQ = "worker:dlq"
	// MaxRetries is the number of times to retry a job before moving to DLQ.
	MaxRetries = 3
	// RetryBackoff is the delay between retries.
	RetryBackoff = 10 * time.Second
	// blockTimeout bounds each BLPOP so a stopping worker is never parked on Redis.
	blockTimeout = 5 * time.Second
)

// JobType identifies the job kind.
type JobType string

const (
	JobTypeOrderNotification JobType = "order_notification"
)

// NotificationPayload carries the stored order object verbatim.
type NotificationPayload struct {
	FormID string          `json:"form_id"`
	Order  json.RawMessage `json:"order"`
}

// Job is a generic job envelope.
type Job struct {
	ID        string          `json:"id"`
	Type      JobType         `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempt   int             `json:"attempt"`
	LastError string          `json:"last_error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Stats is the queue backlog.
type Stats struct {
	Pending int64 `json:"pending"`
	Dead    int64 `json:"dead"`
}

// Queue enqueues and dequeues jobs via Redis.
type Queue struct {
	client *redis.Client
	logger *zap.Logger
	block  time.Duration
}

// NewQueue creates a new Redis-backed job queue.
func NewQueue(client *redis.Client, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{client: client, logger: logger, block: blockTimeout}
}

// EnqueueNotification enqueues an order notification job.
func (q *Queue) EnqueueNotification(ctx context.Context, payload NotificationPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	job := Job{
		ID:        uuid.New().String(),
		Type:      JobTypeOrderNotification,
		Payload:   body,
		CreatedAt: time.Now(),
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.RPush(ctx, QueueNotifications, raw).Err(); err != nil {
		return fmt.Errorf("rpush: %w", err)
	}
	q.logger.Debug("enqueued notification job", zap.String("job_id", job.ID), zap.String("form_id", payload.FormID))
	return nil
}

// Dequeue waits up to blockTimeout for a job. It returns nil, nil when none arrived.
func (q *Queue) Dequeue(ctx context.Context) (*Job, error) {
	result, err := q.client.BLPop(ctx, q.block, QueueNotifications).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		// Unreadable entries cannot be retried; park them for inspection.
		q.logger.Warn("invalid job payload, moving to DLQ", zap.Error(err))
		if dlqErr := q.client.RPush(ctx, QueueDLQ, result[1]).Err(); dlqErr != nil {
			q.logger.Error("dlq push failed", zap.Error(dlqErr))
		}
		return nil, nil
	}
	return &job, nil
}

// Retry re-enqueues a failed job with its attempt count raised and cause recorded. After
// MaxRetries attempts the job goes to the DLQ instead.
func (q *Queue) Retry(ctx context.Context, job *Job, cause error) error {
	job.Attempt++
	if cause != nil {
		job.LastError = cause.Error()
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	key := QueueNotifications
	if job.Attempt >= MaxRetries {
		key = QueueDLQ
	}
	if err := q.client.RPush(ctx, key, raw).Err(); err != nil {
		return fmt.Errorf("rpush %s: %w", key, err)
	}
	if key == QueueDLQ {
		q.logger.Warn("job moved to DLQ", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.String("last_error", job.LastError))
	} else {
		q.logger.Info("job retried", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
	}
	return nil
}

// Stats reports the pending and dead-lettered job counts.
func (q *Queue) Stats(ctx context.Context) (Stats, error) {
	pipe := q.client.Pipeline()
	pending := pipe.LLen(ctx, QueueNotifications)
	dead := pipe.LLen(ctx, QueueDLQ)
	if _, err := pipe.Exec(ctx); err != nil {
		return Stats{}, fmt.Errorf("queue stats: %w", err)
	}
	return Stats{Pending: pending.Val(), Dead: dead.Val()}, nil
}
