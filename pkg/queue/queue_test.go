package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T) (*Queue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	q := NewQueue(client, nil)
	q.block = time.Second
	return q, mr
}

func TestEnqueueAndDequeue(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	order := json.RawMessage(`{"formId":"F1","totalAmount":90}`)
	require.NoError(t, q.EnqueueNotification(ctx, NotificationPayload{FormID: "F1", Order: order}))

	job, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, JobTypeOrderNotification, job.Type)
	assert.NotEmpty(t, job.ID)
	assert.Zero(t, job.Attempt)

	var payload NotificationPayload
	require.NoError(t, json.Unmarshal(job.Payload, &payload))
	assert.Equal(t, "F1", payload.FormID)
	assert.JSONEq(t, string(order), string(payload.Order))
}

func TestDequeue_EmptyQueueReturnsNil(t *testing.T) {
	q, _ := newTestQueue(t)

	job, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestDequeue_UnreadableEntryGoesToDLQ(t *testing.T) {
	q, mr := newTestQueue(t)
	_, err := mr.RPush(QueueNotifications, "{not json")
	require.NoError(t, err)

	job, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Nil(t, job)

	dead, err := mr.List(QueueDLQ)
	require.NoError(t, err)
	assert.Equal(t, []string{"{not json"}, dead)
	assert.False(t, mr.Exists(QueueNotifications))
}

func TestRetry_RequeuesUntilMaxRetries(t *testing.T) {
	q, mr := newTestQueue(t)
	ctx := context.Background()
	require.NoError(t, q.EnqueueNotification(ctx, NotificationPayload{FormID: "F1", Order: json.RawMessage(`{}`)}))

	job, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)

	for attempt := 1; attempt < MaxRetries; attempt++ {
		require.NoError(t, q.Retry(ctx, job, errors.New("smtp unavailable")))
		assert.Equal(t, attempt, job.Attempt)

		job, err = q.Dequeue(ctx)
		require.NoError(t, err)
		require.NotNil(t, job)
		assert.Equal(t, attempt, job.Attempt)
		assert.Equal(t, "smtp unavailable", job.LastError)
	}

	require.NoError(t, q.Retry(ctx, job, errors.New("mailbox full")))
	assert.Equal(t, MaxRetries, job.Attempt)
	assert.False(t, mr.Exists(QueueNotifications))

	dead, err := mr.List(QueueDLQ)
	require.NoError(t, err)
	require.Len(t, dead, 1)
	var parked Job
	require.NoError(t, json.Unmarshal([]byte(dead[0]), &parked))
	assert.Equal(t, job.ID, parked.ID)
	assert.Equal(t, MaxRetries, parked.Attempt)
	assert.Equal(t, "mailbox full", parked.LastError)
}

func TestRetry_NilCauseKeepsLastError(t *testing.T) {
	q, _ := newTestQueue(t)
	job := &Job{ID: "j1", Type: JobTypeOrderNotification, LastError: "timeout"}

	require.NoError(t, q.Retry(context.Background(), job, nil))
	assert.Equal(t, 1, job.Attempt)
	assert.Equal(t, "timeout", job.LastError)
}

func TestStats(t *testing.T) {
	q, mr := newTestQueue(t)
	ctx := context.Background()

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)

	for i := 0; i < 2; i++ {
		require.NoError(t, q.EnqueueNotification(ctx, NotificationPayload{FormID: "F", Order: json.RawMessage(`{}`)}))
	}
	_, err = mr.RPush(QueueDLQ, "dead")
	require.NoError(t, err)

	stats, err = q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Pending: 2, Dead: 1}, stats)
}

func TestStats_RedisDown(t *testing.T) {
	q, mr := newTestQueue(t)
	mr.Close()

	_, err := q.Stats(context.Background())
	assert.Error(t, err)
}
