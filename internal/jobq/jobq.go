// Package jobq submits webhook events as jobs to the shared redis list
// that the worker subsystem consumes.
package jobq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mergefront/mergefront/internal/logfields"
)

const loggerName = "jobq"

// Job is one unit of work for the worker subsystem: the webhook event
// type plus the full original event payload.
type Job struct {
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
}

// Queue is a producer handle on the job queue. Enqueue only guarantees
// that the job is durably stored, execution happens asynchronously in
// the worker subsystem and is never awaited here.
type Queue struct {
	clt    *redis.Client
	key    string
	logger *zap.Logger
}

func New(clt *redis.Client, key string) *Queue {
	return &Queue{
		clt:    clt,
		key:    key,
		logger: zap.L().Named(loggerName),
	}
}

// Enqueue appends a job to the queue. An error means the job was not
// stored; the caller must not acknowledge the event in that case, the
// webhook sender's redelivery is the retry mechanism.
func (q *Queue) Enqueue(ctx context.Context, eventType string, payload []byte) error {
	job, err := json.Marshal(Job{EventType: eventType, Payload: payload})
	if err != nil {
		return fmt.Errorf("serializing job failed: %w", err)
	}

	if err := q.clt.LPush(ctx, q.key, job).Err(); err != nil {
		return fmt.Errorf("pushing job to queue %q failed: %w", q.key, err)
	}

	q.logger.Debug(
		"job enqueued",
		logfields.Event("job_enqueued"),
		logfields.EventType(eventType),
	)

	return nil
}
