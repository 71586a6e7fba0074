// Package webhook classifies authenticated webhook events and
// dispatches the queueable ones to the job queue.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mergefront/mergefront/internal/event"
	"github.com/mergefront/mergefront/internal/logfields"
)

const loggerName = "webhook"

// ErrMalformedPayload is returned when an event body is not valid
// JSON.
var ErrMalformedPayload = errors.New("event payload is not valid json")

// queueableEventTypes is the fixed allow-list of event types that are
// forwarded to the job queue. Everything else is acknowledged but
// dropped, rejecting unknown types would only cause webhook redelivery
// storms.
// check_suite is accepted as the checks-API equivalent of commit
// statuses.
var queueableEventTypes = map[string]struct{}{
	event.TypeRefresh:     {},
	"pull_request":        {},
	"status":              {},
	"check_suite":         {},
	"pull_request_review": {},
}

// JobEnqueuer submits a job to the external job queue.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, eventType string, payload []byte) error
}

// Classifier decides which inbound events become jobs.
type Classifier struct {
	queue  JobEnqueuer
	filter *DropFilter
	logger *zap.Logger
}

type option func(*Classifier)

// WithDropFilter installs a filter that discards matching events
// before they are enqueued.
func WithDropFilter(filter *DropFilter) option {
	return func(c *Classifier) {
		c.filter = filter
	}
}

func NewClassifier(queue JobEnqueuer, opts ...option) *Classifier {
	c := Classifier{
		queue:  queue,
		logger: zap.L().Named(loggerName),
	}

	for _, opt := range opts {
		opt(&c)
	}

	return &c
}

// Process handles one authenticated event: it logs the receipt,
// decides queueability and enqueues the job. The returned bool states
// whether a job was enqueued.
// ErrMalformedPayload is returned for bodies that are not valid JSON,
// any other error means enqueueing failed and the event must not be
// acknowledged.
func (c *Classifier) Process(ctx context.Context, eventType, deliveryID string, body []byte) (queued bool, err error) {
	var payload event.Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		return false, fmt.Errorf("%w: %s", ErrMalformedPayload, err)
	}

	logger := c.logger.With(
		logfields.EventType(eventType),
		logfields.DeliveryID(deliveryID),
		logfields.Installation(payload.InstallationID()),
		logfields.Repository(payload.RepositoryIdentifier()),
	)

	logger.Info("event received", logfields.Event("webhook_event_received"))
	metrics.ReceivedEventsInc(eventType)

	if _, ok := queueableEventTypes[eventType]; !ok {
		logger.Debug(
			"event type is not queueable, event is acknowledged and dropped",
			logfields.Event("webhook_event_not_queueable"),
		)
		return false, nil
	}

	if c.filter != nil {
		drop, err := c.filter.Drops(ctx, body)
		if err != nil {
			// a broken filter must not stop the event flow
			logger.Warn(
				"evaluating event filter failed, event is processed as if it did not match",
				logfields.Event("webhook_filter_evaluation_failed"),
				zap.Error(err),
			)
		}

		if drop {
			logger.Info(
				"event matches the drop filter, event is acknowledged and dropped",
				logfields.Event("webhook_event_filtered"),
			)
			return false, nil
		}
	}

	if err := c.queue.Enqueue(ctx, eventType, body); err != nil {
		return false, err
	}

	metrics.EnqueuedJobsInc()
	logger.Debug("event enqueued as job", logfields.Event("webhook_event_enqueued"))

	return true, nil
}
