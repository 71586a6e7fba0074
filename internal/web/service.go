// Package web exposes the HTTP surface of the service: webhook event
// intake, refresh triggers and the merge-queue status endpoints.
package web

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mergefront/mergefront/internal/logfields"
	"github.com/mergefront/mergefront/internal/queuestate"
	"github.com/mergefront/mergefront/internal/refresher"
)

const loggerName = "web"

// DefHeartbeatInterval is the maximum time a streaming client waits
// for an update notification before a ping frame is sent. It must stay
// safely below the idle timeout of upstream reverse proxies (55s on
// the reference deployment).
const DefHeartbeatInterval = 50 * time.Second

// Authenticator verifies webhook signature headers.
type Authenticator interface {
	Verify(body []byte, signatureHeader string) error
}

// EventProcessor classifies an authenticated event and enqueues it if
// it is queueable.
type EventProcessor interface {
	Process(ctx context.Context, eventType, deliveryID string, body []byte) (queued bool, err error)
}

// Refresher synthesizes refresh events.
type Refresher interface {
	Branch(ctx context.Context, owner, repo, branch string) error
	All(ctx context.Context) (*refresher.Counters, error)
}

// QueueReader reads a single stored queue snapshot.
type QueueReader interface {
	Raw(ctx context.Context, key queuestate.Key) ([]byte, error)
}

// StatusProvider aggregates all stored queue snapshots.
type StatusProvider interface {
	GlobalStatus(ctx context.Context) ([]*queuestate.Snapshot, error)
}

// UpdateSubscriber subscribes to queue-state change notifications.
type UpdateSubscriber interface {
	Subscribe(ctx context.Context) (updates <-chan struct{}, cancel func(), err error)
}

type Service struct {
	auth      Authenticator
	events    EventProcessor
	refresher Refresher
	queues    QueueReader
	status    StatusProvider
	updates   UpdateSubscriber

	heartbeatInterval time.Duration
	logger            *zap.Logger
}

type option func(*Service)

// WithHeartbeatInterval overrides the streaming heartbeat interval.
func WithHeartbeatInterval(interval time.Duration) option {
	return func(s *Service) {
		s.heartbeatInterval = interval
	}
}

func New(
	auth Authenticator,
	events EventProcessor,
	refr Refresher,
	queues QueueReader,
	status StatusProvider,
	updates UpdateSubscriber,
	opts ...option,
) *Service {
	s := Service{
		auth:              auth,
		events:            events,
		refresher:         refr,
		queues:            queues,
		status:            status,
		updates:           updates,
		heartbeatInterval: DefHeartbeatInterval,
		logger:            zap.L().Named(loggerName),
	}

	for _, opt := range opts {
		opt(&s)
	}

	return &s
}

func (s *Service) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("GET /auth", s.HandlerAuthProbe)
	mux.HandleFunc("POST /refresh", s.HandlerRefreshAll)
	mux.HandleFunc("POST /refresh/{owner}/{repo}/{branch...}", s.HandlerRefreshBranch)
	mux.HandleFunc("GET /queue/{owner}/{repo}/{branch...}", s.HandlerQueue)
	mux.HandleFunc("GET /status", s.HandlerStatus)
	mux.HandleFunc("GET /status/stream", s.HandlerStatusStream)
	mux.HandleFunc("POST /event", s.HandlerEvent)

	s.logger.Info(
		"registered http handlers",
		logfields.Event("http_handlers_registered"),
	)
}

func (s *Service) HandlerAuthProbe(respWr http.ResponseWriter, _ *http.Request) {
	resp := newHTTPRespWriter(s.logger, respWr)
	resp.Header().Set("Content-Type", "text/plain")
	resp.WriteStr("mergefront does not need an oauth setup")
}
