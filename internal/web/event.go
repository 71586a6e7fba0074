package web

import (
	"errors"
	"io"
	"net/http"

	"github.com/google/go-github/v67/github"
	"go.uber.org/zap"

	"github.com/mergefront/mergefront/internal/hookauth"
	"github.com/mergefront/mergefront/internal/logfields"
	"github.com/mergefront/mergefront/internal/webhook"
)

// maxEventBodySize bounds webhook request bodies, github caps payloads
// at 25MiB.
const maxEventBodySize = 25 << 20

// HandlerEvent is the generic webhook intake. The request is rejected
// before any processing when the signature is invalid, queueable
// events are enqueued and every authenticated event is acknowledged
// with 202 without waiting for job execution.
func (s *Service) HandlerEvent(respWr http.ResponseWriter, req *http.Request) {
	body, err := io.ReadAll(io.LimitReader(req.Body, maxEventBodySize))
	if err != nil {
		s.logger.Info(
			"reading event request body failed",
			logfields.Event("http_event_body_read_failed"),
			zap.Error(err),
		)
		respWr.WriteHeader(http.StatusBadRequest)
		return
	}

	if err := s.auth.Verify(body, req.Header.Get(hookauth.HeaderName)); err != nil {
		// no diagnostic body, verification details must not leak
		// to the sender
		respWr.WriteHeader(http.StatusForbidden)
		return
	}

	eventType := github.WebHookType(req)
	deliveryID := github.DeliveryID(req)

	_, err = s.events.Process(req.Context(), eventType, deliveryID, body)
	if err != nil {
		if errors.Is(err, webhook.ErrMalformedPayload) {
			http.Error(respWr, "invalid json body", http.StatusBadRequest)
			return
		}

		// the job was not stored durably, acknowledging would
		// silently drop the event, the sender redelivers on 5xx
		s.logger.Error(
			"processing event failed",
			logfields.Event("http_event_processing_failed"),
			logfields.EventType(eventType),
			logfields.DeliveryID(deliveryID),
			zap.Error(err),
		)
		http.Error(respWr, "", http.StatusInternalServerError)
		return
	}

	respWr.WriteHeader(http.StatusAccepted)
}
