package web

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mergefront/mergefront/internal/logfields"
)

const (
	frameTypeRefresh = "refresh"
	frameTypePing    = "ping"
)

// HandlerStatusStream serves a server-sent-event stream of the
// aggregated queue status. Every client first receives a full refresh
// frame, afterwards a fresh refresh frame whenever an update
// notification arrives and a ping frame whenever the heartbeat
// interval passes without one.
//
// Notifications are best-effort: one that is missed is never
// redelivered, clients are eventually consistent through the full
// snapshot carried by every refresh frame.
func (s *Service) HandlerStatusStream(respWr http.ResponseWriter, req *http.Request) {
	flusher, ok := respWr.(http.Flusher)
	if !ok {
		s.logger.Error(
			"response writer does not support flushing, can not stream",
			logfields.Event("http_stream_unsupported"),
		)
		http.Error(respWr, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	updates, cancel, err := s.updates.Subscribe(req.Context())
	if err != nil {
		s.logger.Error(
			"subscribing to update notifications failed",
			logfields.Event("http_stream_subscribe_failed"),
			zap.Error(err),
		)
		http.Error(respWr, "", http.StatusInternalServerError)
		return
	}
	defer cancel()

	respWr.Header().Set("Content-Type", "text/event-stream")
	respWr.Header().Set("Cache-Control", "no-cache")

	metrics.StreamClientsInc()
	defer metrics.StreamClientsDec()

	s.logger.Debug("streaming client connected", logfields.Event("http_stream_client_connected"))

	if !s.writeRefreshFrame(req, respWr, flusher) {
		return
	}

	heartbeat := time.NewTimer(s.heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-req.Context().Done():
			s.logger.Debug(
				"streaming client disconnected",
				logfields.Event("http_stream_client_disconnected"),
			)
			return

		case _, open := <-updates:
			if !open {
				// subscription broke down, the client
				// reconnects and starts from a fresh
				// snapshot
				return
			}

			if !s.writeRefreshFrame(req, respWr, flusher) {
				return
			}

		case <-heartbeat.C:
			if !s.writeFrame(respWr, flusher, frameTypePing, []byte("{}")) {
				return
			}
		}

		heartbeat.Stop()
		heartbeat.Reset(s.heartbeatInterval)
	}
}

func (s *Service) writeRefreshFrame(req *http.Request, respWr http.ResponseWriter, flusher http.Flusher) bool {
	payload, err := s.globalStatusJSON(req.Context())
	if err != nil {
		s.logger.Error(
			"aggregating queue status for stream failed",
			logfields.Event("http_stream_aggregation_failed"),
			zap.Error(err),
		)
		return false
	}

	return s.writeFrame(respWr, flusher, frameTypeRefresh, payload)
}

func (s *Service) writeFrame(respWr http.ResponseWriter, flusher http.Flusher, frameType string, data []byte) bool {
	_, err := fmt.Fprintf(respWr, "event: %s\ndata: %s\n\n", frameType, data)
	if err != nil {
		s.logger.Debug(
			"writing stream frame failed",
			logfields.Event("http_stream_write_failed"),
			zap.Error(err),
		)
		return false
	}

	flusher.Flush()

	return true
}
