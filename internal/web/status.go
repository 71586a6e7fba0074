package web

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/mergefront/mergefront/internal/logfields"
	"github.com/mergefront/mergefront/internal/queuestate"
)

// HandlerQueue returns the stored snapshot of one merge queue as a
// JSON array. A queue that was never written yields the empty array,
// absence is a normal state.
func (s *Service) HandlerQueue(respWr http.ResponseWriter, req *http.Request) {
	key, err := queuestate.NewKey(
		req.PathValue("owner"),
		req.PathValue("repo"),
		req.PathValue("branch"),
	)
	if err != nil {
		http.Error(respWr, err.Error(), http.StatusBadRequest)
		return
	}

	payload, err := s.queues.Raw(req.Context(), key)
	if err != nil {
		s.logger.Error(
			"reading queue snapshot failed",
			logfields.Event("http_queue_read_failed"),
			logfields.QueueKey(key.String()),
			zap.Error(err),
		)
		http.Error(respWr, "", http.StatusInternalServerError)
		return
	}

	resp := newHTTPRespWriter(s.logger, respWr)
	resp.Header().Set("Content-Type", "application/json")

	if payload == nil {
		resp.WriteStr("[]")
		return
	}

	_, err = resp.Write(payload)
	if err != nil {
		s.logger.Info("sending http response failed", zap.Error(err))
	}
}

// HandlerStatus returns the aggregated state of all tracked merge
// queues as a JSON array. The order of the array is unspecified.
func (s *Service) HandlerStatus(respWr http.ResponseWriter, req *http.Request) {
	payload, err := s.globalStatusJSON(req.Context())
	if err != nil {
		s.logger.Error(
			"aggregating queue status failed",
			logfields.Event("http_status_aggregation_failed"),
			zap.Error(err),
		)
		http.Error(respWr, "", http.StatusInternalServerError)
		return
	}

	respWr.Header().Set("Content-Type", "application/json")

	if _, err := respWr.Write(payload); err != nil {
		s.logger.Info("sending http response failed", zap.Error(err))
	}
}

func (s *Service) globalStatusJSON(ctx context.Context) ([]byte, error) {
	snapshots, err := s.status.GlobalStatus(ctx)
	if err != nil {
		return nil, err
	}

	if snapshots == nil {
		snapshots = []*queuestate.Snapshot{}
	}

	return json.Marshal(snapshots)
}
