package webhook

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/mergefront/mergefront/internal/logfields"
)

const metricNamespace = "mergefront_webhook"

const eventTypeLabel = "event_type"

type metricCollector struct {
	logger         *zap.Logger
	receivedEvents *prometheus.CounterVec
	enqueuedJobs   prometheus.Counter
}

var metrics = newMetricCollector()

func newMetricCollector() *metricCollector {
	return &metricCollector{
		logger: zap.L().Named(loggerName).Named("metrics"),
		receivedEvents: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      "received_events_total",
				Help:      "count of received webhook events",
			},
			[]string{eventTypeLabel},
		),
		enqueuedJobs: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      "enqueued_jobs_total",
				Help:      "count of webhook events enqueued as jobs",
			},
		),
	}
}

func (m *metricCollector) ReceivedEventsInc(eventType string) {
	cnt, err := m.receivedEvents.GetMetricWith(prometheus.Labels{eventTypeLabel: eventType})
	if err != nil {
		m.logger.Warn(
			"could not record metric",
			zap.String("metric", "received_events_total"),
			logfields.Event("recording_metric_failed"),
			zap.Error(err),
		)
		return
	}

	cnt.Inc()
}

func (m *metricCollector) EnqueuedJobsInc() {
	m.enqueuedJobs.Inc()
}
