package web

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/mergefront/mergefront/internal/logfields"
)

const metricNamespace = "mergefront_web"

const scopeLabel = "scope"

const (
	refreshScopeBranch = "branch"
	refreshScopeAll    = "all"
)

type metricCollector struct {
	logger          *zap.Logger
	streamClients   prometheus.Gauge
	refreshTriggers *prometheus.CounterVec
}

var metrics = newMetricCollector()

func newMetricCollector() *metricCollector {
	return &metricCollector{
		logger: zap.L().Named(loggerName).Named("metrics"),
		streamClients: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricNamespace,
				Name:      "stream_clients",
				Help:      "count of connected status stream clients",
			},
		),
		refreshTriggers: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      "refresh_triggers_total",
				Help:      "count of triggered refresh operations",
			},
			[]string{scopeLabel},
		),
	}
}

func (m *metricCollector) StreamClientsInc() {
	m.streamClients.Inc()
}

func (m *metricCollector) StreamClientsDec() {
	m.streamClients.Dec()
}

func (m *metricCollector) RefreshTriggersInc(scope string) {
	cnt, err := m.refreshTriggers.GetMetricWith(prometheus.Labels{scopeLabel: scope})
	if err != nil {
		m.logger.Warn(
			"could not record metric",
			zap.String("metric", "refresh_triggers_total"),
			logfields.Event("recording_metric_failed"),
			zap.Error(err),
		)
		return
	}

	cnt.Inc()
}
