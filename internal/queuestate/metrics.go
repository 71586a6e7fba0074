package queuestate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricNamespace = "mergefront_queuestate"

type metricCollector struct {
	unreadableSnapshots prometheus.Counter
}

var metrics = newMetricCollector()

func newMetricCollector() *metricCollector {
	return &metricCollector{
		unreadableSnapshots: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      "unreadable_snapshots_total",
				Help:      "count of stored snapshots that could not be read or decoded during aggregation",
			},
		),
	}
}

func (m *metricCollector) UnreadableSnapshotsInc() {
	m.unreadableSnapshots.Inc()
}
