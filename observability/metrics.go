// Package observability exposes the core's runtime metrics.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ActiveConnections prometheus.Gauge
	MessagesIngested  prometheus.Counter
	EventsFannedOut   *prometheus.CounterVec
	DroppedDeliveries prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ActiveConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "chathub_active_connections",
			Help: "Live authenticated connections.",
		}),
		MessagesIngested: factory.NewCounter(prometheus.CounterOpts{
			Name: "chathub_messages_ingested_total",
			Help: "Messages persisted by the ingestion engine.",
		}),
		EventsFannedOut: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chathub_events_fanned_out_total",
			Help: "Events delivered through broadcast groups, by event name.",
		}, []string{"event"}),
		DroppedDeliveries: factory.NewCounter(prometheus.CounterOpts{
			Name: "chathub_dropped_deliveries_total",
			Help: "Events dropped because a connection's buffer was full.",
		}),
	}
}
