package sink

import (
	"context"

	"chathub/domain/event"
	"chathub/observability"
)

// TelemetrySink counts fanned-out events by name. Best effort only; it is
// intended for observability, not for core domain logic.
type TelemetrySink struct {
	metrics *observability.Metrics
}

func NewTelemetrySink(metrics *observability.Metrics) *TelemetrySink {
	return &TelemetrySink{metrics: metrics}
}

func (s *TelemetrySink) Consume(_ context.Context, e event.DomainEvent) error {
	s.metrics.EventsFannedOut.WithLabelValues(e.EventName()).Inc()
	return nil
}
