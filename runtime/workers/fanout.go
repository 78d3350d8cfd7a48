package workers

import (
	"context"
	"log/slog"

	"chathub/contract"
	"chathub/domain/event"
)

// Envelope targets one event at a broadcast group. An empty Group means
// every live connection.
type Envelope struct {
	Group  string
	Except contract.ConnID
	Event  event.DomainEvent
}

// EventFanout drains the engine's event channel and delivers each envelope
// through the registry, plus any permanent sinks (telemetry, projections).
//
// It provides best-effort fan-out with no guarantees regarding delivery,
// durability, or retries across reconnects; clients reconcile via the
// retrieval services. Running a single fanout worker preserves the relative
// order of emissions within each group.
type EventFanout struct {
	log       *slog.Logger
	envelopes chan Envelope
	registry  contract.IRegistry
	sinks     []contract.EventSink
}

func NewEventFanout(log *slog.Logger, envelopes chan Envelope, registry contract.IRegistry) *EventFanout {
	return &EventFanout{log: log, envelopes: envelopes, registry: registry}
}

// Add registers permanent sinks that observe every fanned-out event.
func (w *EventFanout) Add(sinks ...contract.EventSink) *EventFanout {
	w.sinks = append(w.sinks, sinks...)
	return w
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping fanout")
			return nil
		case envelope, ok := <-w.envelopes:
			if !ok {
				return nil
			}
			w.Fanout(ctx, envelope)
		}
	}
}

func (w *EventFanout) Fanout(ctx context.Context, envelope Envelope) {
	if envelope.Group == "" {
		w.registry.BroadcastAll(ctx, envelope.Event, envelope.Except)
	} else {
		w.registry.Broadcast(ctx, envelope.Group, envelope.Event, envelope.Except)
	}
	for _, sink := range w.sinks {
		if err := sink.Consume(ctx, envelope.Event); err != nil {
			w.log.Debug("permanent sink rejected event", "event", envelope.Event.EventName(), "error", err)
		}
	}
}
