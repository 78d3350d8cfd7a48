// Package sink contains event consumers: live connections and telemetry.
package sink

import (
	"context"
	"log/slog"

	"chathub/domain/event"
)

// ConnSink buffers events for one live connection. The transport goroutine
// drains Events and writes frames; Consume never blocks the broadcaster.
type ConnSink struct {
	Events  chan event.DomainEvent
	log     *slog.Logger
	dropped func()
}

// NewConnSink creates a sink with the given buffer size. The dropped hook,
// when non-nil, observes deliveries lost to a full buffer.
func NewConnSink(log *slog.Logger, bufferSize int, dropped func()) *ConnSink {
	return &ConnSink{
		Events:  make(chan event.DomainEvent, bufferSize),
		log:     log,
		dropped: dropped,
	}
}

// Consume is called by the fanout while holding the registry lock, so a slow
// consumer loses events instead of stalling the whole group.
func (s *ConnSink) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case s.Events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		s.log.Warn("connection buffer full, dropping event", "event", e.EventName())
		if s.dropped != nil {
			s.dropped()
		}
		return nil
	}
}
