package ws

import (
	"encoding/json"
	"log/slog"
	"sync"

	"golang.org/x/net/websocket"

	apperrors "chathub/errors"
)

// Frame is the wire unit for both directions. Client frames carry an event
// name, an optional ackId and an event-specific payload; server frames reuse
// the same shape for broadcasts, acks and out-of-band errors.
type Frame struct {
	Event   string          `json:"event"`
	AckID   string          `json:"ackId,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type ackBody struct {
	OK    bool      `json:"ok"`
	Data  any       `json:"data,omitempty"`
	Error *ackError `json:"error,omitempty"`
}

type ackError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// peer serializes writes to a connection. Acks come from the read loop while
// broadcasts come from the delivery goroutine, so every write takes the lock.
type peer struct {
	mu   sync.Mutex
	conn *websocket.Conn
	log  *slog.Logger
}

func newPeer(log *slog.Logger, conn *websocket.Conn) *peer {
	return &peer{conn: conn, log: log}
}

func (p *peer) write(frame Frame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return websocket.JSON.Send(p.conn, frame)
}

func (p *peer) event(name string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		p.log.Error("marshal event payload", slog.String("event", name), slog.Any("error", err))
		return
	}
	if err := p.write(Frame{Event: name, Payload: raw}); err != nil {
		p.log.Debug("write event", slog.String("event", name), slog.Any("error", err))
	}
}

// ack reports the outcome of a client frame. With an ackId the reply is an
// ack frame; without one, failures surface as an error event and successes
// stay silent.
func (p *peer) ack(ackID string, data any, err error) {
	if err == nil {
		if ackID == "" {
			return
		}
		p.writeAck(Frame{Event: "ack", AckID: ackID}, ackBody{OK: true, Data: data})
		return
	}

	body := ackBody{OK: false, Error: &ackError{
		Code:    string(apperrors.CodeOf(err)),
		Message: apperrors.MessageOf(err),
	}}
	if ackID == "" {
		p.writeAck(Frame{Event: "error"}, body)
		return
	}
	p.writeAck(Frame{Event: "ack", AckID: ackID}, body)
}

func (p *peer) writeAck(frame Frame, body ackBody) {
	raw, err := json.Marshal(body)
	if err != nil {
		p.log.Error("marshal ack", slog.Any("error", err))
		return
	}
	frame.Payload = raw
	if err := p.write(frame); err != nil {
		p.log.Debug("write ack", slog.Any("error", err))
	}
}
