package ws

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"
	"golang.org/x/time/rate"

	"chathub/auth"
	"chathub/contract"
	"chathub/domain"
	"chathub/domain/event"
	apperrors "chathub/errors"
	"chathub/observability"
	"chathub/runtime"
	"chathub/runtime/workers"
	"chathub/services"
	"chathub/sink"
)

const maxDecodeErrors = 5

type Options struct {
	// EventBuffer is the per-connection delivery queue size.
	EventBuffer int
	// FramesPerSecond throttles inbound frames on each connection.
	FramesPerSecond float64
	// FrameBurst is the throttle's burst allowance.
	FrameBurst int
}

func (o Options) withDefaults() Options {
	if o.EventBuffer <= 0 {
		o.EventBuffer = 64
	}
	if o.FramesPerSecond <= 0 {
		o.FramesPerSecond = 20
	}
	if o.FrameBurst <= 0 {
		o.FrameBurst = 40
	}
	return o
}

// Gateway terminates websocket connections: it authenticates the upgrade,
// tracks presence, relays typing, and routes client frames to the services.
type Gateway struct {
	log        *slog.Logger
	gatekeeper *auth.Gatekeeper
	presence   *services.PresenceTracker
	messages   *services.MessageService
	chats      *services.ChatService
	registry   contract.IRegistry
	envelopes  chan<- workers.Envelope
	metrics    *observability.Metrics
	opts       Options
}

func NewGateway(
	log *slog.Logger,
	gatekeeper *auth.Gatekeeper,
	presence *services.PresenceTracker,
	messages *services.MessageService,
	chats *services.ChatService,
	registry contract.IRegistry,
	envelopes chan<- workers.Envelope,
	metrics *observability.Metrics,
	opts Options,
) *Gateway {
	return &Gateway{
		log:        log,
		gatekeeper: gatekeeper,
		presence:   presence,
		messages:   messages,
		chats:      chats,
		registry:   registry,
		envelopes:  envelopes,
		metrics:    metrics,
		opts:       opts.withDefaults(),
	}
}

type sessionContextKey struct{}

// Handler authenticates the HTTP upgrade request before handing the
// connection to the websocket loop. Unauthenticated upgrades are rejected
// with 401 before any frame is exchanged.
func (g *Gateway) Handler() http.Handler {
	wsHandler := websocket.Handler(g.handleConn)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		session, err := g.gatekeeper.Authenticate(r)
		if err != nil {
			g.log.Debug("websocket upgrade rejected", slog.Any("error", err))
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		r = r.WithContext(context.WithValue(r.Context(), sessionContextKey{}, session))
		wsHandler.ServeHTTP(w, r)
	})
}

func (g *Gateway) handleConn(conn *websocket.Conn) {
	defer func() { _ = conn.Close() }()

	session, ok := conn.Request().Context().Value(sessionContextKey{}).(auth.Session)
	if !ok {
		return
	}
	user := session.User

	ctx, cancel := context.WithCancel(conn.Request().Context())
	defer cancel()

	connID := contract.ConnID(uuid.NewString())
	p := newPeer(g.log, conn)
	connSink := sink.NewConnSink(g.log, g.opts.EventBuffer, g.metrics.DroppedDeliveries.Inc)

	if err := g.presence.Connect(ctx, connID, user, connSink); err != nil {
		g.log.Error("presence connect", slog.String("user_id", user.ID), slog.Any("error", err))
		return
	}
	g.metrics.ActiveConnections.Inc()
	defer func() {
		g.metrics.ActiveConnections.Dec()
		if err := g.presence.Disconnect(context.WithoutCancel(ctx), connID, user.ID); err != nil {
			g.log.Error("presence disconnect", slog.String("user_id", user.ID), slog.Any("error", err))
		}
	}()

	go g.deliver(ctx, p, connSink)

	// A connection admitted on its refresh token learns its new access token
	// as the first frame.
	if session.FreshAccessToken != "" {
		refreshed := event.TokenRefreshed{AccessToken: session.FreshAccessToken}
		p.event(refreshed.EventName(), refreshed.EventPayload())
	}

	g.readLoop(ctx, conn, p, connID, user)
}

// deliver pumps fan-out events onto the wire until the connection ends.
func (g *Gateway) deliver(ctx context.Context, p *peer, connSink *sink.ConnSink) {
	for {
		select {
		case e := <-connSink.Events:
			p.event(e.EventName(), e.EventPayload())
		case <-ctx.Done():
			return
		}
	}
}

func (g *Gateway) readLoop(ctx context.Context, conn *websocket.Conn, p *peer, connID contract.ConnID, user domain.User) {
	limiter := rate.NewLimiter(rate.Limit(g.opts.FramesPerSecond), g.opts.FrameBurst)
	decoder := json.NewDecoder(conn)
	decodeErrors := 0

	for {
		var frame Frame
		if err := decoder.Decode(&frame); err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return
			}
			decodeErrors++
			p.ack("", nil, apperrors.BadRequest("invalid frame"))
			if decodeErrors >= maxDecodeErrors {
				return
			}
			continue
		}
		decodeErrors = 0

		if err := limiter.Wait(ctx); err != nil {
			return
		}
		g.route(ctx, p, connID, user, frame)
	}
}

func (g *Gateway) route(ctx context.Context, p *peer, connID contract.ConnID, user domain.User, frame Frame) {
	switch frame.Event {
	case "join-chat":
		g.handleJoinChat(p, connID, user, frame)
	case "leave-chat":
		g.handleLeaveChat(p, connID, frame)
	case "reg-user-chat-updates":
		g.handleRegUpdates(p, connID, user, frame, true)
	case "unreg-user-chat-updates":
		g.handleRegUpdates(p, connID, user, frame, false)
	case "send-message":
		g.handleSendMessage(ctx, p, user, frame)
	case "user-start-typing":
		g.handleTyping(ctx, p, connID, user, frame, true)
	case "user-end-typing":
		g.handleTyping(ctx, p, connID, user, frame, false)
	default:
		p.ack(frame.AckID, nil, apperrors.BadRequest("unknown event %q", frame.Event))
	}
}

func (g *Gateway) handleJoinChat(p *peer, connID contract.ConnID, user domain.User, frame Frame) {
	chatID, err := decodeChatID(frame.Payload)
	if err != nil {
		p.ack(frame.AckID, nil, err)
		return
	}
	chat, err := g.chats.Get(chatID)
	if err != nil {
		p.ack(frame.AckID, nil, err)
		return
	}
	if !chat.HasMember(user.ID) {
		p.ack(frame.AckID, nil, apperrors.Forbidden("user %s is not a member of chat %s", user.ID, chatID))
		return
	}
	g.registry.Join(connID, runtime.ChatGroup(chatID))
	p.ack(frame.AckID, map[string]string{"chatId": chatID}, nil)
}

func (g *Gateway) handleLeaveChat(p *peer, connID contract.ConnID, frame Frame) {
	chatID, err := decodeChatID(frame.Payload)
	if err != nil {
		p.ack(frame.AckID, nil, err)
		return
	}
	g.registry.Leave(connID, runtime.ChatGroup(chatID))
	p.ack(frame.AckID, map[string]string{"chatId": chatID}, nil)
}

// handleRegUpdates joins or leaves the caller's own chat-update room. A
// connection can only subscribe to updates addressed to its own user.
func (g *Gateway) handleRegUpdates(p *peer, connID contract.ConnID, user domain.User, frame Frame, join bool) {
	userID, err := decodeUserID(frame.Payload)
	if err != nil {
		p.ack(frame.AckID, nil, err)
		return
	}
	if userID != "" && userID != user.ID {
		p.ack(frame.AckID, nil, apperrors.Forbidden("cannot subscribe to another user's updates"))
		return
	}
	if join {
		g.registry.Join(connID, runtime.UserGroup(user.ID))
	} else {
		g.registry.Leave(connID, runtime.UserGroup(user.ID))
	}
	p.ack(frame.AckID, map[string]string{"userId": user.ID}, nil)
}

func (g *Gateway) handleSendMessage(ctx context.Context, p *peer, user domain.User, frame Frame) {
	var req services.SendMessageRequest
	if err := json.Unmarshal(frame.Payload, &req); err != nil {
		p.ack(frame.AckID, nil, apperrors.BadRequest("invalid send-message payload"))
		return
	}
	resolved, err := g.messages.Send(ctx, user, req)
	if err != nil {
		p.ack(frame.AckID, nil, err)
		return
	}
	p.ack(frame.AckID, resolved, nil)
}

type typingPayload struct {
	ChatID string          `json:"chatId"`
	User   json.RawMessage `json:"user"`
}

// handleTyping relays a typing notification to everyone viewing the chat
// except the typist's own connection. The user object is passed through
// untouched so clients render whatever profile shape they sent.
func (g *Gateway) handleTyping(ctx context.Context, p *peer, connID contract.ConnID, user domain.User, frame Frame, started bool) {
	var payload typingPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		p.ack(frame.AckID, nil, apperrors.BadRequest("invalid typing payload"))
		return
	}
	if strings.TrimSpace(payload.ChatID) == "" {
		p.ack(frame.AckID, nil, apperrors.BadRequest("chatId is required"))
		return
	}
	if len(payload.User) == 0 {
		snap, err := json.Marshal(user.Snapshot())
		if err == nil {
			payload.User = snap
		}
	}

	var e event.DomainEvent
	if started {
		e = event.TypingStarted{ChatID: payload.ChatID, User: payload.User}
	} else {
		e = event.TypingEnded{ChatID: payload.ChatID, User: payload.User}
	}
	env := workers.Envelope{Group: runtime.ChatGroup(payload.ChatID), Except: connID, Event: e}
	select {
	case g.envelopes <- env:
	case <-ctx.Done():
		return
	}
	p.ack(frame.AckID, nil, nil)
}

// decodeChatID accepts both a bare JSON string and a {"chatId": "..."} object.
func decodeChatID(raw json.RawMessage) (string, error) {
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		if id = strings.TrimSpace(id); id != "" {
			return id, nil
		}
		return "", apperrors.BadRequest("chatId is required")
	}
	var obj struct {
		ChatID string `json:"chatId"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", apperrors.BadRequest("invalid chat payload")
	}
	if obj.ChatID = strings.TrimSpace(obj.ChatID); obj.ChatID == "" {
		return "", apperrors.BadRequest("chatId is required")
	}
	return obj.ChatID, nil
}

func decodeUserID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return strings.TrimSpace(id), nil
	}
	var obj struct {
		UserID string `json:"userId"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", apperrors.BadRequest("invalid user payload")
	}
	return strings.TrimSpace(obj.UserID), nil
}
