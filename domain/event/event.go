// Package event defines the real-time events fanned out to connected clients.
package event

import (
	"encoding/json"

	"chathub/domain"
)

// DomainEvent is anything deliverable through a broadcast group.
// EventName is the wire-level event identifier; EventPayload is marshalled
// as the frame payload.
type DomainEvent interface {
	EventName() string
	EventPayload() any
}

// UserOnline is broadcast to every other connection when a user's first
// live connection is established.
type UserOnline struct {
	User domain.Snapshot
}

func (e UserOnline) EventName() string { return "user-online" }
func (e UserOnline) EventPayload() any { return e.User }

// UserOffline is broadcast when a user's last live connection closes.
type UserOffline struct {
	UserID string
}

func (e UserOffline) EventName() string { return "user-offline" }
func (e UserOffline) EventPayload() any { return e.UserID }

// NewMessage is delivered to the chat-scoped group of the owning chat.
type NewMessage struct {
	Message domain.ResolvedMessage
}

func (e NewMessage) EventName() string { return "new-message" }
func (e NewMessage) EventPayload() any { return e.Message }

// ChatUpdate is delivered to the self-room of every chat member so list
// views refresh even when the chat is not open.
type ChatUpdate struct {
	Message domain.ResolvedMessage
}

func (e ChatUpdate) EventName() string { return "new-message-chat-update" }
func (e ChatUpdate) EventPayload() any { return e.Message }

// TypingStarted and TypingEnded relay ephemeral typing hints verbatim.
// The user payload is whatever the sending client supplied.
type TypingStarted struct {
	ChatID string          `json:"chatId"`
	User   json.RawMessage `json:"user"`
}

func (e TypingStarted) EventName() string { return "server-user-started-typing" }
func (e TypingStarted) EventPayload() any { return e }

type TypingEnded struct {
	ChatID string          `json:"chatId"`
	User   json.RawMessage `json:"user"`
}

func (e TypingEnded) EventName() string { return "server-user-ended-typing" }
func (e TypingEnded) EventPayload() any { return e }

// TokenRefreshed is sent to a single connection whose access token was
// re-minted from the refresh token during the handshake.
type TokenRefreshed struct {
	AccessToken string `json:"accessToken"`
}

func (e TokenRefreshed) EventName() string { return "token-refreshed" }
func (e TokenRefreshed) EventPayload() any { return e }
