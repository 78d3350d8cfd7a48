// This file defines Message entities and related rules.
// Messages are immutable once created, except for readBy growth.
package domain

import (
	"strings"
	"time"
)

type MessageType string

const (
	MessageText  MessageType = "text"
	MessageMedia MessageType = "media"
	MessageNote  MessageType = "note"
)

// ParseMessageType maps a raw payload value to a MessageType.
// An empty value defaults to text; anything else is rejected.
func ParseMessageType(raw string) (MessageType, bool) {
	switch MessageType(strings.TrimSpace(raw)) {
	case "":
		return MessageText, true
	case MessageText:
		return MessageText, true
	case MessageMedia:
		return MessageMedia, true
	case MessageNote:
		return MessageNote, true
	default:
		return "", false
	}
}

// Message is a persisted chat event. ReplyToID, when set, references a
// message in the same chat. ReadBy insertion order is irrelevant.
type Message struct {
	ID         string      `json:"id"`
	ChatID     string      `json:"chatId"`
	SenderID   string      `json:"senderId"`
	Content    string      `json:"content"`
	Type       MessageType `json:"messageType"`
	MediaLinks []string    `json:"mediaLinks,omitempty"`
	ReplyToID  string      `json:"replyTo,omitempty"`
	ReadBy     []string    `json:"readBy"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

// ResolvedMessage is a message joined with its sender and, when present, its
// reply-to message for display purposes. The reply-to resolution never nests
// further than one level.
type ResolvedMessage struct {
	Message
	Sender  Snapshot         `json:"sender"`
	ReplyTo *ResolvedMessage `json:"replyToMessage,omitempty"`
	Chat    *Chat            `json:"chat,omitempty"`
}
