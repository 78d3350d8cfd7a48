package rest

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"chathub/domain"
	apperrors "chathub/errors"
	"chathub/services"
)

type MessageHandler struct {
	log      *slog.Logger
	messages *services.MessageService
	chats    *services.ChatService
}

func NewMessageHandler(log *slog.Logger, messages *services.MessageService, chats *services.ChatService) *MessageHandler {
	return &MessageHandler{log: log, messages: messages, chats: chats}
}

type messageListResponse struct {
	Messages   []json.RawMessage `json:"messages"`
	TotalItems int               `json:"totalItems"`
}

// List serves one page of a chat's history. Only members of the chat may
// read it. The fields parameter projects each message down to the named
// top-level keys.
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	session, ok := SessionFrom(r.Context())
	if !ok {
		writeError(h.log, w, apperrors.Unauthorized("authentication required"))
		return
	}

	q := r.URL.Query()
	chatID := strings.TrimSpace(q.Get("chatId"))
	if chatID == "" {
		writeError(h.log, w, apperrors.BadRequest("chatId is required"))
		return
	}
	chat, err := h.chats.Get(chatID)
	if err != nil {
		writeError(h.log, w, err)
		return
	}
	if !chat.HasMember(session.User.ID) {
		writeError(h.log, w, apperrors.Forbidden("user %s is not a member of chat %s", session.User.ID, chatID))
		return
	}

	query := services.MessageQuery{
		ChatID:      chatID,
		SenderID:    q.Get("senderId"),
		MessageType: q.Get("messageType"),
		Search:      q.Get("search"),
		SortBy:      q.Get("sortBy"),
		OrderBy:     q.Get("orderBy"),
	}
	if raw := q.Get("includeChat"); raw != "" {
		include, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(h.log, w, apperrors.BadRequest("includeChat must be a boolean"))
			return
		}
		query.IncludeChat = include
	}
	if query.Page, query.Limit, query.Skip, err = pageParams(q); err != nil {
		writeError(h.log, w, err)
		return
	}

	messages, total, err := h.messages.List(r.Context(), query)
	if err != nil {
		writeError(h.log, w, err)
		return
	}

	projected, err := projectMessages(messages, q.Get("fields"))
	if err != nil {
		writeError(h.log, w, err)
		return
	}
	writeJSON(h.log, w, http.StatusOK, messageListResponse{Messages: projected, TotalItems: total})
}

// projectMessages re-encodes each message, keeping only the requested
// top-level fields. The id field always survives so items stay addressable.
func projectMessages(messages []domain.ResolvedMessage, fields string) ([]json.RawMessage, error) {
	keep := make(map[string]struct{})
	for _, field := range strings.Split(fields, ",") {
		if field = strings.TrimSpace(field); field != "" {
			keep[field] = struct{}{}
		}
	}
	if len(keep) > 0 {
		keep["id"] = struct{}{}
	}

	projected := make([]json.RawMessage, 0, len(messages))
	for _, msg := range messages {
		raw, err := json.Marshal(msg)
		if err != nil {
			return nil, apperrors.Internal(err)
		}
		if len(keep) == 0 {
			projected = append(projected, raw)
			continue
		}
		var doc map[string]json.RawMessage
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, apperrors.Internal(err)
		}
		for key := range doc {
			if _, ok := keep[key]; !ok {
				delete(doc, key)
			}
		}
		raw, err = json.Marshal(doc)
		if err != nil {
			return nil, apperrors.Internal(err)
		}
		projected = append(projected, raw)
	}
	return projected, nil
}
