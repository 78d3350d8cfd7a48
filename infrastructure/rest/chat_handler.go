package rest

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"chathub/domain"
	apperrors "chathub/errors"
	"chathub/services"
)

type ChatHandler struct {
	log   *slog.Logger
	chats *services.ChatService
}

func NewChatHandler(log *slog.Logger, chats *services.ChatService) *ChatHandler {
	return &ChatHandler{log: log, chats: chats}
}

type chatListResponse struct {
	Chats      []domain.Chat `json:"chats"`
	TotalItems int           `json:"totalItems"`
}

// List returns one page of the caller's chats. The userId parameter is
// accepted for compatibility but must match the authenticated user.
func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	session, ok := SessionFrom(r.Context())
	if !ok {
		writeError(h.log, w, apperrors.Unauthorized("authentication required"))
		return
	}

	q := r.URL.Query()
	if userID := strings.TrimSpace(q.Get("userId")); userID != "" && userID != session.User.ID {
		writeError(h.log, w, apperrors.Forbidden("cannot list another user's chats"))
		return
	}

	query := services.ChatQuery{
		UserID:  session.User.ID,
		Search:  q.Get("search"),
		SortBy:  q.Get("sortBy"),
		OrderBy: q.Get("orderBy"),
	}
	if raw := q.Get("isGroupChat"); raw != "" {
		isGroup, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(h.log, w, apperrors.BadRequest("isGroupChat must be a boolean"))
			return
		}
		query.IsGroupChat = &isGroup
	}
	var err error
	if query.Page, query.Limit, query.Skip, err = pageParams(q); err != nil {
		writeError(h.log, w, err)
		return
	}

	chats, total, err := h.chats.List(query)
	if err != nil {
		writeError(h.log, w, err)
		return
	}
	writeJSON(h.log, w, http.StatusOK, chatListResponse{Chats: chats, TotalItems: total})
}

func (h *ChatHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, ok := SessionFrom(r.Context())
	if !ok {
		writeError(h.log, w, apperrors.Unauthorized("authentication required"))
		return
	}
	chat, err := h.chats.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(h.log, w, err)
		return
	}
	if !chat.HasMember(session.User.ID) {
		writeError(h.log, w, apperrors.Forbidden("user %s is not a member of chat %s", session.User.ID, chat.ID))
		return
	}
	writeJSON(h.log, w, http.StatusOK, chat)
}

// Create makes a chat. The caller is always included as a member.
func (h *ChatHandler) Create(w http.ResponseWriter, r *http.Request) {
	session, ok := SessionFrom(r.Context())
	if !ok {
		writeError(h.log, w, apperrors.Unauthorized("authentication required"))
		return
	}
	var req services.CreateChatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(h.log, w, err)
		return
	}
	req.Users = append(req.Users, session.User.ID)

	chat, err := h.chats.Create(req)
	if err != nil {
		writeError(h.log, w, err)
		return
	}
	writeJSON(h.log, w, http.StatusCreated, chat)
}

func pageParams(q map[string][]string) (page, limit int, skip *int, err error) {
	get := func(key string) string {
		if vals := q[key]; len(vals) > 0 {
			return strings.TrimSpace(vals[0])
		}
		return ""
	}
	if raw := get("page"); raw != "" {
		if page, err = strconv.Atoi(raw); err != nil {
			return 0, 0, nil, apperrors.BadRequest("page must be an integer")
		}
	}
	if raw := get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil {
			return 0, 0, nil, apperrors.BadRequest("limit must be an integer")
		}
	}
	if raw := get("skip"); raw != "" {
		value, convErr := strconv.Atoi(raw)
		if convErr != nil {
			return 0, 0, nil, apperrors.BadRequest("skip must be an integer")
		}
		skip = &value
	}
	return page, limit, skip, nil
}
