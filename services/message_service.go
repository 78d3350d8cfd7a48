package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"chathub/domain"
	"chathub/domain/event"
	apperrors "chathub/errors"
	"chathub/moderation"
	"chathub/observability"
	"chathub/repositories"
	"chathub/runtime"
	"chathub/runtime/workers"
	"chathub/search"
)

const defaultMaxContentLength = 5000

type SendMessageRequest struct {
	ChatID      string   `json:"chatId"`
	Content     string   `json:"content"`
	MessageType string   `json:"messageType"`
	MediaLinks  []string `json:"mediaLinks"`
	ReplyTo     string   `json:"replyTo"`
}

type MessageQuery struct {
	ChatID      string
	SenderID    string
	MessageType string
	Search      string
	SortBy      string
	OrderBy     string
	Page        int
	Limit       int
	Skip        *int
	IncludeChat bool
}

// MessageService owns message ingestion and retrieval: it validates, censors,
// persists, indexes and fans out new messages, and serves paginated reads.
type MessageService struct {
	log       *slog.Logger
	messages  repositories.IMessageRepository
	chats     repositories.IChatRepository
	users     repositories.IUserRepository
	index     *search.MessageIndex
	moderator *moderation.Moderator
	envelopes chan<- workers.Envelope
	metrics   *observability.Metrics

	maxContentLength int
}

func NewMessageService(
	log *slog.Logger,
	messages repositories.IMessageRepository,
	chats repositories.IChatRepository,
	users repositories.IUserRepository,
	index *search.MessageIndex,
	moderator *moderation.Moderator,
	envelopes chan<- workers.Envelope,
	metrics *observability.Metrics,
	maxContentLength int,
) *MessageService {
	if maxContentLength <= 0 {
		maxContentLength = defaultMaxContentLength
	}
	return &MessageService{
		log:              log,
		messages:         messages,
		chats:            chats,
		users:            users,
		index:            index,
		moderator:        moderator,
		envelopes:        envelopes,
		metrics:          metrics,
		maxContentLength: maxContentLength,
	}
}

// Send validates and persists a message, updates the chat's latest-message
// pointer, indexes the content and fans the resolved message out to the chat
// room and to every member's self room. The returned message is the re-read,
// fully resolved document that acks and room broadcasts share.
func (s *MessageService) Send(ctx context.Context, sender domain.User, req SendMessageRequest) (domain.ResolvedMessage, error) {
	chatID := strings.TrimSpace(req.ChatID)
	if chatID == "" {
		return domain.ResolvedMessage{}, apperrors.BadRequest("chatId is required")
	}
	if err := uuid.Validate(chatID); err != nil {
		return domain.ResolvedMessage{}, apperrors.BadRequest("chatId is not a valid identifier")
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		return domain.ResolvedMessage{}, apperrors.BadRequest("content is required")
	}
	if len([]rune(content)) > s.maxContentLength {
		return domain.ResolvedMessage{}, apperrors.BadRequest("content exceeds %d characters", s.maxContentLength)
	}

	msgType, ok := domain.ParseMessageType(req.MessageType)
	if !ok {
		return domain.ResolvedMessage{}, apperrors.BadRequest("unknown message type %q", req.MessageType)
	}

	var links []string
	for _, link := range req.MediaLinks {
		if trimmed := strings.TrimSpace(link); trimmed != "" {
			links = append(links, trimmed)
		}
	}
	if msgType == domain.MessageMedia && len(links) == 0 {
		return domain.ResolvedMessage{}, apperrors.BadRequest("media messages require at least one media link")
	}

	chat, err := s.chats.GetChat(chatID)
	if err != nil {
		return domain.ResolvedMessage{}, err
	}
	if !chat.HasMember(sender.ID) {
		return domain.ResolvedMessage{}, apperrors.Forbidden("user %s is not a member of chat %s", sender.ID, chatID)
	}

	if req.ReplyTo != "" {
		parent, err := s.messages.GetMessage(req.ReplyTo)
		if err != nil {
			return domain.ResolvedMessage{}, err
		}
		if parent.ChatID != chatID {
			return domain.ResolvedMessage{}, apperrors.BadRequest("replyTo message belongs to another chat")
		}
	}

	if s.moderator != nil {
		content = s.moderator.Censor(content)
	}

	stored, err := s.messages.StoreMessage(domain.Message{
		ChatID:     chatID,
		SenderID:   sender.ID,
		Content:    content,
		Type:       msgType,
		MediaLinks: links,
		ReplyToID:  req.ReplyTo,
		ReadBy:     []string{sender.ID},
	})
	if err != nil {
		return domain.ResolvedMessage{}, err
	}

	if err := s.chats.SetLatestMessage(chatID, stored.ID); err != nil {
		return domain.ResolvedMessage{}, err
	}

	if err := s.index.Index(stored.ID, chatID, stored.Content); err != nil {
		// The message is already durable; a stale index only degrades search.
		s.log.Error("index message", slog.String("message_id", stored.ID), slog.Any("error", err))
	}

	persisted, err := s.messages.GetMessage(stored.ID)
	if err != nil {
		return domain.ResolvedMessage{}, err
	}
	resolved := s.resolve(persisted, nil)

	s.metrics.MessagesIngested.Inc()

	if err := s.dispatch(ctx, workers.Envelope{
		Group: runtime.ChatGroup(chatID),
		Event: event.NewMessage{Message: resolved},
	}); err != nil {
		return domain.ResolvedMessage{}, err
	}
	withChat := resolved
	withChat.Chat = &chat
	for _, member := range chat.Users {
		if err := s.dispatch(ctx, workers.Envelope{
			Group: runtime.UserGroup(member),
			Event: event.ChatUpdate{Message: withChat},
		}); err != nil {
			return domain.ResolvedMessage{}, err
		}
	}

	return resolved, nil
}

// List returns one page of a chat's history plus the total number of matches
// before pagination. Count and page come from the same snapshot.
func (s *MessageService) List(ctx context.Context, query MessageQuery) ([]domain.ResolvedMessage, int, error) {
	if strings.TrimSpace(query.ChatID) == "" {
		return nil, 0, apperrors.BadRequest("chatId is required")
	}

	var msgType domain.MessageType
	if query.MessageType != "" {
		parsed, ok := domain.ParseMessageType(query.MessageType)
		if !ok {
			return nil, 0, apperrors.BadRequest("unknown message type %q", query.MessageType)
		}
		msgType = parsed
	}

	sortBy, orderBy, err := normalizeSort(query.SortBy, query.OrderBy, "createdAt", "updatedAt")
	if err != nil {
		return nil, 0, err
	}
	skip, limit, err := normalizePage(query.Page, query.Limit, query.Skip)
	if err != nil {
		return nil, 0, err
	}

	var ids map[string]struct{}
	if term := strings.TrimSpace(query.Search); term != "" {
		ids, err = s.index.MatchingIDs(ctx, query.ChatID, term)
		if err != nil {
			return nil, 0, err
		}
		if len(ids) == 0 {
			return []domain.ResolvedMessage{}, 0, nil
		}
	}

	page, total, err := s.messages.ListMessages(repositories.MessageFilter{
		ChatID:   query.ChatID,
		SenderID: query.SenderID,
		Type:     msgType,
		IDs:      ids,
		SortBy:   sortBy,
		OrderBy:  orderBy,
		Skip:     skip,
		Limit:    limit,
	})
	if err != nil {
		return nil, 0, err
	}

	var chat *domain.Chat
	if query.IncludeChat {
		found, err := s.chats.GetChat(query.ChatID)
		if err != nil {
			return nil, 0, err
		}
		chat = &found
	}

	senders := make(map[string]domain.Snapshot)
	resolved := make([]domain.ResolvedMessage, 0, len(page))
	for _, msg := range page {
		item := s.resolve(msg, senders)
		item.Chat = chat
		resolved = append(resolved, item)
	}
	return resolved, total, nil
}

// resolve attaches sender snapshots to a message and, when the message is a
// reply, to its parent. Senders whose account no longer resolves are replaced
// with a placeholder so old conversations stay renderable.
func (s *MessageService) resolve(msg domain.Message, senders map[string]domain.Snapshot) domain.ResolvedMessage {
	resolved := domain.ResolvedMessage{
		Message: msg,
		Sender:  s.snapshot(msg.SenderID, senders),
	}
	if msg.ReplyToID == "" {
		return resolved
	}
	parent, err := s.messages.GetMessage(msg.ReplyToID)
	if err != nil {
		s.log.Warn("resolve replyTo", slog.String("message_id", msg.ID), slog.Any("error", err))
		return resolved
	}
	resolved.ReplyTo = &domain.ResolvedMessage{
		Message: parent,
		Sender:  s.snapshot(parent.SenderID, senders),
	}
	return resolved
}

func (s *MessageService) snapshot(userID string, cache map[string]domain.Snapshot) domain.Snapshot {
	if cache != nil {
		if snap, ok := cache[userID]; ok {
			return snap
		}
	}
	user, err := s.users.GetUser(userID)
	snap := domain.UnknownUser()
	if err == nil {
		snap = user.Snapshot()
	}
	if cache != nil {
		cache[userID] = snap
	}
	return snap
}

func (s *MessageService) dispatch(ctx context.Context, env workers.Envelope) error {
	select {
	case s.envelopes <- env:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func normalizeSort(sortBy, orderBy string, allowed ...string) (string, string, error) {
	switch {
	case sortBy == "":
		sortBy = "createdAt"
	case lo.Contains(allowed, sortBy):
	default:
		return "", "", apperrors.BadRequest("unknown sort field %q", sortBy)
	}
	switch orderBy {
	case "":
		orderBy = "desc"
	case "asc", "desc":
	default:
		return "", "", apperrors.BadRequest("orderBy must be asc or desc")
	}
	return sortBy, orderBy, nil
}

func normalizePage(page, limit int, skip *int) (int, int, error) {
	if limit < 0 {
		return 0, 0, apperrors.BadRequest("limit must not be negative")
	}
	if limit == 0 {
		limit = 10
	}
	if skip != nil {
		if *skip < 0 {
			return 0, 0, apperrors.BadRequest("skip must not be negative")
		}
		return *skip, limit, nil
	}
	if page < 1 {
		page = 1
	}
	return (page - 1) * limit, limit, nil
}
