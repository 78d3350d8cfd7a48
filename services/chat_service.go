package services

import (
	"log/slog"
	"strings"

	"github.com/samber/lo"

	"chathub/domain"
	apperrors "chathub/errors"
	"chathub/repositories"
)

type CreateChatRequest struct {
	Users       []string `json:"users"`
	IsGroupChat bool     `json:"isGroupChat"`
	Name        string   `json:"name"`
	Avatar      string   `json:"avatar"`
	GroupAdmin  string   `json:"groupAdmin"`
}

type ChatQuery struct {
	UserID      string
	IsGroupChat *bool
	Search      string
	SortBy      string
	OrderBy     string
	Page        int
	Limit       int
	Skip        *int
}

type ChatService struct {
	log   *slog.Logger
	chats repositories.IChatRepository
	users repositories.IUserRepository
}

func NewChatService(log *slog.Logger, chats repositories.IChatRepository, users repositories.IUserRepository) *ChatService {
	return &ChatService{log: log, chats: chats, users: users}
}

// Create validates chat composition rules and persists the chat. Every listed
// member must resolve to an existing user.
func (s *ChatService) Create(req CreateChatRequest) (domain.Chat, error) {
	members := lo.Uniq(lo.FilterMap(req.Users, func(id string, _ int) (string, bool) {
		trimmed := strings.TrimSpace(id)
		return trimmed, trimmed != ""
	}))

	chat := domain.Chat{
		IsGroupChat: req.IsGroupChat,
		Users:       members,
		Name:        strings.TrimSpace(req.Name),
		Avatar:      strings.TrimSpace(req.Avatar),
		GroupAdmin:  strings.TrimSpace(req.GroupAdmin),
	}
	if err := chat.Validate(); err != nil {
		return domain.Chat{}, err
	}

	for _, member := range members {
		if _, err := s.users.GetUser(member); err != nil {
			return domain.Chat{}, apperrors.BadRequest("unknown chat member %s", member)
		}
	}

	created, err := s.chats.CreateChat(chat)
	if err != nil {
		return domain.Chat{}, err
	}
	s.log.Debug("chat created",
		slog.String("chat_id", created.ID),
		slog.Bool("group", created.IsGroupChat),
		slog.Int("members", len(created.Users)))
	return created, nil
}

func (s *ChatService) Get(chatID string) (domain.Chat, error) {
	if strings.TrimSpace(chatID) == "" {
		return domain.Chat{}, apperrors.BadRequest("chat id is required")
	}
	return s.chats.GetChat(chatID)
}

// List returns one page of the user's chats plus the total match count.
func (s *ChatService) List(query ChatQuery) ([]domain.Chat, int, error) {
	if strings.TrimSpace(query.UserID) == "" {
		return nil, 0, apperrors.BadRequest("userId is required")
	}
	sortBy, orderBy, err := normalizeSort(query.SortBy, query.OrderBy, "createdAt", "updatedAt", "name")
	if err != nil {
		return nil, 0, err
	}
	skip, limit, err := normalizePage(query.Page, query.Limit, query.Skip)
	if err != nil {
		return nil, 0, err
	}
	return s.chats.ListChats(repositories.ChatFilter{
		UserID:  query.UserID,
		IsGroup: query.IsGroupChat,
		Search:  strings.TrimSpace(query.Search),
		SortBy:  sortBy,
		OrderBy: orderBy,
		Skip:    skip,
		Limit:   limit,
	})
}
