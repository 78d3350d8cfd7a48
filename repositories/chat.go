//go:generate go run go.uber.org/mock/mockgen -source=chat.go -destination=../mocks/mock_chat_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"chathub/domain"
	"chathub/errors"
)

type IChatRepository interface {
	CreateChat(chat domain.Chat) (domain.Chat, error)
	GetChat(id string) (domain.Chat, error)
	SetLatestMessage(chatID, messageID string) error
	ListChats(filter ChatFilter) ([]domain.Chat, int, error)
}

// ChatFilter narrows and orders a chat listing. Skip/Limit paginate;
// the returned total ignores them.
type ChatFilter struct {
	UserID  string
	IsGroup *bool
	Search  string
	SortBy  string // createdAt, updatedAt or name
	OrderBy string // asc or desc
	Skip    int
	Limit   int
}

type ChatRepository struct {
	db *badger.DB
}

func NewChatRepository(db *badger.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

func chatKey(id string) []byte { return []byte("chat:" + id) }

func (c *ChatRepository) CreateChat(chat domain.Chat) (domain.Chat, error) {
	if chat.ID == "" {
		chat.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	chat.CreatedAt = now
	chat.UpdatedAt = now

	data, err := json.Marshal(chat)
	if err != nil {
		return domain.Chat{}, fmt.Errorf("marshal chat: %w", err)
	}
	err = c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(chatKey(chat.ID), data)
	})
	if err != nil {
		return domain.Chat{}, err
	}
	return chat, nil
}

func (c *ChatRepository) GetChat(id string) (domain.Chat, error) {
	var chat domain.Chat
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(chatKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &chat)
		})
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Chat{}, errors.NotFound("chat %s not found", id)
	}
	if err != nil {
		return domain.Chat{}, err
	}
	return chat, nil
}

// SetLatestMessage updates the list-preview pointer. Last write wins per
// chat; concurrent senders may race and the pointer only reflects some
// recently created message.
func (c *ChatRepository) SetLatestMessage(chatID, messageID string) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(chatKey(chatID))
		if err != nil {
			return err
		}
		var chat domain.Chat
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &chat)
		}); err != nil {
			return err
		}
		chat.LatestMessageID = messageID
		chat.UpdatedAt = time.Now().UTC()
		data, err := json.Marshal(chat)
		if err != nil {
			return err
		}
		return txn.Set(chatKey(chatID), data)
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return errors.NotFound("chat %s not found", chatID)
	}
	return err
}

// ListChats scans the chat prefix inside a single View transaction so the
// total count and the returned page reflect the same snapshot.
func (c *ChatRepository) ListChats(filter ChatFilter) ([]domain.Chat, int, error) {
	var matches []domain.Chat
	err := c.db.View(func(txn *badger.Txn) error {
		prefix := []byte("chat:")
		options := badger.DefaultIteratorOptions
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var chat domain.Chat
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &chat)
			}); err != nil {
				return err
			}
			if matchesChatFilter(chat, filter) {
				matches = append(matches, chat)
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	sortChats(matches, filter.SortBy, filter.OrderBy)
	total := len(matches)
	return paginate(matches, filter.Skip, filter.Limit), total, nil
}

func matchesChatFilter(chat domain.Chat, filter ChatFilter) bool {
	if filter.UserID != "" && !chat.HasMember(filter.UserID) {
		return false
	}
	if filter.IsGroup != nil && chat.IsGroupChat != *filter.IsGroup {
		return false
	}
	if filter.Search != "" &&
		!strings.Contains(strings.ToLower(chat.Name), strings.ToLower(filter.Search)) {
		return false
	}
	return true
}

func sortChats(chats []domain.Chat, sortBy, orderBy string) {
	desc := orderBy == "desc"
	sort.SliceStable(chats, func(i, j int) bool {
		a, b := chats[i], chats[j]
		if desc {
			a, b = b, a
		}
		switch sortBy {
		case "updatedAt":
			return a.UpdatedAt.Before(b.UpdatedAt)
		case "name":
			return a.Name < b.Name
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	})
}

func paginate[T any](items []T, skip, limit int) []T {
	if skip < 0 {
		skip = 0
	}
	if skip >= len(items) {
		return nil
	}
	items = items[skip:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
