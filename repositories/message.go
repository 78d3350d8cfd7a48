//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"chathub/domain"
	"chathub/errors"
)

type IMessageRepository interface {
	StoreMessage(message domain.Message) (domain.Message, error)
	GetMessage(id string) (domain.Message, error)
	ListMessages(filter MessageFilter) ([]domain.Message, int, error)
}

// MessageFilter narrows and orders a message listing. IDs, when non-nil,
// is an allow-set produced by the search index. The returned total ignores
// Skip/Limit.
type MessageFilter struct {
	ChatID   string
	SenderID string
	Type     domain.MessageType
	IDs      map[string]struct{}
	SortBy   string // createdAt or updatedAt
	OrderBy  string // asc or desc
	Skip     int
	Limit    int
}

type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) *MessageRepository {
	return &MessageRepository{db: db, log: log}
}

// messageKey is formatted as "msg:{chat_id}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding
//     (lexicographical order).
//  2. Prevent data loss by using the UUID as a collision disconnector if two
//     messages arrive at the same nanosecond.
func messageKey(m domain.Message) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%s", m.ChatID, m.CreatedAt.UnixNano(), m.ID))
}

// messageIDKey maps a message id to its composite key for point lookups.
func messageIDKey(id string) []byte { return []byte("msg_id:" + id) }

// StoreMessage persists a message and its id index in one transaction.
func (m *MessageRepository) StoreMessage(message domain.Message) (domain.Message, error) {
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if message.CreatedAt.IsZero() {
		message.CreatedAt = now
	}
	message.UpdatedAt = now

	data, err := json.Marshal(message)
	if err != nil {
		return domain.Message{}, fmt.Errorf("marshal message: %w", err)
	}
	key := messageKey(message)
	err = m.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, data); err != nil {
			return err
		}
		return txn.Set(messageIDKey(message.ID), key)
	})
	if err != nil {
		return domain.Message{}, err
	}
	return message, nil
}

func (m *MessageRepository) GetMessage(id string) (domain.Message, error) {
	var message domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		idx, err := txn.Get(messageIDKey(id))
		if err != nil {
			return err
		}
		var key []byte
		if err := idx.Value(func(val []byte) error {
			key = append([]byte(nil), val...)
			return nil
		}); err != nil {
			return err
		}
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &message)
		})
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Message{}, errors.NotFound("message %s not found", id)
	}
	if err != nil {
		return domain.Message{}, err
	}
	return message, nil
}

// ListMessages scans the chat's key range inside a single View transaction,
// so the total count and the page reflect the same filter snapshot. Keys are
// naturally ordered by creation time thanks to the padded timestamp.
func (m *MessageRepository) ListMessages(filter MessageFilter) ([]domain.Message, int, error) {
	if filter.ChatID == "" {
		return nil, 0, errors.BadRequest("chatId is required")
	}

	var matches []domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("msg:%s:", filter.ChatID))
		options := badger.DefaultIteratorOptions
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var message domain.Message
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &message)
			}); err != nil {
				return err
			}
			if matchesMessageFilter(message, filter) {
				matches = append(matches, message)
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	sortMessages(matches, filter.SortBy, filter.OrderBy)
	total := len(matches)
	page := paginate(matches, filter.Skip, filter.Limit)
	m.log.Debug("listed messages", "chat_id", filter.ChatID, "total", total, "page", len(page))
	return page, total, nil
}

func matchesMessageFilter(message domain.Message, filter MessageFilter) bool {
	if filter.SenderID != "" && message.SenderID != filter.SenderID {
		return false
	}
	if filter.Type != "" && message.Type != filter.Type {
		return false
	}
	if filter.IDs != nil {
		if _, ok := filter.IDs[message.ID]; !ok {
			return false
		}
	}
	return true
}

// sortMessages defaults to createdAt descending, newest first.
func sortMessages(messages []domain.Message, sortBy, orderBy string) {
	asc := orderBy == "asc"
	sort.SliceStable(messages, func(i, j int) bool {
		a, b := messages[i], messages[j]
		if !asc {
			a, b = b, a
		}
		if sortBy == "updatedAt" {
			return a.UpdatedAt.Before(b.UpdatedAt)
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}
