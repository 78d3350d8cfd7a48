// Package search maintains the message-content index backing the retrieval
// services' search filter.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/blugelabs/bluge"
)

// MessageIndex stores each message's content as a single lowercased keyword
// term, scoped by chat. A wildcard query over that term gives exact
// case-insensitive substring matching, which is the documented contract of
// the search filter.
type MessageIndex struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewMessageIndex(writer *bluge.Writer, log *slog.Logger) *MessageIndex {
	return &MessageIndex{writer: writer, log: log}
}

// Index adds or replaces one message document.
func (i *MessageIndex) Index(messageID, chatID, content string) error {
	doc := bluge.NewDocument(messageID).
		AddField(bluge.NewKeywordField("content", strings.ToLower(content))).
		AddField(bluge.NewKeywordField("chat_id", chatID))
	if err := i.writer.Update(doc.ID(), doc); err != nil {
		return fmt.Errorf("index message %s: %w", messageID, err)
	}
	return nil
}

// MatchingIDs returns the ids of messages in chatID whose content contains
// term, ignoring case. An empty term matches everything and returns nil so
// callers can skip the intersection.
func (i *MessageIndex) MatchingIDs(ctx context.Context, chatID, term string) (map[string]struct{}, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, nil
	}

	reader, err := i.writer.Reader()
	if err != nil {
		return nil, fmt.Errorf("open index reader: %w", err)
	}
	defer func() {
		if err := reader.Close(); err != nil {
			i.log.Warn("closing index reader", "error", err)
		}
	}()

	// A regexp query with a quoted term: bluge's wildcard syntax has no
	// escape form, so a term containing * or ? would stop meaning a literal
	// substring.
	content := bluge.NewRegexpQuery(".*" + regexp.QuoteMeta(strings.ToLower(term)) + ".*").SetField("content")
	query := bluge.NewBooleanQuery().
		AddMust(bluge.NewTermQuery(chatID).SetField("chat_id")).
		AddMust(content)

	iterator, err := reader.Search(ctx, bluge.NewAllMatches(query))
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	ids := make(map[string]struct{})
	for {
		match, err := iterator.Next()
		if err != nil {
			return nil, fmt.Errorf("iterate matches: %w", err)
		}
		if match == nil {
			break
		}
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			if field == "_id" {
				ids[string(value)] = struct{}{}
			}
			return true
		})
		if err != nil {
			return nil, err
		}
	}
	return ids, nil
}
