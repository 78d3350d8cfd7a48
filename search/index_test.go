package search

import (
	"context"
	"log/slog"
	"testing"

	"github.com/blugelabs/bluge"
	"github.com/stretchr/testify/require"
)

func openTestIndex(t *testing.T) *MessageIndex {
	t.Helper()
	writer, err := bluge.OpenWriter(bluge.InMemoryOnlyConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = writer.Close() })
	return NewMessageIndex(writer, slog.Default())
}

func TestMessageIndex_Substring_Match_Is_Case_Insensitive(t *testing.T) {
	req := require.New(t)
	index := openTestIndex(t)
	ctx := context.Background()

	req.NoError(index.Index("msg-1", "room-1", "Hello WORLD, how are you?"))
	req.NoError(index.Index("msg-2", "room-1", "nothing to see here"))
	req.NoError(index.Index("msg-3", "room-2", "another world entirely"))

	ids, err := index.MatchingIDs(ctx, "room-1", "world")
	req.NoError(err)
	req.Len(ids, 1)
	req.Contains(ids, "msg-1")

	// Substring in the middle of a word still matches.
	ids, err = index.MatchingIDs(ctx, "room-1", "ORL")
	req.NoError(err)
	req.Contains(ids, "msg-1")

	ids, err = index.MatchingIDs(ctx, "room-1", "absent")
	req.NoError(err)
	req.Empty(ids)
}

// Terms containing wildcard or regexp syntax must still mean a literal
// substring, never a pattern.
func TestMessageIndex_Metacharacters_Match_Literally(t *testing.T) {
	req := require.New(t)
	index := openTestIndex(t)
	ctx := context.Background()

	req.NoError(index.Index("msg-1", "room-1", "hello there"))
	req.NoError(index.Index("msg-2", "room-1", `see you at 5*`))
	req.NoError(index.Index("msg-3", "room-1", "really? ok"))
	req.NoError(index.Index("msg-4", "room-1", `C:\temp is full`))

	ids, err := index.MatchingIDs(ctx, "room-1", "*")
	req.NoError(err)
	req.Len(ids, 1, "a lone * must not match every message")
	req.Contains(ids, "msg-2")

	ids, err = index.MatchingIDs(ctx, "room-1", "really?")
	req.NoError(err)
	req.Len(ids, 1)
	req.Contains(ids, "msg-3")

	ids, err = index.MatchingIDs(ctx, "room-1", `c:\temp`)
	req.NoError(err)
	req.Len(ids, 1)
	req.Contains(ids, "msg-4")

	ids, err = index.MatchingIDs(ctx, "room-1", "at 5.")
	req.NoError(err)
	req.Empty(ids, "a dot must not act as a regexp wildcard")
}

func TestMessageIndex_Scopes_By_Chat(t *testing.T) {
	req := require.New(t)
	index := openTestIndex(t)
	ctx := context.Background()

	req.NoError(index.Index("msg-1", "room-1", "shared term"))
	req.NoError(index.Index("msg-2", "room-2", "shared term"))

	ids, err := index.MatchingIDs(ctx, "room-1", "shared")
	req.NoError(err)
	req.Len(ids, 1)
	req.Contains(ids, "msg-1")
}

func TestMessageIndex_Empty_Term_Matches_Everything(t *testing.T) {
	req := require.New(t)
	index := openTestIndex(t)

	req.NoError(index.Index("msg-1", "room-1", "anything"))

	ids, err := index.MatchingIDs(context.Background(), "room-1", "   ")
	req.NoError(err)
	req.Nil(ids)
}
