package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChat_Validate_OneOnOne(t *testing.T) {
	req := require.New(t)

	chat := Chat{Users: []string{"alice", "bob"}}
	req.NoError(chat.Validate())

	chat.Users = []string{"alice"}
	req.Error(chat.Validate())

	chat.Users = []string{"alice", "bob", "clara"}
	req.Error(chat.Validate())
}

func TestChat_Validate_Group(t *testing.T) {
	req := require.New(t)

	chat := Chat{
		IsGroupChat: true,
		Users:       []string{"alice", "bob", "clara"},
		Name:        "climbing",
		GroupAdmin:  "alice",
	}
	req.NoError(chat.Validate())

	t.Run("missing name", func(t *testing.T) {
		invalid := chat
		invalid.Name = ""
		require.Error(t, invalid.Validate())
	})

	t.Run("missing admin", func(t *testing.T) {
		invalid := chat
		invalid.GroupAdmin = ""
		require.Error(t, invalid.Validate())
	})

	t.Run("admin not a member", func(t *testing.T) {
		invalid := chat
		invalid.GroupAdmin = "mallory"
		require.Error(t, invalid.Validate())
	})
}

func TestChat_HasMember(t *testing.T) {
	req := require.New(t)
	chat := Chat{Users: []string{"alice", "bob"}}

	req.True(chat.HasMember("alice"))
	req.False(chat.HasMember("mallory"))
}

func TestParseMessageType(t *testing.T) {
	req := require.New(t)

	parsed, ok := ParseMessageType("")
	req.True(ok)
	req.Equal(MessageText, parsed)

	parsed, ok = ParseMessageType("media")
	req.True(ok)
	req.Equal(MessageMedia, parsed)

	_, ok = ParseMessageType("carrier-pigeon")
	req.False(ok)
}
