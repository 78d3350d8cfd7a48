package repositories

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"chathub/domain"
	"chathub/errors"
)

func Test_Create_And_Get_Chat(t *testing.T) {
	req := require.New(t)
	repository := NewChatRepository(openTestDB(t))

	created, err := repository.CreateChat(domain.Chat{Users: []string{"alice", "bob"}})
	req.NoError(err)
	req.NotEmpty(created.ID)

	fetched, err := repository.GetChat(created.ID)
	req.NoError(err)
	req.Equal(created.Users, fetched.Users)
	req.Empty(fetched.LatestMessageID)

	_, err = repository.GetChat("ghost")
	req.Equal(errors.CodeNotFound, errors.CodeOf(err))
}

func Test_Latest_Message_Pointer_Last_Write_Wins(t *testing.T) {
	req := require.New(t)
	repository := NewChatRepository(openTestDB(t))

	chat, err := repository.CreateChat(domain.Chat{Users: []string{"alice", "bob"}})
	req.NoError(err)

	req.NoError(repository.SetLatestMessage(chat.ID, "msg-1"))
	req.NoError(repository.SetLatestMessage(chat.ID, "msg-2"))

	fetched, err := repository.GetChat(chat.ID)
	req.NoError(err)
	req.Equal("msg-2", fetched.LatestMessageID)

	err = repository.SetLatestMessage("ghost", "msg-1")
	req.Equal(errors.CodeNotFound, errors.CodeOf(err))
}

func Test_List_Chats_Filters_And_Totals(t *testing.T) {
	req := require.New(t)
	repository := NewChatRepository(openTestDB(t))

	_, err := repository.CreateChat(domain.Chat{Users: []string{"alice", "bob"}})
	req.NoError(err)
	_, err = repository.CreateChat(domain.Chat{Users: []string{"alice", "clara"}})
	req.NoError(err)
	_, err = repository.CreateChat(domain.Chat{
		IsGroupChat: true,
		Users:       []string{"alice", "bob", "clara"},
		Name:        "Climbing Crew",
		GroupAdmin:  "alice",
	})
	req.NoError(err)
	_, err = repository.CreateChat(domain.Chat{Users: []string{"bob", "clara"}})
	req.NoError(err)

	chats, total, err := repository.ListChats(ChatFilter{UserID: "alice"})
	req.NoError(err)
	req.Equal(3, total)
	req.Len(chats, 3)

	groupsOnly := true
	chats, total, err = repository.ListChats(ChatFilter{UserID: "alice", IsGroup: &groupsOnly})
	req.NoError(err)
	req.Equal(1, total)
	req.True(chats[0].IsGroupChat)

	// Name search is case-insensitive substring matching.
	chats, total, err = repository.ListChats(ChatFilter{UserID: "alice", Search: "cliMBing"})
	req.NoError(err)
	req.Equal(1, total)
	req.Equal("Climbing Crew", chats[0].Name)

	chats, total, err = repository.ListChats(ChatFilter{UserID: "mallory"})
	req.NoError(err)
	req.Zero(total)
	req.Empty(chats)
}

// The total must count every match even when the page only holds a few.
func Test_List_Chats_Pagination(t *testing.T) {
	req := require.New(t)
	repository := NewChatRepository(openTestDB(t))

	for range 5 {
		_, err := repository.CreateChat(domain.Chat{Users: []string{"alice", "bob"}})
		req.NoError(err)
	}

	page, total, err := repository.ListChats(ChatFilter{UserID: "alice", Skip: 0, Limit: 2})
	req.NoError(err)
	req.Equal(5, total)
	req.Len(page, 2)

	rest, total, err := repository.ListChats(ChatFilter{UserID: "alice", Skip: 4, Limit: 2})
	req.NoError(err)
	req.Equal(5, total)
	req.Len(rest, 1)

	firstIDs := lo.Map(page, func(c domain.Chat, _ int) string { return c.ID })
	req.NotContains(firstIDs, rest[0].ID)

	empty, total, err := repository.ListChats(ChatFilter{UserID: "alice", Skip: 10, Limit: 2})
	req.NoError(err)
	req.Equal(5, total)
	req.Empty(empty)
}

func Test_List_Chats_Sorting_By_Name(t *testing.T) {
	req := require.New(t)
	repository := NewChatRepository(openTestDB(t))

	for _, name := range []string{"bravo", "alpha", "charlie"} {
		_, err := repository.CreateChat(domain.Chat{
			IsGroupChat: true,
			Users:       []string{"alice", "bob", "clara"},
			Name:        name,
			GroupAdmin:  "alice",
		})
		req.NoError(err)
	}

	chats, _, err := repository.ListChats(ChatFilter{UserID: "alice", SortBy: "name", OrderBy: "asc"})
	req.NoError(err)
	names := lo.Map(chats, func(c domain.Chat, _ int) string { return c.Name })
	req.Equal([]string{"alpha", "bravo", "charlie"}, names)

	chats, _, err = repository.ListChats(ChatFilter{UserID: "alice", SortBy: "name", OrderBy: "desc"})
	req.NoError(err)
	names = lo.Map(chats, func(c domain.Chat, _ int) string { return c.Name })
	req.Equal([]string{"charlie", "bravo", "alpha"}, names)
}
