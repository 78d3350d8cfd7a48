package domain

import (
	"fmt"
	"strings"
	"time"
)

// Chat is a conversation between a fixed set of members. One-on-one chats
// have exactly two members; group chats carry a name and an admin.
// LatestMessageID is a last-write-wins pointer maintained by the ingestion
// engine for list previews.
type Chat struct {
	ID              string    `json:"id"`
	IsGroupChat     bool      `json:"isGroupChat"`
	Users           []string  `json:"users"`
	Name            string    `json:"name,omitempty"`
	Avatar          string    `json:"avatar,omitempty"`
	GroupAdmin      string    `json:"groupAdmin,omitempty"`
	LatestMessageID string    `json:"latestMessage,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// HasMember reports whether userID belongs to the chat's member set.
// Membership order is irrelevant.
func (c Chat) HasMember(userID string) bool {
	for _, id := range c.Users {
		if id == userID {
			return true
		}
	}
	return false
}

// Validate enforces the structural invariants of a chat.
func (c Chat) Validate() error {
	if len(c.Users) == 0 {
		return fmt.Errorf("chat requires at least one member")
	}
	if !c.IsGroupChat && len(c.Users) != 2 {
		return fmt.Errorf("one-on-one chat requires exactly 2 members, got %d", len(c.Users))
	}
	if c.IsGroupChat {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("group chat requires a name")
		}
		if strings.TrimSpace(c.GroupAdmin) == "" {
			return fmt.Errorf("group chat requires an admin")
		}
		if !c.HasMember(c.GroupAdmin) {
			return fmt.Errorf("group admin %s is not a member", c.GroupAdmin)
		}
	}
	return nil
}
