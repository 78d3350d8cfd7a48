// Package domain contains core concepts of the messaging system.
// No runtime, network, or UI logic should be added here.
package domain

import "time"

// User is a registered account. The online flag is owned by the presence
// tracker; credentials are owned by the auth collaborator.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Avatar       string    `json:"avatar,omitempty"`
	Provider     string    `json:"provider,omitempty"`
	PasswordHash string    `json:"-"`
	Online       bool      `json:"online"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Snapshot is the broadcast-safe view of a user, carried by presence events
// and resolved message senders. It never exposes credentials.
type Snapshot struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
	Online bool   `json:"online"`
}

func (u User) Snapshot() Snapshot {
	return Snapshot{ID: u.ID, Name: u.Name, Avatar: u.Avatar, Online: u.Online}
}

// UnknownUser substitutes a sender that could not be resolved.
func UnknownUser() Snapshot {
	return Snapshot{Name: "Unknown user"}
}
