// Package runtime handles event propagation between live connections.
// It orchestrates the system without containing business logic or domain rules.
package runtime

import (
	"context"
	"sync"

	"chathub/contract"
	"chathub/domain/event"
)

// ChatGroup is the broadcast group of connections currently viewing a chat.
func ChatGroup(chatID string) string { return "chat:" + chatID }

// UserGroup is a user's self-room: updates relevant to that user regardless
// of which chat is open.
func UserGroup(userID string) string { return "user:" + userID }

type set map[contract.ConnID]struct{}

// Registry is the broadcast-group membership table:
// connection -> sink, group -> connections, connection -> groups.
// One mutex serializes join, leave and broadcast against each other, which
// also pins the relative delivery order of events emitted to the same group.
type Registry struct {
	mu     sync.Mutex
	sinks  map[contract.ConnID]contract.EventSink
	groups map[string]set
	joined map[contract.ConnID]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		sinks:  make(map[contract.ConnID]contract.EventSink),
		groups: make(map[string]set),
		joined: make(map[contract.ConnID]map[string]struct{}),
	}
}

func (r *Registry) AddConnection(id contract.ConnID, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks[id] = sink
	if _, ok := r.joined[id]; !ok {
		r.joined[id] = make(map[string]struct{})
	}
}

// RemoveConnection drops the connection from every group it joined and
// removes empty group entries to prevent leaks over time.
func (r *Registry) RemoveConnection(id contract.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for group := range r.joined[id] {
		r.leaveLocked(id, group)
	}
	delete(r.joined, id)
	delete(r.sinks, id)
}

// Join is idempotent and scoped to the issuing connection. It affects only
// fan-out target sets, never persisted chat membership.
func (r *Registry) Join(id contract.ConnID, group string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sinks[id]; !ok {
		return
	}
	if _, ok := r.groups[group]; !ok {
		r.groups[group] = make(set)
	}
	r.groups[group][id] = struct{}{}
	if _, ok := r.joined[id]; !ok {
		r.joined[id] = make(map[string]struct{})
	}
	r.joined[id][group] = struct{}{}
}

func (r *Registry) Leave(id contract.ConnID, group string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(id, group)
	delete(r.joined[id], group)
}

func (r *Registry) leaveLocked(id contract.ConnID, group string) {
	if members, ok := r.groups[group]; ok {
		delete(members, id)
		if len(members) == 0 {
			delete(r.groups, group)
		}
	}
}

// Groups returns the groups currently joined by a connection.
func (r *Registry) Groups(id contract.ConnID) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	groups := make([]string, 0, len(r.joined[id]))
	for group := range r.joined[id] {
		groups = append(groups, group)
	}
	return groups
}

// Broadcast delivers an event to every member of a group, except the
// excluded connection. Sinks are expected to consume without blocking;
// the lock is held across the whole emission so that members of the same
// group observe emissions in the same relative order.
func (r *Registry) Broadcast(ctx context.Context, group string, e event.DomainEvent, except contract.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id := range r.groups[group] {
		if id == except {
			continue
		}
		if sink, ok := r.sinks[id]; ok {
			_ = sink.Consume(ctx, e)
		}
	}
}

// BroadcastAll delivers an event to every live connection.
func (r *Registry) BroadcastAll(ctx context.Context, e event.DomainEvent, except contract.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, sink := range r.sinks {
		if id == except {
			continue
		}
		_ = sink.Consume(ctx, e)
	}
}
