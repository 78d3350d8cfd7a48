package services

import (
	"context"
	"log/slog"
	"sync"

	"chathub/contract"
	"chathub/domain"
	"chathub/domain/event"
	"chathub/repositories"
	"chathub/runtime"
	"chathub/runtime/workers"
)

// PresenceTracker maintains one reference count per user so that a user with
// several open connections stays online until the last one goes away.
type PresenceTracker struct {
	mu        sync.Mutex
	counts    map[string]int
	users     repositories.IUserRepository
	registry  contract.IRegistry
	envelopes chan<- workers.Envelope
	log       *slog.Logger
}

func NewPresenceTracker(log *slog.Logger, users repositories.IUserRepository, registry contract.IRegistry, envelopes chan<- workers.Envelope) *PresenceTracker {
	return &PresenceTracker{
		counts:    make(map[string]int),
		users:     users,
		registry:  registry,
		envelopes: envelopes,
		log:       log,
	}
}

// Connect registers the connection, joins the user's self room and, on the
// first concurrent connection, flips the user online and announces it.
func (p *PresenceTracker) Connect(ctx context.Context, connID contract.ConnID, user domain.User, sink contract.EventSink) error {
	p.registry.AddConnection(connID, sink)
	p.registry.Join(connID, runtime.UserGroup(user.ID))

	p.mu.Lock()
	p.counts[user.ID]++
	first := p.counts[user.ID] == 1
	p.mu.Unlock()

	if !first {
		return nil
	}

	updated, err := p.users.SetOnline(user.ID, true)
	if err != nil {
		p.rollback(connID, user.ID)
		return err
	}
	p.log.Debug("user online", slog.String("user_id", user.ID))

	// The announcement goes to everyone except the connection that caused it.
	env := workers.Envelope{Except: connID, Event: event.UserOnline{User: updated.Snapshot()}}
	if err := p.dispatch(ctx, env); err != nil {
		if _, offErr := p.users.SetOnline(user.ID, false); offErr != nil {
			p.log.Warn("presence rollback", slog.String("user_id", user.ID), slog.Any("error", offErr))
		}
		p.rollback(connID, user.ID)
		return err
	}
	return nil
}

// rollback undoes a half-finished Connect so a failed connection never stays
// registered as a fan-out target or as a phantom live-connection count.
func (p *PresenceTracker) rollback(connID contract.ConnID, userID string) {
	p.registry.RemoveConnection(connID)

	p.mu.Lock()
	p.counts[userID]--
	if p.counts[userID] <= 0 {
		delete(p.counts, userID)
	}
	p.mu.Unlock()
}

// Disconnect drops the connection and, when it was the user's last one, flips
// the user offline and announces it.
func (p *PresenceTracker) Disconnect(ctx context.Context, connID contract.ConnID, userID string) error {
	p.registry.RemoveConnection(connID)

	p.mu.Lock()
	p.counts[userID]--
	last := p.counts[userID] <= 0
	if last {
		delete(p.counts, userID)
	}
	p.mu.Unlock()

	if !last {
		return nil
	}

	if _, err := p.users.SetOnline(userID, false); err != nil {
		return err
	}
	p.log.Debug("user offline", slog.String("user_id", userID))
	return p.dispatch(ctx, workers.Envelope{Event: event.UserOffline{UserID: userID}})
}

// Online reports whether the user currently has at least one connection.
func (p *PresenceTracker) Online(userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counts[userID] > 0
}

func (p *PresenceTracker) dispatch(ctx context.Context, env workers.Envelope) error {
	select {
	case p.envelopes <- env:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
