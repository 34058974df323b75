package socket

import (
	"context"
	"sort"
	"sync"

	"github.com/SAADX25/SafeChat/internal/models"
	"github.com/SAADX25/SafeChat/internal/store"
	"github.com/SAADX25/SafeChat/pkg/logger"
)

// PresenceTracker counts live socket connections per user. A user is online
// while their count is at least one; the entry is removed when the count
// returns to zero. Counts live only in memory, so a restart starts from an
// empty table.
//
// The durable status field on the user record is written only on the 0<->1
// transitions, which are also the moments the online list changes.
type PresenceTracker struct {
	mu     sync.Mutex
	counts map[string]int
	users  store.UserStore
}

func NewPresenceTracker(users store.UserStore) *PresenceTracker {
	return &PresenceTracker{
		counts: make(map[string]int),
		users:  users,
	}
}

// Attach records one more live connection for userID and reports whether
// this was the user's first (the 0->1 transition). On that transition the
// user record's status is flipped to online; a store failure is logged and
// does not undo the attach.
func (p *PresenceTracker) Attach(ctx context.Context, userID string) bool {
	p.mu.Lock()
	p.counts[userID]++
	first := p.counts[userID] == 1
	p.mu.Unlock()

	if first {
		if err := p.users.UpdateUserStatus(ctx, userID, models.StatusOnline); err != nil {
			logger.Error("Failed to mark user %s online: %v", userID, err)
		}
	}
	return first
}

// Detach records one fewer live connection and reports whether the user went
// fully offline (the 1->0 transition, which removes the entry). Detaching a
// user with no entry is a no-op: they were already offline.
func (p *PresenceTracker) Detach(ctx context.Context, userID string) bool {
	p.mu.Lock()
	count, ok := p.counts[userID]
	if !ok {
		p.mu.Unlock()
		return false
	}
	last := count <= 1
	if last {
		delete(p.counts, userID)
	} else {
		p.counts[userID] = count - 1
	}
	p.mu.Unlock()

	if last {
		if err := p.users.UpdateUserStatus(ctx, userID, models.StatusOffline); err != nil {
			logger.Error("Failed to mark user %s offline: %v", userID, err)
		}
	}
	return last
}

// Online reports whether userID currently has at least one live connection.
func (p *PresenceTracker) Online(userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counts[userID] > 0
}

// Count returns the live-connection count for userID (0 when absent).
func (p *PresenceTracker) Count(userID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counts[userID]
}

// ListOnline resolves every tracked user id to its public profile, sorted by
// username. Ids that no longer resolve in the store are dropped.
func (p *PresenceTracker) ListOnline(ctx context.Context) []models.PublicUser {
	p.mu.Lock()
	ids := make([]string, 0, len(p.counts))
	for id := range p.counts {
		ids = append(ids, id)
	}
	p.mu.Unlock()

	users := make([]models.PublicUser, 0, len(ids))
	for _, id := range ids {
		user, err := p.users.GetUserByID(ctx, id)
		if err != nil {
			continue
		}
		users = append(users, user.Public())
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users
}
