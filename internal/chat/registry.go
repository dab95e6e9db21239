package chat

import (
	"sort"
	"sync"
)

// Registry is the single source of truth for "is this user reachable right
// now". It maps a user id to that user's one live connection. All access goes
// through the mutex; callers must not do I/O while inside these methods, and
// none of them do.
type Registry struct {
	mu    sync.Mutex
	conns map[string]*Client
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]*Client),
	}
}

// Register inserts the client and returns whatever connection it displaced,
// or nil. At most one connection per user id: a fresh login or a reconnect
// from the same user replaces the old entry, it never coexists with it.
// Closing the displaced connection is the caller's job.
func (r *Registry) Register(c *Client) *Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.conns[c.UserID]
	r.conns[c.UserID] = c
	return prev
}

// Unregister removes the entry only if it still points at this exact client.
// A stale close racing a newer registration for the same user is a no-op
// here, not an error. Reports whether anything was removed.
func (r *Registry) Unregister(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conns[c.UserID] != c {
		return false
	}
	delete(r.conns, c.UserID)
	return true
}

func (r *Registry) Lookup(userID string) (*Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[userID]
	return c, ok
}

// Snapshot returns the online roster, sorted by username (user id as
// tiebreaker) so every broadcast sees the same order.
func (r *Registry) Snapshot() []PresenceEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Registry) snapshotLocked() []PresenceEntry {
	entries := make([]PresenceEntry, 0, len(r.conns))
	for _, c := range r.conns {
		entries = append(entries, PresenceEntry{UserID: c.UserID, Username: c.Username})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Username != entries[j].Username {
			return entries[i].Username < entries[j].Username
		}
		return entries[i].UserID < entries[j].UserID
	})
	return entries
}

// roster grabs the snapshot and the recipient list under one lock so a
// presence broadcast never reports a roster that differs from who receives it.
func (r *Registry) roster() ([]PresenceEntry, []*Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	clients := make([]*Client, 0, len(r.conns))
	for _, c := range r.conns {
		clients = append(clients, c)
	}
	return r.snapshotLocked(), clients
}
