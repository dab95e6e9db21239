package chat

import (
	"context"
	"encoding/json"
	"log"
	"sync"
)

// MessageStore is what the hub needs from persistence. The history service
// satisfies it in production; tests swap in a fake.
type MessageStore interface {
	CreateMessage(ctx context.Context, sender, recipient, text string) (*Message, error)
}

// Hub owns the connection lifecycle and the message routing. It is the only
// thing that mutates the registry, and it never does I/O while the registry
// lock is held: lookups happen under the lock, pushes go through each
// client's buffered send channel afterwards.
type Hub struct {
	registry *Registry
	store    MessageStore

	// transitionMu serializes each registry transition together with its
	// presence broadcast. Without it two concurrent transitions could fan
	// out their rosters in opposite order and leave every client holding
	// the older one. The fan-out is a non-blocking channel push, so no
	// I/O happens under this lock either.
	transitionMu sync.Mutex
}

func NewHub(store MessageStore) *Hub {
	return &Hub{
		registry: NewRegistry(),
		store:    store,
	}
}

// Add registers a freshly authenticated connection. If the same user already
// had one it gets displaced and closed; that is how a reconnect after a
// dropped network heals a stale entry. Every registration ends with a
// presence broadcast, which doubles as the newcomer's initial roster push.
func (h *Hub) Add(c *Client) {
	h.transitionMu.Lock()
	defer h.transitionMu.Unlock()

	if prev := h.registry.Register(c); prev != nil {
		prev.close()
	}
	h.broadcastPresence()
}

// Remove tears a connection down. The registry only honors the removal if the
// entry still points at this client, so a close racing a newer registration,
// or the transport firing close twice, is a no-op with no extra broadcast.
func (h *Hub) Remove(c *Client) {
	h.transitionMu.Lock()
	defer h.transitionMu.Unlock()

	if !h.registry.Unregister(c) {
		return
	}
	c.close()
	h.broadcastPresence()
}

// Lookup reports the live connection for a user, if any.
func (h *Hub) Lookup(userID string) (*Client, bool) {
	return h.registry.Lookup(userID)
}

// Snapshot returns the current online roster.
func (h *Hub) Snapshot() []PresenceEntry {
	return h.registry.Snapshot()
}

// HandleInbound processes one frame from a sender's read loop: parse,
// persist, route to the recipient if reachable, and always echo the persisted
// message back to the sender as the canonical record.
func (h *Hub) HandleInbound(sender *Client, payload []byte) {
	var in inboundFrame
	if err := json.Unmarshal(payload, &in); err != nil {
		// A bad frame is not worth tearing the connection down for.
		return
	}
	if in.Recipient == "" || in.Text == "" {
		return
	}

	msg, err := h.store.CreateMessage(context.Background(), sender.UserID, in.Recipient, in.Text)
	if err != nil {
		// Not durably recorded, so nothing gets forwarded or confirmed.
		log.Printf("persist failed [%s -> %s]: %v", sender.UserID, in.Recipient, err)
		return
	}

	frame, err := json.Marshal(msg)
	if err != nil {
		log.Printf("marshal message %s: %v", msg.ID, err)
		return
	}

	if recipient, ok := h.registry.Lookup(in.Recipient); ok {
		recipient.trySend(frame)
	}
	sender.trySend(frame)
}

// broadcastPresence pushes the roster to every live connection, including the
// one that just triggered the change. One transition, one broadcast.
func (h *Hub) broadcastPresence() {
	entries, clients := h.registry.roster()

	frame, err := json.Marshal(presenceFrame{Online: entries})
	if err != nil {
		log.Printf("marshal presence: %v", err)
		return
	}

	for _, c := range clients {
		c.trySend(frame)
	}
}
