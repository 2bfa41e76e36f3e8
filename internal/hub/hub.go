package hub

import (
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Srujan0798/Rest-iN-U-sub003/internal/domain"
)

// Hub is the per-process room registry. Membership is a set of connections,
// not identities: an identity with two tabs has two independent memberships.
// Rooms exist only in process memory; recovery after a crash is clients
// re-joining on reconnect.
type Hub struct {
	mu sync.RWMutex

	// map[roomKey]map[*Client]bool
	rooms map[string]map[*Client]bool

	// Live connection count per identity, for last-connection-close
	// detection.
	identityConns map[string]int

	log *logrus.Entry
}

func NewHub() *Hub {
	return &Hub{
		rooms:         make(map[string]map[*Client]bool),
		identityConns: make(map[string]int),
		log:           logrus.WithField("component", "hub"),
	}
}

// Register adds a connection to the registry and returns the number of
// connections its identity now holds.
func (h *Hub) Register(c *Client) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.identityConns[c.Identity().ID]++
	count := h.identityConns[c.Identity().ID]
	h.log.WithFields(logrus.Fields{
		"conn_id":  c.ID(),
		"identity": c.Identity().ID,
		"conns":    count,
	}).Info("Connection registered")
	return count
}

// Unregister removes a connection and all of its room memberships, closes
// its send channel, and returns how many connections its identity still
// holds. Zero means the last connection is gone.
func (h *Hub) Unregister(c *Client) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	for key := range c.rooms {
		h.removeFromRoomLocked(key, c)
	}
	c.rooms = make(map[string]bool)

	id := c.Identity().ID
	if h.identityConns[id] > 0 {
		h.identityConns[id]--
	}
	remaining := h.identityConns[id]
	if remaining == 0 {
		delete(h.identityConns, id)
	}

	c.closeSend()
	h.log.WithFields(logrus.Fields{
		"conn_id":   c.ID(),
		"identity":  id,
		"remaining": remaining,
	}).Info("Connection unregistered")
	return remaining
}

// Join adds a connection to a room, creating the room on first join.
// Joining a room the connection is already in changes nothing.
func (h *Hub) Join(c *Client, room domain.RoomKey) {
	key := room.String()
	h.mu.Lock()
	defer h.mu.Unlock()

	if c.rooms[key] {
		return
	}
	members, ok := h.rooms[key]
	if !ok {
		members = make(map[*Client]bool)
		h.rooms[key] = members
	}
	members[c] = true
	c.rooms[key] = true
	h.log.WithFields(logrus.Fields{
		"conn_id": c.ID(),
		"room":    key,
		"members": len(members),
	}).Debug("Connection joined room")
}

// Leave removes a connection from a room. Leaving a room it never joined is
// a no-op; empty rooms are garbage collected.
func (h *Hub) Leave(c *Client, room domain.RoomKey) {
	key := room.String()
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeFromRoomLocked(key, c)
	delete(c.rooms, key)
}

func (h *Hub) removeFromRoomLocked(key string, c *Client) {
	members, ok := h.rooms[key]
	if !ok {
		return
	}
	if _, in := members[c]; !in {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(h.rooms, key)
		h.log.WithField("room", key).Debug("Room empty, removed")
	}
}

// DeliverLocal sends an event to every local member of a room, optionally
// skipping one connection by id. This is the only delivery path for room
// traffic; it is fed by the bridge so that all instances, this one
// included, deliver the same events.
func (h *Hub) DeliverLocal(room domain.RoomKey, ev domain.Event, excludeConnID string) {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.log.WithError(err).WithField("event", ev.Type).Error("Failed to marshal event for delivery")
		return
	}

	h.mu.RLock()
	members := h.rooms[room.String()]
	// Copy the recipient list so the lock is not held while sending.
	recipients := make([]*Client, 0, len(members))
	for c := range members {
		if excludeConnID != "" && c.ID() == excludeConnID {
			continue
		}
		recipients = append(recipients, c)
	}
	h.mu.RUnlock()

	for _, c := range recipients {
		c.enqueue(payload)
	}
}

// RoomSize reports the local member count of a room.
func (h *Hub) RoomSize(room domain.RoomKey) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room.String()])
}

// IdentityConnCount reports how many local connections an identity holds.
func (h *Hub) IdentityConnCount(identity string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.identityConns[identity]
}
