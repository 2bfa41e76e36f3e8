package hub

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Srujan0798/Rest-iN-U-sub003/internal/domain"
)

func testClient(h *Hub, identityID string) *Client {
	return NewClient(h, nil, domain.Identity{ID: identityID}, nil)
}

func drain(t *testing.T, c *Client) domain.Event {
	t.Helper()
	select {
	case payload := <-c.send:
		var ev domain.Event
		require.NoError(t, json.Unmarshal(payload, &ev))
		return ev
	default:
		t.Fatal("expected a queued event, got none")
		return domain.Event{}
	}
}

func TestJoinIsIdempotent(t *testing.T) {
	h := NewHub()
	c := testClient(h, "user-1")
	room := domain.RoomKey{Kind: domain.RoomProperty, ID: "prop-1"}

	h.Register(c)
	h.Join(c, room)
	h.Join(c, room)

	assert.Equal(t, 1, h.RoomSize(room))
}

func TestLeaveUnjoinedRoomIsNoOp(t *testing.T) {
	h := NewHub()
	c := testClient(h, "user-1")
	h.Register(c)

	h.Leave(c, domain.RoomKey{Kind: domain.RoomTour, ID: "tour-9"})
	assert.Equal(t, 0, h.RoomSize(domain.RoomKey{Kind: domain.RoomTour, ID: "tour-9"}))
}

func TestEmptyRoomIsRemoved(t *testing.T) {
	h := NewHub()
	c := testClient(h, "user-1")
	room := domain.RoomKey{Kind: domain.RoomOpenHouse, ID: "oh-1"}

	h.Register(c)
	h.Join(c, room)
	h.Leave(c, room)

	h.mu.RLock()
	_, exists := h.rooms[room.String()]
	h.mu.RUnlock()
	assert.False(t, exists, "empty room should be garbage collected")
}

func TestDeliverLocalReachesMembersOnly(t *testing.T) {
	h := NewHub()
	inRoom := testClient(h, "user-1")
	alsoIn := testClient(h, "user-2")
	outside := testClient(h, "user-3")
	room := domain.AuctionRoom("auc-1")

	for _, c := range []*Client{inRoom, alsoIn, outside} {
		h.Register(c)
	}
	h.Join(inRoom, room)
	h.Join(alsoIn, room)

	ev := domain.MustEvent(domain.EvAuctionState, map[string]string{"auction_id": "auc-1"})
	h.DeliverLocal(room, ev, "")

	assert.Equal(t, domain.EvAuctionState, drain(t, inRoom).Type)
	assert.Equal(t, domain.EvAuctionState, drain(t, alsoIn).Type)
	assert.Empty(t, outside.send)
}

func TestDeliverLocalExcludesConnection(t *testing.T) {
	h := NewHub()
	sender := testClient(h, "user-1")
	otherTab := testClient(h, "user-1")
	room := domain.RoomKey{Kind: domain.RoomUser, ID: "user-1"}

	h.Register(sender)
	h.Register(otherTab)
	h.Join(sender, room)
	h.Join(otherTab, room)

	ev := domain.MustEvent(domain.EvMessageNew, map[string]string{"content": "hi"})
	h.DeliverLocal(room, ev, sender.ID())

	assert.Empty(t, sender.send, "excluded connection must not receive the event")
	assert.Equal(t, domain.EvMessageNew, drain(t, otherTab).Type)
}

func TestRegisterCountsIdentityConnections(t *testing.T) {
	h := NewHub()
	first := testClient(h, "user-1")
	second := testClient(h, "user-1")

	assert.Equal(t, 1, h.Register(first))
	assert.Equal(t, 2, h.Register(second))
	assert.Equal(t, 2, h.IdentityConnCount("user-1"))

	assert.Equal(t, 1, h.Unregister(first))
	assert.Equal(t, 0, h.Unregister(second))
	assert.Equal(t, 0, h.IdentityConnCount("user-1"))
}

func TestUnregisterRemovesAllMemberships(t *testing.T) {
	h := NewHub()
	c := testClient(h, "user-1")
	stays := testClient(h, "user-2")
	roomA := domain.AuctionRoom("auc-1")
	roomB := domain.RoomKey{Kind: domain.RoomProperty, ID: "prop-1"}

	h.Register(c)
	h.Register(stays)
	h.Join(c, roomA)
	h.Join(c, roomB)
	h.Join(stays, roomA)

	h.Unregister(c)

	assert.Equal(t, 1, h.RoomSize(roomA))
	assert.Equal(t, 0, h.RoomSize(roomB))

	// Send channel is closed so the write pump shuts down.
	_, open := <-c.send
	assert.False(t, open)
}

func TestDeliveryAfterUnregisterIsDropped(t *testing.T) {
	h := NewHub()
	c := testClient(h, "user-1")
	room := domain.AuctionRoom("auc-1")

	h.Register(c)
	h.Join(c, room)
	h.Unregister(c)

	// A broadcast can snapshot the member list just before the unregister
	// closes the channel; the late enqueue must be a silent drop.
	c.enqueue([]byte(`{"type":"auction.new_bid"}`))
	c.Send(domain.MustEvent(domain.EvMessageNew, nil))
	h.DeliverLocal(room, domain.MustEvent(domain.EvAuctionState, nil), "")
}

func TestDeliverConcurrentWithUnregister(t *testing.T) {
	h := NewHub()
	room := domain.AuctionRoom("auc-1")
	ev := domain.MustEvent(domain.EvAuctionNewBid, map[string]string{"auction_id": "auc-1"})

	const rounds = 50
	for i := 0; i < rounds; i++ {
		clients := make([]*Client, 20)
		for j := range clients {
			clients[j] = testClient(h, "user-1")
			h.Register(clients[j])
			h.Join(clients[j], room)
		}

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			for k := 0; k < 10; k++ {
				h.DeliverLocal(room, ev, "")
			}
		}()
		go func() {
			defer wg.Done()
			for _, c := range clients {
				h.Unregister(c)
			}
		}()
		wg.Wait()
	}
}
