package bridge

import (
	"encoding/json"
	"testing"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Srujan0798/Rest-iN-U-sub003/internal/domain"
)

type recordingDeliverer struct {
	deliveries []delivery
}

type delivery struct {
	room    domain.RoomKey
	event   domain.Event
	exclude string
}

func (r *recordingDeliverer) DeliverLocal(room domain.RoomKey, ev domain.Event, excludeConnID string) {
	r.deliveries = append(r.deliveries, delivery{room: room, event: ev, exclude: excludeConnID})
}

func newTestBridge(local LocalDeliverer) *Bridge {
	// The client is never dialed by dispatch.
	return New(redis.NewClient(&redis.Options{Addr: "localhost:0"}), "rt:", local)
}

func envelopeMessage(t *testing.T, channel string, env domain.Envelope) *redis.Message {
	t.Helper()
	payload, err := json.Marshal(env)
	require.NoError(t, err)
	return &redis.Message{Channel: channel, Payload: string(payload)}
}

func TestDispatchHonorsExclusionFromOwnInstance(t *testing.T) {
	local := &recordingDeliverer{}
	b := newTestBridge(local)

	env := domain.Envelope{
		Origin:      b.InstanceID(),
		ExcludeConn: "conn-42",
		Event:       domain.MustEvent(domain.EvMessageNew, map[string]string{"content": "hi"}),
	}
	b.dispatch(envelopeMessage(t, "rt:room:user:user-1", env))

	require.Len(t, local.deliveries, 1)
	assert.Equal(t, domain.RoomKey{Kind: domain.RoomUser, ID: "user-1"}, local.deliveries[0].room)
	assert.Equal(t, "conn-42", local.deliveries[0].exclude)
}

func TestDispatchIgnoresForeignExclusion(t *testing.T) {
	local := &recordingDeliverer{}
	b := newTestBridge(local)

	// The excluded connection lives on another instance; here the full room
	// gets the event.
	env := domain.Envelope{
		Origin:      "some-other-instance",
		ExcludeConn: "conn-42",
		Event:       domain.MustEvent(domain.EvAuctionNewBid, map[string]string{"auction_id": "auc-1"}),
	}
	b.dispatch(envelopeMessage(t, "rt:room:auction:auc-1", env))

	require.Len(t, local.deliveries, 1)
	assert.Empty(t, local.deliveries[0].exclude)
	assert.Equal(t, domain.EvAuctionNewBid, local.deliveries[0].event.Type)
}

func TestDispatchDropsMalformedTraffic(t *testing.T) {
	local := &recordingDeliverer{}
	b := newTestBridge(local)

	b.dispatch(&redis.Message{Channel: "rt:room:user:user-1", Payload: "{not json"})
	b.dispatch(&redis.Message{Channel: "rt:room:nonsense", Payload: "{}"})

	assert.Empty(t, local.deliveries)
}

func TestChannelNamingRoundTrips(t *testing.T) {
	local := &recordingDeliverer{}
	b := newTestBridge(local)
	room := domain.RoomKey{Kind: domain.RoomOpenHouse, ID: "oh-7"}

	channel := b.channelFor(room)
	assert.Equal(t, "rt:room:openhouse:oh-7", channel)

	b.dispatch(envelopeMessage(t, channel, domain.Envelope{
		Origin: "elsewhere",
		Event:  domain.MustEvent(domain.EvPresenceChanged, nil),
	}))
	require.Len(t, local.deliveries, 1)
	assert.Equal(t, room, local.deliveries[0].room)
}
