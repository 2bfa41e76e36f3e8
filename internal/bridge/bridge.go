// Package bridge fans room events out across gateway instances over Redis
// pub/sub. It is a transport with no state of its own: every room broadcast
// is published here and re-delivered to local connections only, on every
// instance, so horizontal scaling does not fragment rooms.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Srujan0798/Rest-iN-U-sub003/internal/domain"
)

// LocalDeliverer is the hub-side half the bridge demultiplexes into.
type LocalDeliverer interface {
	DeliverLocal(room domain.RoomKey, ev domain.Event, excludeConnID string)
}

// Bridge holds one shared pattern subscription per process and the
// publishing path services use. One subscription, not one per connection:
// the demux to local rooms happens here.
type Bridge struct {
	client     *redis.Client
	keyPrefix  string
	instanceID string
	local      LocalDeliverer
	log        *logrus.Entry

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(client *redis.Client, keyPrefix string, local LocalDeliverer) *Bridge {
	if client == nil {
		panic("redis client cannot be nil for Bridge")
	}
	if local == nil {
		panic("LocalDeliverer cannot be nil for Bridge")
	}
	if keyPrefix == "" {
		keyPrefix = "rt:"
	}
	return &Bridge{
		client:     client,
		keyPrefix:  keyPrefix,
		instanceID: uuid.NewString(),
		local:      local,
		log:        logrus.WithField("component", "bridge"),
	}
}

// InstanceID identifies this gateway process in published envelopes.
func (b *Bridge) InstanceID() string { return b.instanceID }

func (b *Bridge) channelFor(room domain.RoomKey) string {
	return b.keyPrefix + "room:" + room.String()
}

// Publish sends an envelope to every subscribed instance, this one
// included. Delivery back to the local room happens through the
// subscription, so local and remote members see the same stream.
func (b *Bridge) Publish(ctx context.Context, room domain.RoomKey, env domain.Envelope) error {
	env.Origin = b.instanceID
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("bridge: marshal envelope for %s: %w", room, err)
	}
	if err := b.client.Publish(ctx, b.channelFor(room), payload).Err(); err != nil {
		return fmt.Errorf("bridge: publish to %s: %w", room, err)
	}
	return nil
}

// Start opens the shared subscription and begins demultiplexing.
func (b *Bridge) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.wg.Add(1)
	go b.run(ctx)
}

// Stop tears the subscription down and waits for the demux loop to exit.
func (b *Bridge) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
	b.wg.Wait()
}

func (b *Bridge) run(ctx context.Context) {
	defer b.wg.Done()
	pattern := b.keyPrefix + "room:*"
	backoff := time.Second

	for {
		pubsub := b.client.PSubscribe(ctx, pattern)
		ch := pubsub.Channel()
		b.log.WithField("pattern", pattern).Info("Bridge subscription opened")

		for msg := range ch {
			b.dispatch(msg)
		}
		_ = pubsub.Close()

		if ctx.Err() != nil {
			b.log.Info("Bridge subscription closed")
			return
		}
		b.log.WithField("retry_in", backoff.String()).Warn("Bridge subscription lost, reconnecting")
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (b *Bridge) dispatch(msg *redis.Message) {
	roomStr := strings.TrimPrefix(msg.Channel, b.keyPrefix+"room:")
	room, err := domain.ParseRoomKey(roomStr)
	if err != nil {
		b.log.WithError(err).WithField("channel", msg.Channel).Warn("Dropping envelope on unparseable room channel")
		return
	}
	var env domain.Envelope
	if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
		b.log.WithError(err).WithField("channel", msg.Channel).Warn("Dropping malformed bridge envelope")
		return
	}

	// The excluded connection id only means something on the instance that
	// published it; everywhere else the full local room gets the event.
	exclude := ""
	if env.Origin == b.instanceID {
		exclude = env.ExcludeConn
	}
	b.local.DeliverLocal(room, env.Event, exclude)
}
