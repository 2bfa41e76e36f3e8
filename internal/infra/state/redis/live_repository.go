package redisstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/Srujan0798/Rest-iN-U-sub003/internal/domain"
	"github.com/Srujan0798/Rest-iN-U-sub003/internal/repository"
)

// RedisLiveRepository implements repository.LiveStateRepository.
//
// Auction state lives under a single key per auction and is only ever
// written through a WATCH/MULTI round, so a concurrent commit between read
// and write fails the EXEC instead of silently overwriting a higher bid.
type RedisLiveRepository struct {
	client    *redis.Client
	keyPrefix string
}

func NewRedisLiveRepository(client *redis.Client, keyPrefix string) *RedisLiveRepository {
	if client == nil {
		panic("redis client cannot be nil for RedisLiveRepository")
	}
	if keyPrefix == "" {
		keyPrefix = "rt:"
	}
	return &RedisLiveRepository{client: client, keyPrefix: keyPrefix}
}

// --- Key helpers ---

func (r *RedisLiveRepository) auctionStateKey(auctionID string) string {
	return fmt.Sprintf("%sauction:%s:state", r.keyPrefix, auctionID)
}

func (r *RedisLiveRepository) openAuctionsKey() string {
	return r.keyPrefix + "auctions:open"
}

func (r *RedisLiveRepository) presenceKey(identity string) string {
	return fmt.Sprintf("%spresence:%s", r.keyPrefix, identity)
}

// --- Auction state ---

func (r *RedisLiveRepository) CreateAuctionState(ctx context.Context, state *domain.AuctionState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("redis: marshal auction state %s: %w", state.AuctionID, err)
	}
	ok, err := r.client.SetNX(ctx, r.auctionStateKey(state.AuctionID), payload, 0).Result()
	if err != nil {
		return fmt.Errorf("redis: create auction state %s: %w", state.AuctionID, err)
	}
	if !ok {
		return repository.ErrDuplicateEntry
	}
	return nil
}

func (r *RedisLiveRepository) GetAuctionState(ctx context.Context, auctionID string) (*domain.AuctionState, error) {
	raw, err := r.client.Get(ctx, r.auctionStateKey(auctionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get auction state %s: %w", auctionID, err)
	}
	var state domain.AuctionState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, fmt.Errorf("redis: unmarshal auction state %s: %w", auctionID, err)
	}
	return &state, nil
}

// UpdateAuctionState runs exactly one optimistic round. The key is WATCHed,
// the transform computes the candidate, and the SET rides in a MULTI/EXEC
// that Redis fails if the key changed after the read. The caller owns the
// retry policy.
func (r *RedisLiveRepository) UpdateAuctionState(ctx context.Context, auctionID string, transform repository.AuctionTransform) (*domain.AuctionState, error) {
	key := r.auctionStateKey(auctionID)
	var committed *domain.AuctionState

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return repository.ErrNotFound
			}
			return fmt.Errorf("redis: read auction state %s: %w", auctionID, err)
		}
		var cur domain.AuctionState
		if err := json.Unmarshal([]byte(raw), &cur); err != nil {
			return fmt.Errorf("redis: unmarshal auction state %s: %w", auctionID, err)
		}

		next, err := transform(&cur)
		if err != nil {
			// Domain rejection: abort without writing, pass through as-is.
			return err
		}

		payload, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("redis: marshal auction state %s: %w", auctionID, err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		if err != nil {
			return err
		}
		committed = next
		return nil
	}, key)

	if err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			return nil, repository.ErrConflict
		}
		return nil, err
	}
	return committed, nil
}

func (r *RedisLiveRepository) AddOpenAuction(ctx context.Context, auctionID string) error {
	if err := r.client.SAdd(ctx, r.openAuctionsKey(), auctionID).Err(); err != nil {
		return fmt.Errorf("redis: add open auction %s: %w", auctionID, err)
	}
	return nil
}

func (r *RedisLiveRepository) RemoveOpenAuction(ctx context.Context, auctionID string) error {
	if err := r.client.SRem(ctx, r.openAuctionsKey(), auctionID).Err(); err != nil {
		return fmt.Errorf("redis: remove open auction %s: %w", auctionID, err)
	}
	return nil
}

func (r *RedisLiveRepository) ListOpenAuctions(ctx context.Context) ([]string, error) {
	ids, err := r.client.SMembers(ctx, r.openAuctionsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list open auctions: %w", err)
	}
	return ids, nil
}

// --- Presence ---

func (r *RedisLiveRepository) SetPresence(ctx context.Context, identity string, status domain.PresenceStatus, ttl time.Duration) error {
	record := domain.PresenceRecord{
		Identity:  identity,
		Status:    status,
		UpdatedAt: time.Now().UTC(),
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("redis: marshal presence for %s: %w", identity, err)
	}
	if err := r.client.Set(ctx, r.presenceKey(identity), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set presence for %s: %w", identity, err)
	}
	return nil
}

func (r *RedisLiveRepository) GetPresence(ctx context.Context, identity string) (domain.PresenceStatus, error) {
	raw, err := r.client.Get(ctx, r.presenceKey(identity)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Expired or never written: offline by definition.
			return domain.PresenceOffline, nil
		}
		return domain.PresenceOffline, fmt.Errorf("redis: get presence for %s: %w", identity, err)
	}
	var record domain.PresenceRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return domain.PresenceOffline, fmt.Errorf("redis: unmarshal presence for %s: %w", identity, err)
	}
	return record.Status, nil
}

func (r *RedisLiveRepository) RefreshPresence(ctx context.Context, identity string, ttl time.Duration) error {
	// Expire on a missing key returns false, which is fine: an identity
	// with no record stays offline until it sets a status.
	if err := r.client.Expire(ctx, r.presenceKey(identity), ttl).Err(); err != nil {
		return fmt.Errorf("redis: refresh presence for %s: %w", identity, err)
	}
	return nil
}
