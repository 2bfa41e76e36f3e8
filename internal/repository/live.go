package repository

import (
	"context"
	"time"

	"github.com/Srujan0798/Rest-iN-U-sub003/internal/domain"
)

// AuctionTransform computes the candidate next state from the current one.
// It must not mutate cur. Returning an error aborts the round without
// writing anything.
type AuctionTransform func(cur *domain.AuctionState) (*domain.AuctionState, error)

// LiveStateRepository is the shared live-state store, implemented on Redis.
// AuctionState and presence are the only resources mutated concurrently by
// independent callers; both go through here.
type LiveStateRepository interface {
	// === Auction state ===

	// CreateAuctionState stores a brand-new auction state. Returns
	// ErrDuplicateEntry if the auction already exists.
	CreateAuctionState(ctx context.Context, state *domain.AuctionState) error

	// GetAuctionState reads the current authoritative state.
	// Returns ErrNotFound for unknown auctions.
	GetAuctionState(ctx context.Context, auctionID string) (*domain.AuctionState, error)

	// UpdateAuctionState runs one compare-and-commit round: read the state
	// under watch, apply transform, and write the candidate only if the
	// state is still unchanged. Returns ErrConflict when a concurrent
	// commit won the round; the transform's own error is passed through
	// unwrapped so callers can distinguish domain rejections from races.
	UpdateAuctionState(ctx context.Context, auctionID string, transform AuctionTransform) (*domain.AuctionState, error)

	// Open-auction index, consumed by the periodic sweep.
	AddOpenAuction(ctx context.Context, auctionID string) error
	RemoveOpenAuction(ctx context.Context, auctionID string) error
	ListOpenAuctions(ctx context.Context) ([]string, error)

	// === Presence ===

	// SetPresence writes a presence record with the given TTL.
	SetPresence(ctx context.Context, identity string, status domain.PresenceStatus, ttl time.Duration) error

	// GetPresence reads a presence record; a missing or expired key reads
	// as offline with no error.
	GetPresence(ctx context.Context, identity string) (domain.PresenceStatus, error)

	// RefreshPresence extends the TTL of an existing record. A missing key
	// is a no-op.
	RefreshPresence(ctx context.Context, identity string, ttl time.Duration) error
}

// EventBridge is the publishing half of the cross-process fan-out. It is a
// transport with no state of its own: at-least-once delivery, FIFO per
// publisher, nothing stronger.
type EventBridge interface {
	// Publish fans an envelope out to every gateway instance subscribed to
	// the room's channel, this process included.
	Publish(ctx context.Context, room domain.RoomKey, env domain.Envelope) error
}
