package repository

import (
	"context"
	"time"

	"github.com/Srujan0798/Rest-iN-U-sub003/internal/domain"
)

// MessageRepository is the durable store for point-to-point messages.
type MessageRepository interface {
	// Save persists a new message and fills in its assigned ID.
	Save(ctx context.Context, msg *domain.Message) error

	// MarkRead stamps the read time on a message addressed to reader.
	// Returns the updated message, or ErrNotFound if no such message exists
	// for that reader.
	MarkRead(ctx context.Context, messageID uint, reader string, at time.Time) (*domain.Message, error)

	// ListConversation returns the most recent messages between two
	// identities, newest last.
	ListConversation(ctx context.Context, a, b string, limit int) ([]domain.Message, error)
}

// BidRepository appends accepted bids to the durable audit trail.
type BidRepository interface {
	Save(ctx context.Context, bid *domain.Bid) error
}

// AuctionArchiveRepository persists the final result of a closed auction.
type AuctionArchiveRepository interface {
	Save(ctx context.Context, result *domain.AuctionResult) error
}
