package service

import (
	"errors"

	"github.com/Srujan0798/Rest-iN-U-sub003/internal/domain"
)

var (
	// ErrValidation marks a malformed or out-of-range payload.
	ErrValidation = errors.New("invalid payload")

	// ErrNotAuthorized marks an action that needs an identity or capability
	// the connection does not hold.
	ErrNotAuthorized = errors.New("action not authorized for this identity")

	// ErrAuctionNotActive is a domain rejection: the auction is not in a
	// biddable state. Surfaced to the caller only, never broadcast.
	ErrAuctionNotActive = errors.New("auction is not accepting bids")

	// ErrBidTooLow is a domain rejection: amount below highest + increment.
	ErrBidTooLow = errors.New("bid below current highest plus minimum increment")

	// ErrContentionExceeded means the bounded retry budget for optimistic
	// commits ran out under contention.
	ErrContentionExceeded = errors.New("too much bid contention, retries exhausted")

	ErrAuctionNotFound = errors.New("auction not found")
	ErrAuctionExists   = errors.New("auction already exists")
	ErrMessageNotFound = errors.New("message not found")

	// ErrInternalServer covers durable-store and bridge failures surfaced
	// as a generic failure to the caller.
	ErrInternalServer = errors.New("internal server error")
)

// ReasonFor maps a service error to its protocol-level rejection reason.
func ReasonFor(err error) string {
	switch {
	case errors.Is(err, ErrAuctionNotActive), errors.Is(err, ErrAuctionNotFound):
		return domain.ReasonAuctionNotActive
	case errors.Is(err, ErrBidTooLow):
		return domain.ReasonBidTooLow
	case errors.Is(err, ErrContentionExceeded):
		return domain.ReasonContentionExceeded
	case errors.Is(err, ErrNotAuthorized):
		return domain.ReasonNotAuthorized
	case errors.Is(err, ErrValidation), errors.Is(err, ErrMessageNotFound):
		return domain.ReasonInvalidPayload
	default:
		return domain.ReasonInternal
	}
}
