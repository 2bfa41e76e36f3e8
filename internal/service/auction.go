package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Srujan0798/Rest-iN-U-sub003/internal/domain"
	"github.com/Srujan0798/Rest-iN-U-sub003/internal/repository"
	"github.com/Srujan0798/Rest-iN-U-sub003/internal/tasks"
)

// maxCommitAttempts bounds the internal retry loop for optimistic commits.
// A bid that loses this many rounds surfaces CONTENTION_EXCEEDED instead of
// spinning.
const maxCommitAttempts = 5

const defaultAntiSnipeWindow = 30 * time.Second

// errNoTransition aborts a sweep round that found nothing to do.
var errNoTransition = errors.New("no transition due")

// errAlreadyClosed aborts a sweep round on a terminal auction that is still
// in the open index, so the caller repairs the index instead of writing.
var errAlreadyClosed = errors.New("auction already closed")

// AuctionService owns every AuctionState mutation. All writes go through
// one read-validate-conditional-write cycle, so two bids racing to be the
// next highest never both commit and a lower bid never overwrites a higher
// committed one.
type AuctionService struct {
	live    repository.LiveStateRepository
	archive repository.AuctionArchiveRepository
	bridge  repository.EventBridge
	queue   TaskEnqueuer
	log     *logrus.Entry

	// now is swappable so tests can pin the clock.
	now func() time.Time
}

func NewAuctionService(live repository.LiveStateRepository, archive repository.AuctionArchiveRepository, bridge repository.EventBridge, queue TaskEnqueuer) *AuctionService {
	if live == nil || archive == nil || bridge == nil || queue == nil {
		panic("all dependencies must be non-nil for AuctionService")
	}
	return &AuctionService{
		live:    live,
		archive: archive,
		bridge:  bridge,
		queue:   queue,
		log:     logrus.WithField("component", "auction"),
		now:     time.Now,
	}
}

// OpenAuctionParams describes a new auction to open.
type OpenAuctionParams struct {
	AuctionID       string        `json:"auction_id"`
	PropertyID      string        `json:"property_id"`
	StartPrice      int64         `json:"start_price"`
	MinIncrement    int64         `json:"min_increment"`
	StartTime       time.Time     `json:"start_time"`
	EndTime         time.Time     `json:"end_time"`
	AntiSnipeWindow time.Duration `json:"anti_snipe_window,omitempty"`
}

// Open creates the authoritative state for a new auction. Only agents may
// open auctions. The auction starts PENDING (joinable, not biddable) and
// the sweep activates it when its start time arrives.
func (s *AuctionService) Open(ctx context.Context, seller domain.Identity, p OpenAuctionParams) (*domain.AuctionState, error) {
	if !seller.HasCapability(domain.CapabilityAgent) {
		return nil, ErrNotAuthorized
	}
	if p.AuctionID == "" || p.PropertyID == "" || p.MinIncrement <= 0 || p.StartPrice < 0 {
		return nil, ErrValidation
	}
	if !p.EndTime.After(p.StartTime) {
		return nil, ErrValidation
	}
	window := p.AntiSnipeWindow
	if window <= 0 {
		window = defaultAntiSnipeWindow
	}

	state := &domain.AuctionState{
		AuctionID:       p.AuctionID,
		PropertyID:      p.PropertyID,
		SellerID:        seller.ID,
		Status:          domain.AuctionPending,
		HighestBid:      p.StartPrice,
		MinIncrement:    p.MinIncrement,
		StartTime:       p.StartTime.UTC(),
		EndTime:         p.EndTime.UTC(),
		AntiSnipeWindow: window,
	}
	if err := s.live.CreateAuctionState(ctx, state); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return nil, ErrAuctionExists
		}
		s.log.WithError(err).WithField("auction_id", p.AuctionID).Error("Failed to create auction state")
		return nil, ErrInternalServer
	}
	if err := s.live.AddOpenAuction(ctx, p.AuctionID); err != nil {
		s.log.WithError(err).WithField("auction_id", p.AuctionID).Error("Failed to index open auction")
	}
	s.log.WithFields(logrus.Fields{
		"auction_id":  p.AuctionID,
		"property_id": p.PropertyID,
		"end_time":    state.EndTime,
	}).Info("Auction opened")
	return state, nil
}

// Get reads the current authoritative state.
func (s *AuctionService) Get(ctx context.Context, auctionID string) (*domain.AuctionState, error) {
	state, err := s.live.GetAuctionState(ctx, auctionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAuctionNotFound
		}
		s.log.WithError(err).WithField("auction_id", auctionID).Error("Failed to read auction state")
		return nil, ErrInternalServer
	}
	return state, nil
}

// BidOutcome is what an accepted bid produced.
type BidOutcome struct {
	State    *domain.AuctionState
	Bid      domain.Bid
	Extended bool
}

// PlaceBid validates and serializes one bid.
//
// Each attempt re-reads the committed state, validates against it, computes
// the candidate (new highest bid, incremented count, and an end time pushed
// out when the bid lands inside the anti-snipe window of the *committed*
// end time), and commits only if the state is unchanged since the read.
// Losing the race restarts against fresh state, bounded by
// maxCommitAttempts.
func (s *AuctionService) PlaceBid(ctx context.Context, bidder domain.Identity, auctionID string, amount int64) (*BidOutcome, error) {
	if bidder.Anonymous {
		return nil, ErrNotAuthorized
	}
	logCtx := s.log.WithFields(logrus.Fields{
		"auction_id": auctionID,
		"bidder":     bidder.ID,
		"amount":     amount,
	})

	for attempt := 0; attempt < maxCommitAttempts; attempt++ {
		var (
			bid      domain.Bid
			extended bool
		)
		committed, err := s.live.UpdateAuctionState(ctx, auctionID, func(cur *domain.AuctionState) (*domain.AuctionState, error) {
			now := s.now().UTC()
			if !cur.Biddable() || !now.Before(cur.EndTime) {
				return nil, ErrAuctionNotActive
			}
			if amount < cur.MinimumNextBid() {
				return nil, ErrBidTooLow
			}

			next := *cur
			next.HighestBid = amount
			next.HighestBidder = bidder.ID
			next.BidCount = cur.BidCount + 1

			// The extension is computed from the committed end time, not a
			// value cached before contention, so back-to-back bids inside
			// the window each push the close out again.
			extended = cur.EndTime.Sub(now) < cur.AntiSnipeWindow
			if extended {
				next.EndTime = now.Add(cur.AntiSnipeWindow)
				next.Status = domain.AuctionExtended
			} else {
				next.Status = domain.AuctionActive
			}

			bid = domain.Bid{
				AuctionID: auctionID,
				BidderID:  bidder.ID,
				Amount:    amount,
				Seq:       next.BidCount,
				PlacedAt:  now,
			}
			return &next, nil
		})

		if err != nil {
			if errors.Is(err, repository.ErrConflict) {
				logCtx.WithField("attempt", attempt+1).Debug("Bid lost commit race, retrying against fresh state")
				continue
			}
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrAuctionNotFound
			}
			if errors.Is(err, ErrAuctionNotActive) || errors.Is(err, ErrBidTooLow) {
				// Domain rejection: no state change, no broadcast.
				return nil, err
			}
			logCtx.WithError(err).Error("Bid commit failed")
			return nil, ErrInternalServer
		}

		s.afterBidCommit(ctx, committed, bid, extended, logCtx)
		return &BidOutcome{State: committed, Bid: bid, Extended: extended}, nil
	}

	logCtx.Warn("Bid exceeded commit retry budget")
	return nil, ErrContentionExceeded
}

func (s *AuctionService) afterBidCommit(ctx context.Context, state *domain.AuctionState, bid domain.Bid, extended bool, logCtx *logrus.Entry) {
	// Durable audit copy rides the critical queue; the commit already
	// happened, so a queue hiccup is logged, not surfaced to the bidder.
	task, err := tasks.NewBidAuditTask(bid)
	if err == nil {
		err = s.queue.Enqueue(ctx, task)
	}
	if err != nil {
		logCtx.WithError(err).Error("Failed to enqueue bid audit")
	}

	room := domain.AuctionRoom(state.AuctionID)
	ev := domain.MustEvent(domain.EvAuctionNewBid, domain.NewBidPayload{State: *state, Bid: bid})
	if err := s.bridge.Publish(ctx, room, domain.Envelope{Event: ev}); err != nil {
		logCtx.WithError(err).Warn("Failed to publish auction.new_bid")
	}
	if extended {
		extEv := domain.MustEvent(domain.EvAuctionExtended, domain.AuctionExtendedPayload{
			AuctionID:  state.AuctionID,
			NewEndTime: state.EndTime.Format(time.RFC3339Nano),
		})
		if err := s.bridge.Publish(ctx, room, domain.Envelope{Event: extEv}); err != nil {
			logCtx.WithError(err).Warn("Failed to publish auction.extended")
		}
	}

	logCtx.WithFields(logrus.Fields{
		"seq":      bid.Seq,
		"extended": extended,
		"end_time": state.EndTime,
	}).Info("Bid accepted")
}

// Sweep drives the out-of-request transitions: PENDING auctions whose start
// time arrived become ACTIVE, and biddable auctions past their end time
// close. Closing uses the same conditional-commit discipline as bidding, so
// a bid racing the wire either lands before the close or not at all.
func (s *AuctionService) Sweep(ctx context.Context) error {
	ids, err := s.live.ListOpenAuctions(ctx)
	if err != nil {
		s.log.WithError(err).Error("Sweep failed to list open auctions")
		return err
	}
	for _, id := range ids {
		s.sweepOne(ctx, id)
	}
	return nil
}

func (s *AuctionService) sweepOne(ctx context.Context, auctionID string) {
	logCtx := s.log.WithField("auction_id", auctionID)

	for attempt := 0; attempt < maxCommitAttempts; attempt++ {
		committed, err := s.live.UpdateAuctionState(ctx, auctionID, func(cur *domain.AuctionState) (*domain.AuctionState, error) {
			now := s.now().UTC()
			switch {
			case cur.Status == domain.AuctionPending && !now.Before(cur.StartTime):
				next := *cur
				next.Status = domain.AuctionActive
				return &next, nil
			case cur.Biddable() && !now.Before(cur.EndTime):
				next := *cur
				next.Status = domain.AuctionClosed
				return &next, nil
			case cur.Status == domain.AuctionClosed:
				return nil, errAlreadyClosed
			default:
				return nil, errNoTransition
			}
		})

		if err != nil {
			if errors.Is(err, repository.ErrConflict) {
				continue
			}
			if errors.Is(err, errNoTransition) {
				return
			}
			if errors.Is(err, errAlreadyClosed) {
				// A closed auction still indexed means an earlier deindex
				// failed; repair it so the sweep stops revisiting it.
				if remErr := s.live.RemoveOpenAuction(ctx, auctionID); remErr != nil {
					logCtx.WithError(remErr).Warn("Failed to deindex closed auction")
				}
				return
			}
			if errors.Is(err, repository.ErrNotFound) {
				// State evicted out from under the index; drop the entry.
				if remErr := s.live.RemoveOpenAuction(ctx, auctionID); remErr != nil {
					logCtx.WithError(remErr).Warn("Failed to deindex missing auction")
				}
				return
			}
			logCtx.WithError(err).Error("Sweep transition failed")
			return
		}

		switch committed.Status {
		case domain.AuctionActive:
			ev := domain.MustEvent(domain.EvAuctionState, committed)
			if err := s.bridge.Publish(ctx, domain.AuctionRoom(auctionID), domain.Envelope{Event: ev}); err != nil {
				logCtx.WithError(err).Warn("Failed to publish auction activation")
			}
			logCtx.Info("Auction activated")
		case domain.AuctionClosed:
			s.afterClose(ctx, committed, logCtx)
		}
		return
	}
	logCtx.Warn("Sweep exceeded commit retry budget, will retry next tick")
}

func (s *AuctionService) afterClose(ctx context.Context, state *domain.AuctionState, logCtx *logrus.Entry) {
	if err := s.live.RemoveOpenAuction(ctx, state.AuctionID); err != nil {
		logCtx.WithError(err).Warn("Failed to deindex closed auction")
	}

	result := &domain.AuctionResult{
		AuctionID:  state.AuctionID,
		PropertyID: state.PropertyID,
		WinnerID:   state.HighestBidder,
		FinalPrice: state.HighestBid,
		BidCount:   state.BidCount,
		ClosedAt:   s.now().UTC(),
	}
	if err := s.archive.Save(ctx, result); err != nil {
		logCtx.WithError(err).Error("Failed to archive auction result")
	}

	ev := domain.MustEvent(domain.EvAuctionClosed, domain.AuctionClosedPayload{State: *state})
	if err := s.bridge.Publish(ctx, domain.AuctionRoom(state.AuctionID), domain.Envelope{Event: ev}); err != nil {
		logCtx.WithError(err).Warn("Failed to publish auction.closed")
	}

	if state.HighestBidder != "" {
		task, err := tasks.NewNotificationTask(state.HighestBidder, domain.EvAuctionClosed, result)
		if err == nil {
			err = s.queue.Enqueue(ctx, task)
		}
		if err != nil {
			logCtx.WithError(err).Warn("Failed to enqueue winner notification")
		}
	}

	logCtx.WithFields(logrus.Fields{
		"winner":      state.HighestBidder,
		"final_price": state.HighestBid,
		"bid_count":   state.BidCount,
	}).Info("Auction closed")
}
