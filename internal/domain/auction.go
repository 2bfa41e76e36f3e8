package domain

import "time"

// AuctionStatus is the state machine position of one live auction.
// PENDING -> ACTIVE -> {EXTENDED <-> ACTIVE} -> CLOSED.
type AuctionStatus string

const (
	AuctionPending  AuctionStatus = "PENDING"
	AuctionActive   AuctionStatus = "ACTIVE"
	AuctionExtended AuctionStatus = "EXTENDED"
	AuctionClosed   AuctionStatus = "CLOSED"
)

// AuctionState is the single authoritative record for a live auction. It is
// mutated only through the coordinator's compare-and-commit cycle; the
// highest bid is non-decreasing over the auction's lifetime.
type AuctionState struct {
	AuctionID       string        `json:"auction_id"`
	PropertyID      string        `json:"property_id"`
	SellerID        string        `json:"seller_id"`
	Status          AuctionStatus `json:"status"`
	HighestBid      int64         `json:"highest_bid"` // minor currency units
	HighestBidder   string        `json:"highest_bidder,omitempty"`
	BidCount        int64         `json:"bid_count"`
	MinIncrement    int64         `json:"min_increment"`
	StartTime       time.Time     `json:"start_time"`
	EndTime         time.Time     `json:"end_time"`
	AntiSnipeWindow time.Duration `json:"anti_snipe_window"`
}

// Biddable reports whether the auction currently accepts bids.
func (s *AuctionState) Biddable() bool {
	return s.Status == AuctionActive || s.Status == AuctionExtended
}

// MinimumNextBid is the lowest amount the next bid may carry.
func (s *AuctionState) MinimumNextBid() int64 {
	return s.HighestBid + s.MinIncrement
}

// Bid is one accepted bid, append-only audit material. Seq is the gap-free
// acceptance order within the auction.
type Bid struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AuctionID string    `gorm:"size:64;index" json:"auction_id"`
	BidderID  string    `gorm:"size:64;index" json:"bidder_id"`
	Amount    int64     `json:"amount"`
	Seq       int64     `json:"seq"`
	PlacedAt  time.Time `json:"placed_at"`
}

func (Bid) TableName() string { return "rt_bids" }

// AuctionResult is the durable record written when an auction closes.
type AuctionResult struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	AuctionID  string    `gorm:"size:64;uniqueIndex" json:"auction_id"`
	PropertyID string    `gorm:"size:64;index" json:"property_id"`
	WinnerID   string    `gorm:"size:64" json:"winner_id,omitempty"`
	FinalPrice int64     `json:"final_price"`
	BidCount   int64     `json:"bid_count"`
	ClosedAt   time.Time `json:"closed_at"`
}

func (AuctionResult) TableName() string { return "rt_auction_results" }
