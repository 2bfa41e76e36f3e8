package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Inbound event names (client -> gateway).
const (
	EvRoomJoin       = "room.join"
	EvRoomLeave      = "room.leave"
	EvMessageSend    = "message.send"
	EvMessageTyping  = "message.typing"
	EvMessageRead    = "message.read"
	EvAuctionJoin    = "auction.join"
	EvAuctionBid     = "auction.bid"
	EvAuctionLeave   = "auction.leave"
	EvPresenceUpdate = "presence.update"
	EvPresenceCheck  = "presence.check"
)

// Outbound event names (gateway -> client).
const (
	EvMessageNew         = "message.new"
	EvMessageSent        = "message.sent"
	EvMessageReadNotice  = "message.read"
	EvMessageTypingOut   = "message.typing"
	EvAuctionNewBid      = "auction.new_bid"
	EvAuctionBidAccepted = "auction.bid_accepted"
	EvAuctionBidRejected = "auction.bid_rejected"
	EvAuctionExtended    = "auction.extended"
	EvAuctionClosed      = "auction.closed"
	EvAuctionState       = "auction.state"
	EvPresenceChanged    = "presence.changed"
	EvPresenceStatus     = "presence.status"
	EvError              = "error"
)

// Protocol-level rejection reasons. Every rejected action carries one of
// these, never a bare boolean.
const (
	ReasonAuctionNotActive   = "AUCTION_NOT_ACTIVE"
	ReasonBidTooLow          = "BID_TOO_LOW"
	ReasonContentionExceeded = "CONTENTION_EXCEEDED"
	ReasonNotAuthorized      = "NOT_AUTHORIZED"
	ReasonInvalidPayload     = "INVALID_PAYLOAD"
	ReasonUnknownEvent       = "UNKNOWN_EVENT"
	ReasonInternal           = "INTERNAL_ERROR"
)

// Event is the wire envelope in both directions: a closed event name plus a
// payload validated per name before it reaches any component.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewEvent builds an outbound envelope from a payload value.
func NewEvent(eventType string, payload interface{}) (Event, error) {
	if payload == nil {
		return Event{Type: eventType}, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{Type: eventType, Data: data}, nil
}

// MustEvent is NewEvent for payloads built from internal types, whose
// marshalling cannot fail.
func MustEvent(eventType string, payload interface{}) Event {
	ev, err := NewEvent(eventType, payload)
	if err != nil {
		panic(err)
	}
	return ev
}

// Envelope is what actually crosses the process boundary on the bridge.
// Origin lets the publishing instance honour its excluded connection while
// every other instance delivers to the full local room.
type Envelope struct {
	Origin      string `json:"origin"`
	ExcludeConn string `json:"exclude_conn,omitempty"`
	Event       Event  `json:"event"`
}

// --- Inbound payloads ---

type RoomPayload struct {
	Kind RoomKind `json:"kind"`
	ID   string   `json:"id"`
}

func (p *RoomPayload) Validate() error {
	if !ValidRoomKind(p.Kind) {
		return fmt.Errorf("unknown room kind %q", p.Kind)
	}
	if p.ID == "" {
		return errors.New("room id is required")
	}
	return nil
}

func (p *RoomPayload) Key() RoomKey { return RoomKey{Kind: p.Kind, ID: p.ID} }

type SendMessagePayload struct {
	To          string `json:"to"`
	Content     string `json:"content"`
	Attachments string `json:"attachments,omitempty"`
}

func (p *SendMessagePayload) Validate() error {
	if p.To == "" {
		return errors.New("recipient is required")
	}
	if p.Content == "" && p.Attachments == "" {
		return errors.New("message content is empty")
	}
	return nil
}

type TypingPayload struct {
	To     string `json:"to"`
	Typing bool   `json:"typing"`
}

func (p *TypingPayload) Validate() error {
	if p.To == "" {
		return errors.New("recipient is required")
	}
	return nil
}

type ReadPayload struct {
	MessageID uint `json:"message_id"`
}

func (p *ReadPayload) Validate() error {
	if p.MessageID == 0 {
		return errors.New("message id is required")
	}
	return nil
}

type AuctionJoinPayload struct {
	AuctionID string `json:"auction_id"`
}

func (p *AuctionJoinPayload) Validate() error {
	if p.AuctionID == "" {
		return errors.New("auction id is required")
	}
	return nil
}

type BidPayload struct {
	AuctionID string `json:"auction_id"`
	Amount    int64  `json:"amount"`
}

func (p *BidPayload) Validate() error {
	if p.AuctionID == "" {
		return errors.New("auction id is required")
	}
	if p.Amount <= 0 {
		return errors.New("bid amount must be positive")
	}
	return nil
}

type PresenceUpdatePayload struct {
	Status PresenceStatus `json:"status"`
}

func (p *PresenceUpdatePayload) Validate() error {
	if !ValidPresenceStatus(p.Status) {
		return fmt.Errorf("unknown presence status %q", p.Status)
	}
	return nil
}

type PresenceCheckPayload struct {
	Identities []string `json:"identities"`
}

func (p *PresenceCheckPayload) Validate() error {
	if len(p.Identities) == 0 {
		return errors.New("identities list is empty")
	}
	if len(p.Identities) > 100 {
		return errors.New("too many identities in one check")
	}
	return nil
}

// --- Outbound payloads ---

type ErrorPayload struct {
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

type BidRejectedPayload struct {
	AuctionID string `json:"auction_id"`
	Reason    string `json:"reason"`
	Amount    int64  `json:"amount"`
}

type AuctionExtendedPayload struct {
	AuctionID  string `json:"auction_id"`
	NewEndTime string `json:"new_end_time"` // RFC3339
}

type PresenceChangedPayload struct {
	Identity string         `json:"identity"`
	Status   PresenceStatus `json:"status"`
}

type PresenceStatusPayload struct {
	Statuses map[string]PresenceStatus `json:"statuses"`
}

type NewBidPayload struct {
	State AuctionState `json:"state"`
	Bid   Bid          `json:"bid"`
}

type AuctionClosedPayload struct {
	State AuctionState `json:"state"`
}

type TypingNoticePayload struct {
	From   string `json:"from"`
	Typing bool   `json:"typing"`
}

type ReadNoticePayload struct {
	MessageID uint   `json:"message_id"`
	Reader    string `json:"reader"`
	ReadAt    string `json:"read_at"` // RFC3339
}
