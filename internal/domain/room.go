package domain

import (
	"fmt"
	"strings"
)

// RoomKind enumerates the broadcast scopes the gateway understands.
type RoomKind string

const (
	RoomUser      RoomKind = "user"
	RoomProperty  RoomKind = "property"
	RoomOpenHouse RoomKind = "openhouse"
	RoomTour      RoomKind = "tour"
	RoomAuction   RoomKind = "auction"
	RoomAgent     RoomKind = "agent"
)

// ValidRoomKind reports whether k is one of the known kinds.
func ValidRoomKind(k RoomKind) bool {
	switch k {
	case RoomUser, RoomProperty, RoomOpenHouse, RoomTour, RoomAuction, RoomAgent:
		return true
	}
	return false
}

// RoomKey names one room: a kind plus the id of the thing it is about.
type RoomKey struct {
	Kind RoomKind `json:"kind"`
	ID   string   `json:"id"`
}

func (k RoomKey) String() string {
	return string(k.Kind) + ":" + k.ID
}

// ParseRoomKey parses "kind:id" back into a RoomKey.
func ParseRoomKey(s string) (RoomKey, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 || parts[1] == "" {
		return RoomKey{}, fmt.Errorf("malformed room key %q", s)
	}
	key := RoomKey{Kind: RoomKind(parts[0]), ID: parts[1]}
	if !ValidRoomKind(key.Kind) {
		return RoomKey{}, fmt.Errorf("unknown room kind %q", parts[0])
	}
	return key, nil
}

// AuctionRoom is the broadcast scope for one live auction.
func AuctionRoom(auctionID string) RoomKey {
	return RoomKey{Kind: RoomAuction, ID: auctionID}
}
