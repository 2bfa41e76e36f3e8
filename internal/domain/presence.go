package domain

import "time"

// PresenceStatus is the liveness state of an identity, independent of any
// single connection.
type PresenceStatus string

const (
	PresenceOnline  PresenceStatus = "online"
	PresenceAway    PresenceStatus = "away"
	PresenceBusy    PresenceStatus = "busy"
	PresenceOffline PresenceStatus = "offline"
)

// ValidPresenceStatus reports whether s is a status a client may set.
// Offline is included: clients may go invisible explicitly.
func ValidPresenceStatus(s PresenceStatus) bool {
	switch s {
	case PresenceOnline, PresenceAway, PresenceBusy, PresenceOffline:
		return true
	}
	return false
}

// PresenceRecord is the stored liveness state. A record whose TTL has lapsed
// reads as offline even before the store evicts it.
type PresenceRecord struct {
	Identity  string         `json:"identity"`
	Status    PresenceStatus `json:"status"`
	UpdatedAt time.Time      `json:"updated_at"`
}
