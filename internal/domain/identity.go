package domain

import (
	"github.com/google/uuid"
)

// Capability names carried in verified credentials.
const (
	CapabilityAgent = "agent"
	CapabilityAdmin = "admin"
)

// Identity is who a connection acts as: either a verified user id or an
// anonymous session id that lives exactly as long as the connection.
type Identity struct {
	ID           string   `json:"id"`
	Anonymous    bool     `json:"anonymous"`
	Capabilities []string `json:"capabilities,omitempty"`
}

// NewAnonymousIdentity mints a throwaway identity for an unauthenticated
// connection. It is never persisted anywhere.
func NewAnonymousIdentity() Identity {
	return Identity{
		ID:        "anon-" + uuid.NewString(),
		Anonymous: true,
	}
}

// HasCapability reports whether the identity carries the named capability.
// Anonymous identities never carry capabilities.
func (i Identity) HasCapability(name string) bool {
	if i.Anonymous {
		return false
	}
	for _, c := range i.Capabilities {
		if c == name {
			return true
		}
	}
	return false
}

// UserRoom is the per-identity room every authenticated connection joins
// automatically, so other components can target an identity without knowing
// its connection topology.
func (i Identity) UserRoom() RoomKey {
	return RoomKey{Kind: RoomUser, ID: i.ID}
}
