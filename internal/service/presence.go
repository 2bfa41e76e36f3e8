package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Srujan0798/Rest-iN-U-sub003/internal/domain"
	"github.com/Srujan0798/Rest-iN-U-sub003/internal/repository"
)

// PresenceService maintains short-lived liveness state per identity in the
// shared store, so reads are valid across instances. Two-tier model: soft
// TTL decay for passive keep-alive, immediate offline write when the last
// connection of an identity closes.
type PresenceService struct {
	live   repository.LiveStateRepository
	bridge repository.EventBridge
	ttl    time.Duration
	log    *logrus.Entry
}

func NewPresenceService(live repository.LiveStateRepository, bridge repository.EventBridge, ttl time.Duration) *PresenceService {
	if live == nil || bridge == nil {
		panic("all dependencies must be non-nil for PresenceService")
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &PresenceService{
		live:   live,
		bridge: bridge,
		ttl:    ttl,
		log:    logrus.WithField("component", "presence"),
	}
}

// SetStatus writes the status with the configured TTL and announces the
// change on the identity's room. Anonymous identities carry no presence.
func (s *PresenceService) SetStatus(ctx context.Context, identity domain.Identity, status domain.PresenceStatus) error {
	if identity.Anonymous {
		return ErrNotAuthorized
	}
	if err := s.live.SetPresence(ctx, identity.ID, status, s.ttl); err != nil {
		s.log.WithError(err).WithField("identity", identity.ID).Error("Failed to write presence")
		return ErrInternalServer
	}
	s.announce(ctx, identity.ID, status)
	return nil
}

// Touch refreshes the TTL on any inbound activity from any connection of
// the identity. A missing record stays missing: touching never resurrects
// an expired status.
func (s *PresenceService) Touch(ctx context.Context, identity domain.Identity) {
	if identity.Anonymous {
		return
	}
	if err := s.live.RefreshPresence(ctx, identity.ID, s.ttl); err != nil {
		s.log.WithError(err).WithField("identity", identity.ID).Warn("Failed to refresh presence TTL")
	}
}

// GetStatus reads presence from the shared store; expired or never-written
// records read as offline.
func (s *PresenceService) GetStatus(ctx context.Context, identityID string) (domain.PresenceStatus, error) {
	status, err := s.live.GetPresence(ctx, identityID)
	if err != nil {
		s.log.WithError(err).WithField("identity", identityID).Error("Failed to read presence")
		return domain.PresenceOffline, ErrInternalServer
	}
	return status, nil
}

// GetStatuses resolves a batch of identities; unavailable reads degrade to
// offline rather than failing the whole check.
func (s *PresenceService) GetStatuses(ctx context.Context, identityIDs []string) map[string]domain.PresenceStatus {
	statuses := make(map[string]domain.PresenceStatus, len(identityIDs))
	for _, id := range identityIDs {
		status, err := s.live.GetPresence(ctx, id)
		if err != nil {
			s.log.WithError(err).WithField("identity", id).Warn("Presence read failed, reporting offline")
			status = domain.PresenceOffline
		}
		statuses[id] = status
	}
	return statuses
}

// HandleConnect marks an authenticated identity online on connect.
func (s *PresenceService) HandleConnect(ctx context.Context, identity domain.Identity) {
	if identity.Anonymous {
		return
	}
	if err := s.SetStatus(ctx, identity, domain.PresenceOnline); err != nil {
		s.log.WithError(err).WithField("identity", identity.ID).Warn("Failed to mark identity online on connect")
	}
}

// HandleDisconnect writes offline immediately when the identity's last
// connection closed, instead of waiting out the TTL.
func (s *PresenceService) HandleDisconnect(ctx context.Context, identity domain.Identity, remainingConns int) {
	if identity.Anonymous || remainingConns > 0 {
		return
	}
	if err := s.live.SetPresence(ctx, identity.ID, domain.PresenceOffline, s.ttl); err != nil {
		s.log.WithError(err).WithField("identity", identity.ID).Error("Failed to write offline presence on disconnect")
		return
	}
	s.announce(ctx, identity.ID, domain.PresenceOffline)
}

func (s *PresenceService) announce(ctx context.Context, identityID string, status domain.PresenceStatus) {
	ev := domain.MustEvent(domain.EvPresenceChanged, domain.PresenceChangedPayload{
		Identity: identityID,
		Status:   status,
	})
	room := domain.RoomKey{Kind: domain.RoomUser, ID: identityID}
	if err := s.bridge.Publish(ctx, room, domain.Envelope{Event: ev}); err != nil {
		s.log.WithError(err).WithField("identity", identityID).Warn("Failed to publish presence change")
	}
}
