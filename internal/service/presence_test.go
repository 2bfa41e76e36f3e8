package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Srujan0798/Rest-iN-U-sub003/internal/domain"
	"github.com/Srujan0798/Rest-iN-U-sub003/internal/repository/mocks"
)

func newPresenceServiceForTest(ttl time.Duration) (*PresenceService, *mocks.MockLiveStateRepository, *mocks.MockEventBridge) {
	live := new(mocks.MockLiveStateRepository)
	bridge := new(mocks.MockEventBridge)
	return NewPresenceService(live, bridge, ttl), live, bridge
}

func TestSetStatusWritesWithTTLAndAnnounces(t *testing.T) {
	svc, live, bridge := newPresenceServiceForTest(2 * time.Minute)
	identity := domain.Identity{ID: "user-1"}

	live.On("SetPresence", mock.Anything, "user-1", domain.PresenceAway, 2*time.Minute).Return(nil).Once()
	bridge.On("Publish", mock.Anything, domain.RoomKey{Kind: domain.RoomUser, ID: "user-1"}, mock.MatchedBy(func(env domain.Envelope) bool {
		return env.Event.Type == domain.EvPresenceChanged
	})).Return(nil).Once()

	require.NoError(t, svc.SetStatus(context.Background(), identity, domain.PresenceAway))
	live.AssertExpectations(t)
	bridge.AssertExpectations(t)
}

func TestSetStatusRejectsAnonymous(t *testing.T) {
	svc, live, _ := newPresenceServiceForTest(0)

	err := svc.SetStatus(context.Background(), domain.NewAnonymousIdentity(), domain.PresenceOnline)
	assert.ErrorIs(t, err, ErrNotAuthorized)
	live.AssertNotCalled(t, "SetPresence", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGetStatusExpiredReadsOffline(t *testing.T) {
	svc, live, _ := newPresenceServiceForTest(0)

	// The store reports a missing or expired key as offline, not an error.
	live.On("GetPresence", mock.Anything, "user-gone").Return(domain.PresenceOffline, nil).Once()

	status, err := svc.GetStatus(context.Background(), "user-gone")
	require.NoError(t, err)
	assert.Equal(t, domain.PresenceOffline, status)
}

func TestGetStatusesDegradesToOffline(t *testing.T) {
	svc, live, _ := newPresenceServiceForTest(0)

	live.On("GetPresence", mock.Anything, "user-up").Return(domain.PresenceOnline, nil).Once()
	live.On("GetPresence", mock.Anything, "user-broken").Return(domain.PresenceOffline, errors.New("read timeout")).Once()

	statuses := svc.GetStatuses(context.Background(), []string{"user-up", "user-broken"})
	assert.Equal(t, domain.PresenceOnline, statuses["user-up"])
	assert.Equal(t, domain.PresenceOffline, statuses["user-broken"])
}

func TestTouchRefreshesTTL(t *testing.T) {
	svc, live, _ := newPresenceServiceForTest(90 * time.Second)

	live.On("RefreshPresence", mock.Anything, "user-1", 90*time.Second).Return(nil).Once()
	svc.Touch(context.Background(), domain.Identity{ID: "user-1"})
	live.AssertExpectations(t)
}

func TestTouchIgnoresAnonymous(t *testing.T) {
	svc, live, _ := newPresenceServiceForTest(0)

	svc.Touch(context.Background(), domain.NewAnonymousIdentity())
	live.AssertNotCalled(t, "RefreshPresence", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleDisconnectLastConnectionWritesOffline(t *testing.T) {
	svc, live, bridge := newPresenceServiceForTest(time.Minute)
	identity := domain.Identity{ID: "user-1"}

	live.On("SetPresence", mock.Anything, "user-1", domain.PresenceOffline, time.Minute).Return(nil).Once()
	bridge.On("Publish", mock.Anything, domain.RoomKey{Kind: domain.RoomUser, ID: "user-1"}, mock.Anything).Return(nil).Once()

	svc.HandleDisconnect(context.Background(), identity, 0)
	live.AssertExpectations(t)
	bridge.AssertExpectations(t)
}

func TestHandleDisconnectOtherConnectionsRemain(t *testing.T) {
	svc, live, bridge := newPresenceServiceForTest(time.Minute)

	svc.HandleDisconnect(context.Background(), domain.Identity{ID: "user-1"}, 1)
	live.AssertNotCalled(t, "SetPresence", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	bridge.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleConnectMarksOnline(t *testing.T) {
	svc, live, bridge := newPresenceServiceForTest(time.Minute)

	live.On("SetPresence", mock.Anything, "user-1", domain.PresenceOnline, time.Minute).Return(nil).Once()
	bridge.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	svc.HandleConnect(context.Background(), domain.Identity{ID: "user-1"})
	live.AssertExpectations(t)
}
