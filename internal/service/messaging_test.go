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
	"github.com/Srujan0798/Rest-iN-U-sub003/internal/repository"
	"github.com/Srujan0798/Rest-iN-U-sub003/internal/repository/mocks"
)

func newMessagingServiceForTest() (*MessagingService, *mocks.MockMessageRepository, *mocks.MockEventBridge, *mocks.MockTaskEnqueuer) {
	messages := new(mocks.MockMessageRepository)
	bridge := new(mocks.MockEventBridge)
	queue := new(mocks.MockTaskEnqueuer)
	return NewMessagingService(messages, bridge, queue), messages, bridge, queue
}

func TestSendPersistsThenPublishes(t *testing.T) {
	svc, messages, bridge, queue := newMessagingServiceForTest()
	sender := domain.Identity{ID: "user-a"}

	var savedAt time.Time
	messages.On("Save", mock.Anything, mock.MatchedBy(func(m *domain.Message) bool {
		return m.SenderID == "user-a" && m.RecipientID == "user-b" && m.Content == "hello"
	})).Run(func(args mock.Arguments) {
		msg := args.Get(1).(*domain.Message)
		msg.ID = 42
		savedAt = time.Now()
	}).Return(nil).Once()

	bridge.On("Publish", mock.Anything, domain.RoomKey{Kind: domain.RoomUser, ID: "user-b"}, mock.MatchedBy(func(env domain.Envelope) bool {
		// Publish must carry the persisted copy: the save already happened.
		return env.Event.Type == domain.EvMessageNew && !savedAt.IsZero()
	})).Return(nil).Once()
	queue.On("Enqueue", mock.Anything, mock.Anything).Return(nil).Once()

	msg, err := svc.Send(context.Background(), sender, domain.SendMessagePayload{To: "user-b", Content: "hello"})
	require.NoError(t, err)
	assert.Equal(t, uint(42), msg.ID)

	messages.AssertExpectations(t)
	bridge.AssertExpectations(t)
	queue.AssertExpectations(t)
}

func TestSendOfflineRecipientStillPersisted(t *testing.T) {
	svc, messages, bridge, queue := newMessagingServiceForTest()

	messages.On("Save", mock.Anything, mock.Anything).Return(nil).Once()
	// Fan-out failing must not fail the send: the durable copy is the
	// delivery guarantee, history recovers the rest.
	bridge.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("publish down")).Once()
	queue.On("Enqueue", mock.Anything, mock.Anything).Return(nil).Once()

	msg, err := svc.Send(context.Background(), domain.Identity{ID: "user-a"}, domain.SendMessagePayload{To: "user-b", Content: "hi"})
	require.NoError(t, err)
	assert.NotNil(t, msg)
	messages.AssertExpectations(t)
}

func TestSendPersistFailureFailsSend(t *testing.T) {
	svc, messages, bridge, _ := newMessagingServiceForTest()

	messages.On("Save", mock.Anything, mock.Anything).Return(errors.New("db down")).Once()

	_, err := svc.Send(context.Background(), domain.Identity{ID: "user-a"}, domain.SendMessagePayload{To: "user-b", Content: "hi"})
	assert.ErrorIs(t, err, ErrInternalServer)
	bridge.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestSendAnonymousRejected(t *testing.T) {
	svc, messages, _, _ := newMessagingServiceForTest()

	_, err := svc.Send(context.Background(), domain.NewAnonymousIdentity(), domain.SendMessagePayload{To: "user-b", Content: "hi"})
	assert.ErrorIs(t, err, ErrNotAuthorized)
	messages.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestMarkReadNotifiesSender(t *testing.T) {
	svc, messages, bridge, _ := newMessagingServiceForTest()
	readAt := time.Now().UTC()
	stored := &domain.Message{ID: 7, SenderID: "user-a", RecipientID: "user-b", ReadAt: &readAt}

	messages.On("MarkRead", mock.Anything, uint(7), "user-b", mock.Anything).Return(stored, nil).Once()
	bridge.On("Publish", mock.Anything, domain.RoomKey{Kind: domain.RoomUser, ID: "user-a"}, mock.MatchedBy(func(env domain.Envelope) bool {
		return env.Event.Type == domain.EvMessageReadNotice
	})).Return(nil).Once()

	msg, err := svc.MarkRead(context.Background(), domain.Identity{ID: "user-b"}, 7)
	require.NoError(t, err)
	assert.Equal(t, uint(7), msg.ID)
	bridge.AssertExpectations(t)
}

func TestMarkReadUnknownMessage(t *testing.T) {
	svc, messages, _, _ := newMessagingServiceForTest()

	messages.On("MarkRead", mock.Anything, uint(99), "user-b", mock.Anything).Return(nil, repository.ErrNotFound).Once()

	_, err := svc.MarkRead(context.Background(), domain.Identity{ID: "user-b"}, 99)
	assert.ErrorIs(t, err, ErrMessageNotFound)
}

func TestTypingIsTransient(t *testing.T) {
	svc, messages, bridge, queue := newMessagingServiceForTest()

	bridge.On("Publish", mock.Anything, domain.RoomKey{Kind: domain.RoomUser, ID: "user-b"}, mock.MatchedBy(func(env domain.Envelope) bool {
		return env.Event.Type == domain.EvMessageTypingOut
	})).Return(nil).Once()

	err := svc.Typing(context.Background(), domain.Identity{ID: "user-a"}, domain.TypingPayload{To: "user-b", Typing: true})
	require.NoError(t, err)
	messages.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	queue.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything)
}

func TestHistoryReturnsConversation(t *testing.T) {
	svc, messages, _, _ := newMessagingServiceForTest()
	stored := []domain.Message{{ID: 1, SenderID: "user-a"}, {ID: 2, SenderID: "user-b"}}

	messages.On("ListConversation", mock.Anything, "user-a", "user-b", 50).Return(stored, nil).Once()

	msgs, err := svc.History(context.Background(), domain.Identity{ID: "user-a"}, "user-b", 50)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}
