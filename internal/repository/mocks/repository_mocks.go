package mocks

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/mock"

	"github.com/Srujan0798/Rest-iN-U-sub003/internal/domain"
	"github.com/Srujan0798/Rest-iN-U-sub003/internal/repository"
)

// MockMessageRepository is a testify mock for repository.MessageRepository.
type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) Save(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMessageRepository) MarkRead(ctx context.Context, messageID uint, reader string, at time.Time) (*domain.Message, error) {
	args := m.Called(ctx, messageID, reader, at)
	var msg *domain.Message
	if args.Get(0) != nil {
		msg = args.Get(0).(*domain.Message)
	}
	return msg, args.Error(1)
}

func (m *MockMessageRepository) ListConversation(ctx context.Context, a, b string, limit int) ([]domain.Message, error) {
	args := m.Called(ctx, a, b, limit)
	var msgs []domain.Message
	if args.Get(0) != nil {
		msgs = args.Get(0).([]domain.Message)
	}
	return msgs, args.Error(1)
}

// MockBidRepository is a testify mock for repository.BidRepository.
type MockBidRepository struct {
	mock.Mock
}

func (m *MockBidRepository) Save(ctx context.Context, bid *domain.Bid) error {
	args := m.Called(ctx, bid)
	return args.Error(0)
}

// MockAuctionArchiveRepository is a testify mock for
// repository.AuctionArchiveRepository.
type MockAuctionArchiveRepository struct {
	mock.Mock
}

func (m *MockAuctionArchiveRepository) Save(ctx context.Context, result *domain.AuctionResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

// MockLiveStateRepository is a testify mock for
// repository.LiveStateRepository.
type MockLiveStateRepository struct {
	mock.Mock
}

func (m *MockLiveStateRepository) CreateAuctionState(ctx context.Context, state *domain.AuctionState) error {
	args := m.Called(ctx, state)
	return args.Error(0)
}

func (m *MockLiveStateRepository) GetAuctionState(ctx context.Context, auctionID string) (*domain.AuctionState, error) {
	args := m.Called(ctx, auctionID)
	var state *domain.AuctionState
	if args.Get(0) != nil {
		state = args.Get(0).(*domain.AuctionState)
	}
	return state, args.Error(1)
}

func (m *MockLiveStateRepository) UpdateAuctionState(ctx context.Context, auctionID string, transform repository.AuctionTransform) (*domain.AuctionState, error) {
	args := m.Called(ctx, auctionID, transform)
	var state *domain.AuctionState
	if args.Get(0) != nil {
		state = args.Get(0).(*domain.AuctionState)
	}
	return state, args.Error(1)
}

func (m *MockLiveStateRepository) AddOpenAuction(ctx context.Context, auctionID string) error {
	args := m.Called(ctx, auctionID)
	return args.Error(0)
}

func (m *MockLiveStateRepository) RemoveOpenAuction(ctx context.Context, auctionID string) error {
	args := m.Called(ctx, auctionID)
	return args.Error(0)
}

func (m *MockLiveStateRepository) ListOpenAuctions(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	var ids []string
	if args.Get(0) != nil {
		ids = args.Get(0).([]string)
	}
	return ids, args.Error(1)
}

func (m *MockLiveStateRepository) SetPresence(ctx context.Context, identity string, status domain.PresenceStatus, ttl time.Duration) error {
	args := m.Called(ctx, identity, status, ttl)
	return args.Error(0)
}

func (m *MockLiveStateRepository) GetPresence(ctx context.Context, identity string) (domain.PresenceStatus, error) {
	args := m.Called(ctx, identity)
	return args.Get(0).(domain.PresenceStatus), args.Error(1)
}

func (m *MockLiveStateRepository) RefreshPresence(ctx context.Context, identity string, ttl time.Duration) error {
	args := m.Called(ctx, identity, ttl)
	return args.Error(0)
}

// MockEventBridge is a testify mock for repository.EventBridge.
type MockEventBridge struct {
	mock.Mock
}

func (m *MockEventBridge) Publish(ctx context.Context, room domain.RoomKey, env domain.Envelope) error {
	args := m.Called(ctx, room, env)
	return args.Error(0)
}

// MockTaskEnqueuer is a testify mock for service.TaskEnqueuer.
type MockTaskEnqueuer struct {
	mock.Mock
}

func (m *MockTaskEnqueuer) Enqueue(ctx context.Context, task *asynq.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}
