package service_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"chatcore/internal/domain"
)

type MockConversationRepo struct {
	mock.Mock
}

func (m *MockConversationRepo) GetByID(ctx context.Context, id int64) (*domain.Conversation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

type MockMemberRepo struct {
	mock.Mock
}

func (m *MockMemberRepo) ListMemberIDs(ctx context.Context, conversationID int64) ([]int64, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockMemberRepo) Get(ctx context.Context, conversationID, userID int64) (*domain.ConversationMember, error) {
	args := m.Called(ctx, conversationID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ConversationMember), args.Error(1)
}

func (m *MockMemberRepo) SetPinned(ctx context.Context, conversationID, userID int64, value bool) error {
	return m.Called(ctx, conversationID, userID, value).Error(0)
}

func (m *MockMemberRepo) SetArchived(ctx context.Context, conversationID, userID int64, value bool) error {
	return m.Called(ctx, conversationID, userID, value).Error(0)
}

func (m *MockMemberRepo) SetDnd(ctx context.Context, conversationID, userID int64, value bool) error {
	return m.Called(ctx, conversationID, userID, value).Error(0)
}

func (m *MockMemberRepo) SetBlockCutoff(ctx context.Context, conversationID, userID int64, cutoff *int64) error {
	return m.Called(ctx, conversationID, userID, cutoff).Error(0)
}

type MockGroupRepo struct {
	mock.Mock
}

func (m *MockGroupRepo) ListMemberIDs(ctx context.Context, groupID int64) ([]int64, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockGroupRepo) RemoveMember(ctx context.Context, groupID, userID int64) error {
	return m.Called(ctx, groupID, userID).Error(0)
}

type MockMessageRepo struct {
	mock.Mock
}

func (m *MockMessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *MockMessageRepo) LatestID(ctx context.Context, conversationID int64) (int64, error) {
	args := m.Called(ctx, conversationID)
	return args.Get(0).(int64), args.Error(1)
}

// MockPublisher records published events in order.
type MockPublisher struct {
	events []domain.Event
}

func (p *MockPublisher) Publish(ev domain.Event) {
	p.events = append(p.events, ev)
}

func member(conversationID, userID int64) *domain.ConversationMember {
	return &domain.ConversationMember{ConversationID: conversationID, UserID: userID}
}
