package realtime_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chatcore/internal/domain"
	"chatcore/internal/realtime"
	"chatcore/internal/service"
)

// fakeConn records text frames written through a session.
type fakeConn struct {
	mu             sync.Mutex
	frames         [][]byte
	failWrites     bool
	closed         bool
	closeCode      int
	writeDeadlines []time.Time
}

func (c *fakeConn) SetWriteDeadline(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeDeadlines = append(c.writeDeadlines, t)
	return nil
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failWrites {
		return errors.New("write failed")
	}
	switch messageType {
	case websocket.TextMessage:
		c.frames = append(c.frames, append([]byte(nil), data...))
	case websocket.CloseMessage:
		if len(data) >= 2 {
			c.closeCode = int(data[0])<<8 | int(data[1])
		}
	}
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (c *fakeConn) sentFrames(t *testing.T) []frame {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]frame, 0, len(c.frames))
	for _, raw := range c.frames {
		var f frame
		require.NoError(t, json.Unmarshal(raw, &f))
		out = append(out, f)
	}
	return out
}

func (c *fakeConn) lastFrame(t *testing.T) frame {
	t.Helper()
	fs := c.sentFrames(t)
	require.NotEmpty(t, fs)
	return fs[len(fs)-1]
}

// Mocks for the collaborator interfaces.

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

type MockSubmitter struct {
	mock.Mock
}

func (m *MockSubmitter) Submit(ctx context.Context, in service.SubmitInput) (*domain.Message, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

// Common fixtures.

func privateConv(id int64) *domain.Conversation {
	return &domain.Conversation{ID: id, Type: domain.ConversationPrivate}
}

func groupConv(id, groupID int64) *domain.Conversation {
	return &domain.Conversation{ID: id, Type: domain.ConversationGroup, RelatedGroupID: &groupID}
}

func onlineSession(reg *realtime.Registry, userID int64) (*realtime.Session, *fakeConn) {
	conn := &fakeConn{}
	sess := realtime.NewSession(userID, conn)
	reg.Register(sess)
	return sess, conn
}

// memberRow returns a member with an optional block cutoff.
func memberRow(conversationID, userID int64, cutoff *int64) *domain.ConversationMember {
	return &domain.ConversationMember{
		ConversationID:          conversationID,
		UserID:                  userID,
		LastAcceptableMessageID: cutoff,
	}
}

func ptr(v int64) *int64 {
	return &v
}
