package realtime_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"chatcore/internal/realtime"
)

func TestDeliverSkipsExcludedSenderAndOffline(t *testing.T) {
	reg := realtime.NewRegistry()
	members := new(MockMemberRepo)
	engine := realtime.NewBroadcaster(reg, members)

	_, senderConn := onlineSession(reg, 1)
	_, bConn := onlineSession(reg, 2)
	// User 3 has no session: offline.

	env := realtime.Envelope{Type: realtime.EventMessage, Data: map[string]any{"content": "hi"}}
	n := engine.Deliver(context.Background(), []int64{1, 2, 3}, env, realtime.DeliverOptions{ExcludeUserID: 1})

	assert.Equal(t, 1, n)
	assert.Empty(t, senderConn.sentFrames(t))
	assert.Len(t, bConn.sentFrames(t), 1)
	assert.Equal(t, realtime.EventMessage, bConn.lastFrame(t).Type)
}

func TestDeliverBlockCutoff(t *testing.T) {
	reg := realtime.NewRegistry()
	members := new(MockMemberRepo)
	engine := realtime.NewBroadcaster(reg, members)

	_, aConn := onlineSession(reg, 1)

	// A blocked after message 100; 101 is withheld, 100 still goes through.
	members.On("Get", mock.Anything, int64(42), int64(1)).Return(memberRow(42, 1, ptr(100)), nil)

	env := realtime.Envelope{Type: realtime.EventMessage}

	n := engine.Deliver(context.Background(), []int64{1}, env, realtime.DeliverOptions{
		FilterConversationID: 42,
		MessageID:            101,
	})
	assert.Equal(t, 0, n)
	assert.Empty(t, aConn.sentFrames(t))

	n = engine.Deliver(context.Background(), []int64{1}, env, realtime.DeliverOptions{
		FilterConversationID: 42,
		MessageID:            100,
	})
	assert.Equal(t, 1, n)
	assert.Len(t, aConn.sentFrames(t), 1)
}

func TestDeliverNoCutoffMeansFullDelivery(t *testing.T) {
	reg := realtime.NewRegistry()
	members := new(MockMemberRepo)
	engine := realtime.NewBroadcaster(reg, members)

	_, aConn := onlineSession(reg, 1)
	members.On("Get", mock.Anything, int64(42), int64(1)).Return(memberRow(42, 1, nil), nil)

	n := engine.Deliver(context.Background(), []int64{1}, realtime.Envelope{Type: realtime.EventMessage},
		realtime.DeliverOptions{FilterConversationID: 42, MessageID: 999})

	assert.Equal(t, 1, n)
	assert.Len(t, aConn.sentFrames(t), 1)
}

func TestDeliverCutoffLookupFailureWithholds(t *testing.T) {
	reg := realtime.NewRegistry()
	members := new(MockMemberRepo)
	engine := realtime.NewBroadcaster(reg, members)

	_, aConn := onlineSession(reg, 1)
	members.On("Get", mock.Anything, int64(42), int64(1)).Return(nil, errors.New("db down"))

	n := engine.Deliver(context.Background(), []int64{1}, realtime.Envelope{Type: realtime.EventMessage},
		realtime.DeliverOptions{FilterConversationID: 42, MessageID: 5})

	assert.Equal(t, 0, n)
	assert.Empty(t, aConn.sentFrames(t))
}

func TestDeliverWriteFailureIsolated(t *testing.T) {
	reg := realtime.NewRegistry()
	engine := realtime.NewBroadcaster(reg, new(MockMemberRepo))

	badConn := &fakeConn{failWrites: true}
	reg.Register(realtime.NewSession(1, badConn))
	_, goodConn := onlineSession(reg, 2)

	n := engine.Deliver(context.Background(), []int64{1, 2}, realtime.Envelope{Type: realtime.EventTyping},
		realtime.DeliverOptions{})

	// The failed write is counted as a miss but delivery to the rest proceeds.
	assert.Equal(t, 1, n)
	assert.Len(t, goodConn.sentFrames(t), 1)
}

func TestBroadcastToAll(t *testing.T) {
	reg := realtime.NewRegistry()
	engine := realtime.NewBroadcaster(reg, new(MockMemberRepo))

	conns := make([]*fakeConn, 0, 3)
	for uid := int64(1); uid <= 3; uid++ {
		_, c := onlineSession(reg, uid)
		conns = append(conns, c)
	}

	n := engine.BroadcastToAll(realtime.Envelope{Type: realtime.EventGroupUpdate})
	assert.Equal(t, 3, n)
	for _, c := range conns {
		assert.Len(t, c.sentFrames(t), 1)
	}
}
