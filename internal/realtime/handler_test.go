package realtime_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatcore/internal/realtime"
	"chatcore/internal/security"
)

func newTestServer(t *testing.T) (*httptest.Server, *security.TokenService) {
	t.Helper()

	tokens := security.NewTokenService("test-secret")
	reg := realtime.NewRegistry()
	convs := new(MockConversationRepo)
	members := new(MockMemberRepo)
	groups := new(MockGroupRepo)
	resolver := realtime.NewResolver(convs, members, groups)
	engine := realtime.NewBroadcaster(reg, members)
	router := realtime.NewRouter(resolver, engine, new(MockSubmitter))
	lifecycle := realtime.NewLifecycle(reg, tokens, false, 0)

	handler := realtime.NewHandler(lifecycle, router, realtime.HandlerConfig{
		ReadLimit:        32768,
		HandshakeTimeout: 5 * time.Second,
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, tokens
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func TestHandlerHandshakeAndPing(t *testing.T) {
	srv, tokens := newTestServer(t)

	token, err := tokens.Sign(7, time.Hour)
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv)+"?token="+token, nil)
	require.NoError(t, err)
	defer conn.Close()

	ack := readFrame(t, conn)
	assert.Equal(t, realtime.EventConnectAck, ack.Type)
	assert.Contains(t, string(ack.Data), `"userId":7`)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "PING"}))
	pong := readFrame(t, conn)
	assert.Equal(t, realtime.EventPong, pong.Type)
}

func TestHandlerRejectsMissingToken(t *testing.T) {
	srv, _ := newTestServer(t)

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	assert.Error(t, err)
	assert.Nil(t, conn)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandlerRejectsInvalidToken(t *testing.T) {
	srv, _ := newTestServer(t)

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv)+"?token=garbage", nil)
	assert.Error(t, err)
	assert.Nil(t, conn)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandlerLastConnectionWins(t *testing.T) {
	srv, tokens := newTestServer(t)

	token, err := tokens.Sign(7, time.Hour)
	require.NoError(t, err)

	first, _, err := websocket.DefaultDialer.Dial(wsURL(srv)+"?token="+token, nil)
	require.NoError(t, err)
	defer first.Close()
	readFrame(t, first) // ack

	second, _, err := websocket.DefaultDialer.Dial(wsURL(srv)+"?token="+token, nil)
	require.NoError(t, err)
	defer second.Close()
	readFrame(t, second) // ack

	// The first connection is closed by the server with a policy violation.
	require.NoError(t, first.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = first.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, websocket.ClosePolicyViolation, closeErr.Code)

	// The second connection keeps working.
	require.NoError(t, second.WriteJSON(map[string]any{"type": "PING"}))
	assert.Equal(t, realtime.EventPong, readFrame(t, second).Type)
}

func TestHandlerMalformedFrameKeepsConnectionOpen(t *testing.T) {
	srv, tokens := newTestServer(t)

	token, err := tokens.Sign(7, time.Hour)
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv)+"?token="+token, nil)
	require.NoError(t, err)
	defer conn.Close()
	readFrame(t, conn) // ack

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": "MESSAGE",
		"data": map[string]any{"content": "hi"}, // no conversationId
	}))

	// Still alive: PING answered, nothing else surfaced.
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "PING"}))
	assert.Equal(t, realtime.EventPong, readFrame(t, conn).Type)
}
