package realtime

import (
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ErrSessionClosed is returned by writes against a closed session.
var ErrSessionClosed = errors.New("session closed")

// Conn is the subset of the websocket connection the core writes through.
// *websocket.Conn satisfies it.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// writeWait bounds every frame write. A stalled peer must not hold the write
// lock indefinitely, or every later fan-out to this session queues behind it.
const writeWait = 10 * time.Second

// Session binds an authenticated user identity to one live connection. The
// connection handle is owned exclusively by the session; all writes go
// through the session's write lock because the transport forbids concurrent
// writers on one connection.
type Session struct {
	ID            string
	UserID        int64
	EstablishedAt time.Time

	conn     Conn
	writeMu  sync.Mutex
	closed   atomic.Bool
	done     chan struct{}
	doneOnce sync.Once
}

func NewSession(userID int64, conn Conn) *Session {
	return &Session{
		ID:            uuid.NewString(),
		UserID:        userID,
		EstablishedAt: time.Now(),
		conn:          conn,
		done:          make(chan struct{}),
	}
}

// Open reports whether the underlying connection is still usable.
func (s *Session) Open() bool {
	return !s.closed.Load()
}

// Done is closed once the session stops accepting writes, whether through
// Close or a failed write. Goroutines tied to the session's lifetime select
// on it to exit promptly.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) signalDone() {
	s.doneOnce.Do(func() { close(s.done) })
}

// Send serializes v and writes it as a single text frame.
func (s *Session) Send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.write(data)
}

func (s *Session) write(data []byte) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.closed.Store(true)
		s.signalDone()
		return err
	}
	return nil
}

// Ping writes a transport-level ping frame.
func (s *Session) Ping() error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.PingMessage, nil)
}

// Close writes a close frame with the given code and closes the connection.
// Safe to call more than once.
func (s *Session) Close(code int, reason string) {
	defer s.signalDone()
	if s.closed.Swap(true) {
		return
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
	_ = s.conn.Close()
}
