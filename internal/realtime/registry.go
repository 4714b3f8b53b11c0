package realtime

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Registry is the one shared mutable structure of the realtime core: the
// binding between user IDs and live sessions. It holds at most one session
// per user. It is constructed once per process and injected wherever needed;
// nothing here is a package-level singleton.
type Registry struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[int64]*Session)}
}

// Register binds sess to its user and returns the evicted prior session, if
// any, so the caller can close it. Last connection wins.
func (r *Registry) Register(sess *Session) *Session {
	r.mu.Lock()
	prior := r.sessions[sess.UserID]
	r.sessions[sess.UserID] = sess
	r.mu.Unlock()

	log.Debug().Str("module", "realtime.registry").
		Int64("user_id", sess.UserID).
		Str("session_id", sess.ID).
		Msg("registered session")
	return prior
}

// Remove unbinds sess if it is still the registered session for its user.
// Removing an already-removed session, or a session that was replaced by a
// newer connection, is a no-op.
func (r *Registry) Remove(sess *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.sessions[sess.UserID]
	if !ok || cur.ID != sess.ID {
		return false
	}
	delete(r.sessions, sess.UserID)
	return true
}

// Lookup returns the live session for a user, if one is registered.
func (r *Registry) Lookup(userID int64) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[userID]
	return sess, ok
}

// Snapshot returns all currently registered sessions.
func (r *Registry) Snapshot() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		out = append(out, sess)
	}
	return out
}

// Len reports the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
