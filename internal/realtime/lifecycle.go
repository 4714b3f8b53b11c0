package realtime

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"chatcore/internal/domain"
)

const bearerProtocolPrefix = "Bearer."

// Lifecycle authenticates incoming connections and moves sessions in and out
// of the registry.
type Lifecycle struct {
	registry *Registry
	tokens   domain.TokenValidator

	// permissive substitutes testUserID when no credential is present.
	// Never enabled in production deployments.
	permissive bool
	testUserID int64

	now func() time.Time
}

func NewLifecycle(registry *Registry, tokens domain.TokenValidator, permissive bool, testUserID int64) *Lifecycle {
	return &Lifecycle{
		registry:   registry,
		tokens:     tokens,
		permissive: permissive,
		testUserID: testUserID,
		now:        time.Now,
	}
}

// Authenticate resolves the bearer credential of an upgrade request to a user
// identity. A missing credential fails with ErrNoCredential unless permissive
// mode substitutes the fixed test identity; an invalid one fails with
// ErrUnauthorized. Authentication failure terminates the connection attempt;
// it never reaches the registry.
func (l *Lifecycle) Authenticate(r *http.Request) (int64, error) {
	token := extractToken(r)
	if token == "" {
		if l.permissive {
			log.Warn().Str("module", "realtime.lifecycle").
				Int64("user_id", l.testUserID).
				Msg("no credential, permissive mode substitutes test identity")
			return l.testUserID, nil
		}
		return 0, domain.ErrNoCredential
	}
	uid, err := l.tokens.Validate(token)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	return uid, nil
}

// extractToken resolves the bearer credential in priority order: `token`
// query parameter, Authorization header, Sec-WebSocket-Protocol entry of the
// form "Bearer.<token>" or the two-entry form "bearer, <token>".
func extractToken(r *http.Request) string {
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}

	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		if t := strings.TrimSpace(auth[len("bearer "):]); t != "" {
			return t
		}
	}

	parts := strings.Split(r.Header.Get("Sec-WebSocket-Protocol"), ",")
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, bearerProtocolPrefix) {
			if t := part[len(bearerProtocolPrefix):]; t != "" {
				return t
			}
		}
		if strings.EqualFold(part, "bearer") && i+1 < len(parts) {
			if t := strings.TrimSpace(parts[i+1]); t != "" {
				return t
			}
		}
	}

	return ""
}

// OnEstablished registers the session and acknowledges the connection. A
// prior session for the same user is evicted and its connection closed: last
// connection wins.
func (l *Lifecycle) OnEstablished(sess *Session) {
	if prior := l.registry.Register(sess); prior != nil {
		prior.Close(websocket.ClosePolicyViolation, "session replaced by a newer connection")
		log.Info().Str("module", "realtime.lifecycle").
			Int64("user_id", sess.UserID).
			Str("replaced_session_id", prior.ID).
			Msg("evicted prior session")
	}

	ack := Envelope{Type: EventConnectAck, Data: ConnectAckPayload{
		UserID:    sess.UserID,
		Timestamp: l.now(),
	}}
	if err := sess.Send(ack); err != nil {
		log.Warn().Str("module", "realtime.lifecycle").Err(err).
			Int64("user_id", sess.UserID).Msg("connect ack send failed")
	}
}

// OnClosed removes the session from the registry. Idempotent: a second call
// for the same session, or a call for a session already replaced by a newer
// connection, changes nothing.
func (l *Lifecycle) OnClosed(sess *Session) {
	if l.registry.Remove(sess) {
		log.Info().Str("module", "realtime.lifecycle").
			Int64("user_id", sess.UserID).
			Str("session_id", sess.ID).
			Msg("session closed")
	}
}
