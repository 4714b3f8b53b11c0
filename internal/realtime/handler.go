package realtime

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// HandlerConfig carries the transport knobs for the /ws endpoint.
type HandlerConfig struct {
	AllowedOrigins   []string
	ReadLimit        int64
	PingPeriod       time.Duration
	PongWait         time.Duration
	HandshakeTimeout time.Duration
}

// Handler upgrades /ws requests and runs one read loop per connection. All
// registry mutations go through the lifecycle manager; all inbound frames go
// through the router.
type Handler struct {
	lifecycle *Lifecycle
	router    *Router
	cfg       HandlerConfig
	upgrader  websocket.Upgrader
}

func NewHandler(lifecycle *Lifecycle, router *Router, cfg HandlerConfig) *Handler {
	checkOrigin := makeCheckOrigin(cfg.AllowedOrigins)
	return &Handler{
		lifecycle: lifecycle,
		router:    router,
		cfg:       cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin:      checkOrigin,
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, err := h.lifecycle.Authenticate(r)
	if err != nil {
		log.Debug().Str("module", "realtime.handler").Err(err).Msg("handshake rejected")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	// Echo a negotiated Bearer.* subprotocol so clients that tunnel the
	// credential through Sec-WebSocket-Protocol complete the handshake.
	var respHeader http.Header
	if proto := bearerProtocol(r); proto != "" {
		respHeader = http.Header{"Sec-WebSocket-Protocol": []string{proto}}
	}

	conn, err := h.upgrader.Upgrade(w, r, respHeader)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return
	}

	sess := NewSession(userID, conn)
	h.lifecycle.OnEstablished(sess)
	defer func() {
		h.lifecycle.OnClosed(sess)
		sess.Close(websocket.CloseNormalClosure, "")
	}()

	if h.cfg.ReadLimit > 0 {
		conn.SetReadLimit(h.cfg.ReadLimit)
	}
	if h.cfg.PongWait > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
		})
	}

	if h.cfg.PingPeriod > 0 {
		go func() {
			ticker := time.NewTicker(h.cfg.PingPeriod)
			defer ticker.Stop()
			for {
				select {
				case <-sess.Done():
					return
				case <-ticker.C:
					if sess.Ping() != nil {
						return
					}
				}
			}
		}()
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}
		h.router.Route(r.Context(), sess, raw)
	}
}

func bearerProtocol(r *http.Request) string {
	for _, part := range strings.Split(r.Header.Get("Sec-WebSocket-Protocol"), ",") {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, bearerProtocolPrefix) {
			return part
		}
	}
	return ""
}

func makeCheckOrigin(allowedOrigins []string) func(r *http.Request) bool {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		o := strings.TrimSpace(strings.ToLower(origin))
		if o != "" {
			allowed[o] = struct{}{}
		}
	}

	return func(r *http.Request) bool {
		origin := strings.TrimSpace(strings.ToLower(r.Header.Get("Origin")))
		if origin == "" {
			// Non-browser clients send no Origin header.
			return true
		}
		if _, ok := allowed[origin]; ok {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return false
		}
		normalized := strings.ToLower(fmt.Sprintf("%s://%s", u.Scheme, u.Host))
		_, ok := allowed[normalized]
		return ok
	}
}
