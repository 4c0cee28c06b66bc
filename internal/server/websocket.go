package server

import (
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/soundset/datacap/internal/recorder"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: checkOrigin,
}

// checkOrigin reports whether the WebSocket connection origin is allowed.
// The shell runs on the same machine or LAN, so localhost, same-origin and
// private ranges are accepted.
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	// Same-origin requests omit the Origin header
	if origin == "" {
		return true
	}

	u, err := url.Parse(origin)
	if err != nil {
		slog.Warn("rejected WebSocket connection: invalid origin URL", "origin", origin)
		return false
	}

	host := u.Hostname()
	if host == "localhost" || host == "127.0.0.1" || host == "::1" {
		return true
	}

	requestHost := r.Host
	if h, _, err := net.SplitHostPort(requestHost); err == nil {
		requestHost = h
	}
	if host == requestHost {
		return true
	}

	ip := net.ParseIP(host)
	if ip != nil && (ip.IsLoopback() || ip.IsPrivate()) {
		return true
	}

	slog.Warn("rejected WebSocket connection", "origin", origin, "host", host)
	return false
}

// hub fans controller events out to all connected WebSocket clients.
// Sends are non-blocking: a client that cannot keep up with the level
// stream misses readings rather than stalling the fan-out.
type hub struct {
	mu      sync.Mutex
	clients map[chan recorder.Event]struct{}
}

func newHub() *hub {
	return &hub{clients: make(map[chan recorder.Event]struct{})}
}

func (h *hub) run(events <-chan recorder.Event) {
	for ev := range events {
		h.mu.Lock()
		for client := range h.clients {
			select {
			case client <- ev:
			default:
			}
		}
		h.mu.Unlock()
	}
}

func (h *hub) subscribe() chan recorder.Event {
	client := make(chan recorder.Event, 64)
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	return client
}

func (h *hub) unsubscribe(client chan recorder.Event) {
	h.mu.Lock()
	delete(h.clients, client)
	h.mu.Unlock()
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("WebSocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	client := s.hub.subscribe()
	defer s.hub.unsubscribe(client)

	slog.Debug("WebSocket client connected", "remote", r.RemoteAddr)

	// Discard inbound messages; the read loop doubles as disconnect
	// detection.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev := <-client:
			if err := conn.WriteJSON(ev); err != nil {
				slog.Debug("WebSocket write failed, dropping client", "error", err)
				return
			}
		case <-closed:
			return
		}
	}
}
