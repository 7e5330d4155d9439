package handler

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aryan0dhankhar/jobmatch/internal/domain"
	"github.com/aryan0dhankhar/jobmatch/internal/observability/metrics"
	"github.com/aryan0dhankhar/jobmatch/internal/service"
)

const (
	pingInterval = 15 * time.Second
	writeWait    = 5 * time.Second
	sendBuffer   = 16
)

type streamClient struct {
	recipient domain.Recipient
	send      chan *domain.Notification
}

// NotificationHub keeps the live websocket connections and fans new
// notifications out to the ones they are addressed to.
type NotificationHub struct {
	mu             sync.RWMutex
	clients        map[*streamClient]struct{}
	allowedOrigins []string
	logger         *slog.Logger
}

// NewNotificationHub creates a new hub
func NewNotificationHub(allowedOrigins []string, logger *slog.Logger) *NotificationHub {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationHub{
		clients:        make(map[*streamClient]struct{}),
		allowedOrigins: allowedOrigins,
		logger:         logger,
	}
}

func (h *NotificationHub) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				// non-browser clients
				return true
			}
			for _, allowed := range h.allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			h.logger.Warn("websocket origin rejected", slog.String("origin", origin))
			return false
		},
	}
}

// Broadcast delivers n to every connection of its recipient. A connection
// whose buffer is full misses the message rather than stalling the caller.
func (h *NotificationHub) Broadcast(n *domain.Notification) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if !c.recipient.Matches(n) {
			continue
		}
		select {
		case c.send <- n:
		default:
			h.logger.Warn("notification stream buffer full", slog.String("notification_id", n.ID))
		}
	}
}

// Connections returns the number of open streams.
func (h *NotificationHub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *NotificationHub) register(c *streamClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	metrics.WSConnected()
}

func (h *NotificationHub) unregister(c *streamClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	metrics.WSDisconnected()
}

// ServeHTTP handles GET /ws/notifications. The token may be passed as
// ?token= since browsers cannot set headers on upgrades.
func (h *NotificationHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	upgrader := h.upgrader()
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer ws.Close()

	c := &streamClient{recipient: service.RecipientOf(p), send: make(chan *domain.Notification, sendBuffer)}
	h.register(c)
	defer h.unregister(c)
	h.logger.Debug("notification stream opened", slog.String("user_id", p.UserID))

	// The read loop only notices the peer going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					h.logger.Debug("websocket closed", slog.String("user_id", p.UserID), slog.String("reason", err.Error()))
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case n := <-c.send:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteJSON(n); err != nil {
				return
			}
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}
