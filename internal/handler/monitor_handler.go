package handler

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// monitorFrame is one message on the admin feed.
type monitorFrame struct {
	Event     string      `json:"event"`
	Payload   interface{} `json:"payload"`
	Timestamp int64       `json:"ts"`
}

// MonitorHub fans session lifecycle events out to connected admin clients.
// It satisfies the registry's Monitor interface.
type MonitorHub struct {
	mu       sync.Mutex
	conns    map[*websocket.Conn]struct{}
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// NewMonitorHub creates a MonitorHub.
func NewMonitorHub(allowedOrigins []string, log zerolog.Logger) *MonitorHub {
	return &MonitorHub{
		conns:    make(map[*websocket.Conn]struct{}),
		upgrader: buildUpgrader(allowedOrigins),
		log:      log.With().Str("component", "monitor_hub").Logger(),
	}
}

// Publish sends one event to every connected client. Slow or broken
// connections are dropped rather than awaited.
func (h *MonitorHub) Publish(event string, payload interface{}) {
	frame := monitorFrame{
		Event:     event,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
		if err := conn.WriteJSON(frame); err != nil {
			h.log.Debug().Err(err).Msg("dropping monitor client")
			conn.Close()
			delete(h.conns, conn)
		}
	}
}

// Serve upgrades the request and keeps the connection registered until the
// client goes away. The feed is one-directional; inbound frames are drained
// only to detect the close.
// WS /ws/v1/admin/monitor
func (h *MonitorHub) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	h.mu.Lock()
	h.conns[conn] = struct{}{}
	clients := len(h.conns)
	h.mu.Unlock()
	h.log.Info().Int("clients", clients).Msg("Monitor client connected")

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
	conn.Close()
	h.log.Info().Msg("Monitor client disconnected")
}

// Close disconnects all clients.
func (h *MonitorHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		conn.Close()
		delete(h.conns, conn)
	}
}
