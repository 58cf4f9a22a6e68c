// Package market — WebSocket hub for real-time market broadcasting.
package market

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hulopredict/market-engine/internal/metrics"
	"github.com/hulopredict/market-engine/internal/model"
)

// wsEnvelope is the tagged wire shape for hub messages. Exactly two
// variants exist: "market_update" carries a snapshot, "trade_update"
// carries a trade event.
type wsEnvelope struct {
	Type      string          `json:"type"`
	Snapshot  *model.Snapshot `json:"snapshot,omitempty"`
	Trade     *TradeEvent     `json:"trade,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// WSHub manages WebSocket connections and fans out market snapshots and
// trade events. Slow or disconnected clients are dropped, never allowed
// to block the ledger.
type WSHub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mu         sync.RWMutex

	// snapshot supplies the greeting sent to newly connected clients.
	// Set after the ledger is constructed; may be nil in tests.
	snapshot func() model.Snapshot
}

// NewWSHub creates a new WebSocket hub.
func NewWSHub() *WSHub {
	return &WSHub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}
}

// SetSnapshotSource wires the snapshot greeting for new connections.
func (h *WSHub) SetSnapshotSource(fn func() model.Snapshot) {
	h.snapshot = fn
}

// Run starts the hub's main event loop. Must be called in a goroutine.
func (h *WSHub) Run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = true
			n := len(h.clients)
			h.mu.Unlock()
			metrics.WebSocketClients.Set(float64(n))
			slog.Info("ws client connected", "total", n)

			if h.snapshot != nil {
				snap := h.snapshot()
				if data, err := json.Marshal(wsEnvelope{
					Type:      "market_update",
					Snapshot:  &snap,
					Timestamp: time.Now().UTC(),
				}); err == nil {
					conn.WriteMessage(websocket.TextMessage, data)
				}
			}

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			n := len(h.clients)
			h.mu.Unlock()
			metrics.WebSocketClients.Set(float64(n))

		case msg := <-h.broadcast:
			h.mu.Lock()
			for conn := range h.clients {
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					conn.Close()
					delete(h.clients, conn)
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastSnapshot sends a market_update event to all connected clients.
func (h *WSHub) BroadcastSnapshot(snap model.Snapshot) {
	h.send(wsEnvelope{
		Type:      "market_update",
		Snapshot:  &snap,
		Timestamp: time.Now().UTC(),
	})
}

// BroadcastTrade sends a trade_update event to all connected clients.
func (h *WSHub) BroadcastTrade(ev TradeEvent) {
	h.send(wsEnvelope{
		Type:      "trade_update",
		Trade:     &ev,
		Timestamp: time.Now().UTC(),
	})
}

func (h *WSHub) send(env wsEnvelope) {
	data, err := json.Marshal(env)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- data:
	default:
		// Drop if buffer full to avoid blocking the ledger.
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true // Allow all origins during development.
	},
}

// HandleWS handles WebSocket upgrade requests at GET /api/v1/ws.
func (h *WSHub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("ws upgrade failed", "err", err)
		return
	}

	h.register <- conn

	// Read pump: keep connection alive and detect disconnects.
	go func() {
		defer func() { h.unregister <- conn }()
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()

	// Ping ticker to keep connection alive through proxies.
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			h.mu.RLock()
			_, ok := h.clients[conn]
			h.mu.RUnlock()
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}()
}
