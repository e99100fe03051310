package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"building-lca/analyzer-backend/internal/results"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// Event is pushed to connected dashboard clients when a new analysis run
// replaces the current one.
type Event struct {
	Type        string    `json:"type"`
	RunID       string    `json:"run_id"`
	ComputedAt  time.Time `json:"computed_at"`
	TotalCarbon float64   `json:"total_carbon"`
}

// Hub broadcasts run-complete events to websocket clients so open dashboards
// refresh without polling.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan Event
	register   chan *client
	unregister chan *client
	upgrader   websocket.Upgrader
	logger     *zap.Logger
	mu         sync.RWMutex
}

type client struct {
	conn *websocket.Conn
	send chan Event
}

// NewHub creates a hub and starts its broadcast loop.
func NewHub(logger *zap.Logger) *Hub {
	hub := &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan Event, 16),
		register:   make(chan *client),
		unregister: make(chan *client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// The dashboard is served from arbitrary local origins.
				return true
			},
		},
		logger: logger,
	}
	go hub.run()
	return hub
}

// NotifyRunComplete implements results.Notifier.
func (h *Hub) NotifyRunComplete(run *results.Run) {
	event := Event{
		Type:        "analysis_complete",
		RunID:       run.ID.String(),
		ComputedAt:  run.ComputedAt,
		TotalCarbon: run.Result.Summary.TotalCarbon,
	}
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("dropping websocket event, broadcast buffer full")
	}
}

// HandleConnection upgrades an HTTP request to a websocket subscription.
func (h *Hub) HandleConnection(w http.ResponseWriter, r *http.Request) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &client{conn: conn, send: make(chan Event, 16)}
	h.register <- c

	go h.writePump(c)
	go h.readPump(c)
	return nil
}

func (h *Hub) run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
		case c := <-h.unregister:
			h.mu.Lock()
			if h.clients[c] {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
		case event := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				select {
				case c.send <- event:
				default:
					// Slow client; it will be dropped by its write pump.
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
