package ws

import (
	"encoding/json"
	"sync"

	"github.com/gofiber/contrib/websocket"
)

// Event is the only message shape pushed to clients. It is a cache
// invalidation trigger: no payload of record, subscribers refetch.
type Event struct {
	Type string `json:"type"`
}

// Hub fans run events out to every connection watching that run.
type Hub struct {
	mu   sync.RWMutex
	runs map[string]map[*websocket.Conn]chan []byte

	// OnConnect/OnDisconnect are optional gauges (metrics hooks).
	OnConnect    func()
	OnDisconnect func()
}

func NewHub() *Hub {
	return &Hub{runs: make(map[string]map[*websocket.Conn]chan []byte)}
}

// Publish sends a typed event to all subscribers of a run. Slow
// consumers are skipped rather than blocking the caller.
func (h *Hub) Publish(runID, eventType string) {
	msg, err := json.Marshal(Event{Type: eventType})
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.runs[runID] {
		select {
		case ch <- msg:
		default:
		}
	}
}

func (h *Hub) subscribe(runID string, c *websocket.Conn) chan []byte {
	ch := make(chan []byte, 16)
	h.mu.Lock()
	if h.runs[runID] == nil {
		h.runs[runID] = make(map[*websocket.Conn]chan []byte)
	}
	h.runs[runID][c] = ch
	h.mu.Unlock()
	if h.OnConnect != nil {
		h.OnConnect()
	}
	return ch
}

func (h *Hub) unsubscribe(runID string, c *websocket.Conn) {
	h.mu.Lock()
	if conns := h.runs[runID]; conns != nil {
		if ch, ok := conns[c]; ok {
			delete(conns, c)
			close(ch)
		}
		if len(conns) == 0 {
			delete(h.runs, runID)
		}
	}
	h.mu.Unlock()
	if h.OnDisconnect != nil {
		h.OnDisconnect()
	}
}

// Subscribers reports how many connections watch a run.
func (h *Hub) Subscribers(runID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.runs[runID])
}

// Serve pumps events to one connection until it closes. Meant to be
// used as the websocket.New handler body; runID comes from the route.
func (h *Hub) Serve(c *websocket.Conn) {
	runID := c.Params("id")
	ch := h.subscribe(runID, c)
	defer h.unsubscribe(runID, c)

	// Reader goroutine: we ignore client frames but need ReadMessage to
	// notice the peer going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
