package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gridlock-solve/gridlock/pkg/common/logging"
)

// EventType classifies a solve event.
type EventType string

const (
	EventAccepted   EventType = "accepted"
	EventSolved     EventType = "solved"
	EventUnsolvable EventType = "unsolvable"
)

// Event is a solve lifecycle notification delivered to websocket subscribers.
type Event struct {
	Type       EventType `json:"type"`
	Time       time.Time `json:"time"`
	Puzzle     string    `json:"puzzle"`
	Solution   string    `json:"solution,omitempty"`
	Workers    int       `json:"workers"`
	DurationMS int64     `json:"duration_ms"`
	FromCache  bool      `json:"from_cache"`
}

// eventHub fans solve events out to connected websocket clients. Slow clients
// drop events rather than stalling solves.
type eventHub struct {
	mu      sync.Mutex
	clients map[chan Event]struct{}
	closed  bool
}

func newEventHub() *eventHub {
	return &eventHub{clients: make(map[chan Event]struct{})}
}

func (h *eventHub) subscribe() chan Event {
	ch := make(chan Event, 16)
	h.mu.Lock()
	if h.closed {
		close(ch)
	} else {
		h.clients[ch] = struct{}{}
	}
	h.mu.Unlock()
	return ch
}

func (h *eventHub) unsubscribe(ch chan Event) {
	h.mu.Lock()
	if _, ok := h.clients[ch]; ok {
		delete(h.clients, ch)
		close(ch)
	}
	h.mu.Unlock()
}

func (h *eventHub) publish(ev Event) {
	h.mu.Lock()
	for ch := range h.clients {
		select {
		case ch <- ev:
		default:
		}
	}
	h.mu.Unlock()
}

func (h *eventHub) closeAll() {
	h.mu.Lock()
	h.closed = true
	for ch := range h.clients {
		delete(h.clients, ch)
		close(ch)
	}
	h.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleEvents upgrades the connection and streams solve events until the
// client disconnects or the server shuts down.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", logging.Fields{"error": err.Error()})
		return
	}
	defer conn.Close()

	ch := s.hub.subscribe()
	defer s.hub.unsubscribe(ch)

	// Reader goroutine: we never expect client messages, but reading is what
	// surfaces the close frame.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
