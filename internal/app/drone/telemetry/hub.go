package telemetry

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// subscriber is one websocket client's outbound queue.
type subscriber struct {
	send chan []byte
}

// Hub fans broadcast messages out to subscribers. Only Run touches the
// subscriber set; everything else talks to it through channels.
type Hub struct {
	logger *zap.Logger

	subscribers map[*subscriber]struct{}
	broadcast   chan []byte
	register    chan *subscriber
	unregister  chan *subscriber
	done        chan struct{}

	mu    sync.RWMutex
	count int
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger:      logger.Named("hub"),
		subscribers: make(map[*subscriber]struct{}),
		broadcast:   make(chan []byte, 256),
		register:    make(chan *subscriber),
		unregister:  make(chan *subscriber),
		done:        make(chan struct{}),
	}
}

// Run serves the hub until ctx is cancelled, then closes every
// subscriber queue.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case s := <-h.register:
			h.subscribers[s] = struct{}{}
			h.setCount()
			h.logger.Debug("Client connected", zap.Int("clients", len(h.subscribers)))

		case s := <-h.unregister:
			if _, ok := h.subscribers[s]; ok {
				delete(h.subscribers, s)
				close(s.send)
			}
			h.setCount()
			h.logger.Debug("Client disconnected", zap.Int("clients", len(h.subscribers)))

		case msg := <-h.broadcast:
			for s := range h.subscribers {
				select {
				case s.send <- msg:
				default:
					close(s.send)
					delete(h.subscribers, s)
					h.logger.Warn("Dropped slow client")
				}
			}
			h.setCount()

		case <-ctx.Done():
			for s := range h.subscribers {
				close(s.send)
				delete(h.subscribers, s)
			}
			h.setCount()
			return
		}
	}
}

func (h *Hub) setCount() {
	h.mu.Lock()
	h.count = len(h.subscribers)
	h.mu.Unlock()
}

// subscribe registers a new subscriber. It returns nil once the hub has
// stopped.
func (h *Hub) subscribe() *subscriber {
	s := &subscriber{send: make(chan []byte, 64)}
	select {
	case h.register <- s:
		return s
	case <-h.done:
		return nil
	}
}

func (h *Hub) unsubscribe(s *subscriber) {
	select {
	case h.unregister <- s:
	case <-h.done:
	}
}

// Broadcast queues msg for every subscriber, dropping it when the hub is
// backed up.
func (h *Hub) Broadcast(msg []byte) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("Broadcast queue full, dropping event")
	}
}

// Clients returns the number of connected subscribers.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}
