package interview

import (
	"sync"

	model "github.com/zhouzirui/avatar-interview/backend/internal/model/interview"
)

const defaultSubscriberBuffer = 32

type subscriber struct {
	ch chan model.Event
}

// Hub fans committed session events out to live subscribers. Publishing
// never blocks: a subscriber whose buffer is full misses the event.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*subscriber]struct{}
	buffer int
	closed bool
}

// NewHub creates a Hub with the given per-subscriber buffer.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	return &Hub{
		subs:   make(map[string]map[*subscriber]struct{}),
		buffer: buffer,
	}
}

// Subscribe returns a channel of events for sessionID and a function that
// releases it. The channel is closed when released, when the session is
// evicted, or when the hub shuts down.
func (h *Hub) Subscribe(sessionID string) (<-chan model.Event, func()) {
	sub := &subscriber{ch: make(chan model.Event, h.buffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(sub.ch)
		return sub.ch, func() {}
	}
	set, ok := h.subs[sessionID]
	if !ok {
		set = make(map[*subscriber]struct{})
		h.subs[sessionID] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() { h.unsubscribe(sessionID, sub) })
	}
}

func (h *Hub) unsubscribe(sessionID string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.subs[sessionID]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	close(sub.ch)
	if len(set) == 0 {
		delete(h.subs, sessionID)
	}
}

// Publish delivers a private copy of ev to each subscriber of its session.
func (h *Hub) Publish(ev model.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs[ev.SessionID] {
		select {
		case sub.ch <- ev.Clone():
		default:
		}
	}
}

// Subscribers returns the number of subscribers of sessionID.
func (h *Hub) Subscribers(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[sessionID])
}

// CloseSession ends every subscription of sessionID.
func (h *Hub) CloseSession(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs[sessionID] {
		close(sub.ch)
	}
	delete(h.subs, sessionID)
}

// Close ends every subscription and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for id, set := range h.subs {
		for sub := range set {
			close(sub.ch)
		}
		delete(h.subs, id)
	}
}
