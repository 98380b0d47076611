// Package realtime provides the in-process change feed mirroring the
// document store's push notifications. Subscribers get one event per
// successful create/update/delete on a collection and must treat it as
// "invalidate and refetch", never as an incremental patch.
package realtime

import (
	"sync"
	"time"

	"github.com/echoease/echoease-go/internal/domain"
)

// Hub fans events out to per-collection subscribers.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan domain.RealtimeEvent]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[chan domain.RealtimeEvent]struct{}),
	}
}

// Subscribe registers interest in one or more collections and returns the
// event channel plus an unsubscribe function. The channel is buffered;
// slow consumers drop events rather than block publishers.
func (h *Hub) Subscribe(collections ...string) (<-chan domain.RealtimeEvent, func()) {
	ch := make(chan domain.RealtimeEvent, 16)

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, col := range collections {
		subs, ok := h.subscribers[col]
		if !ok {
			subs = make(map[chan domain.RealtimeEvent]struct{})
			h.subscribers[col] = subs
		}
		subs[ch] = struct{}{}
	}

	cols := make([]string, len(collections))
	copy(cols, collections)

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()

		for _, col := range cols {
			if subs, exists := h.subscribers[col]; exists {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(h.subscribers, col)
				}
			}
		}
		close(ch)
	}
}

// Publish delivers an event to every subscriber of its collection.
func (h *Hub) Publish(event domain.RealtimeEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	subs, ok := h.subscribers[event.Collection]
	if !ok {
		return
	}

	for ch := range subs {
		select {
		case ch <- event:
		default:
		}
	}
}
