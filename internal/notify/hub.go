// Package notify fans change events out to registered listeners.
package notify

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dmitrijs2005/meditrack/internal/logging"
)

type EventKind string

const (
	EventCreated EventKind = "created"
	EventUpdated EventKind = "updated"
	EventDeleted EventKind = "deleted"
)

// Event describes a completed medication mutation.
type Event struct {
	Kind         EventKind
	MedicationID int64
}

// Listener is called after every successful mutation. Listeners run on the
// mutating goroutine and should return quickly.
type Listener func(ctx context.Context, e Event)

// ListenerID identifies a registration for RemoveListener.
type ListenerID uint64

// Hub keeps listeners in registration order. A listener that panics is
// logged and skipped; the others still run.
type Hub struct {
	logger logging.Logger

	mu        sync.RWMutex
	next      ListenerID
	listeners map[ListenerID]Listener
}

func NewHub(logger logging.Logger) *Hub {
	return &Hub{logger: logger.With("component", "notify"), listeners: make(map[ListenerID]Listener)}
}

func (h *Hub) AddListener(l Listener) ListenerID {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.next++
	h.listeners[h.next] = l
	return h.next
}

// RemoveListener unregisters id. Unknown ids are ignored.
func (h *Hub) RemoveListener(id ListenerID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.listeners, id)
}

// Len returns the number of registered listeners.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners)
}

// Notify calls every listener registered at the time of the call.
func (h *Hub) Notify(ctx context.Context, e Event) {
	h.mu.RLock()
	ids := make([]ListenerID, 0, len(h.listeners))
	for id := range h.listeners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	snapshot := make([]Listener, len(ids))
	for i, id := range ids {
		snapshot[i] = h.listeners[id]
	}
	h.mu.RUnlock()

	for i, l := range snapshot {
		h.call(ctx, ids[i], l, e)
	}
}

func (h *Hub) call(ctx context.Context, id ListenerID, l Listener, e Event) {
	defer func() {
		if p := recover(); p != nil {
			h.logger.Error(ctx, "listener failed", "listener", id, "event", e.Kind, "panic", fmt.Sprint(p))
		}
	}()
	l(ctx, e)
}
