// Package events carries the cross-cutting session signals between the
// session service and any UI-level listeners. Publishers never hold
// references to subscribers; subscribers get an unsubscribe func back.
package events

import (
	"sync"
	"time"
)

// Kind identifies a signal type.
type Kind string

const (
	// SessionExpired fires when the session is force-logged-out
	// (expiry, refresh rejection, or inactivity).
	SessionExpired Kind = "sessionExpired"
	// TokenRefreshed fires after a successful token refresh.
	TokenRefreshed Kind = "tokenRefreshed"
)

// Event is the payload delivered to subscribers.
type Event struct {
	At     time.Time
	Kind   Kind
	Reason string
}

// Handler receives published events.
type Handler func(Event)

// Bus is a minimal in-process pub/sub. Safe for concurrent use.
type Bus struct {
	subs   map[Kind]map[int]Handler
	mu     sync.Mutex
	nextID int
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[Kind]map[int]Handler)}
}

// Subscribe registers a handler for kind and returns an unsubscribe
// func. Unsubscribing twice is a no-op.
func (b *Bus) Subscribe(kind Kind, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs[kind] == nil {
		b.subs[kind] = make(map[int]Handler)
	}
	id := b.nextID
	b.nextID++
	b.subs[kind][id] = h

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[kind], id)
	}
}

// Publish delivers evt to all handlers subscribed to its kind.
// Handlers run synchronously on the caller's goroutine, outside the
// bus lock, so they may subscribe or unsubscribe freely.
func (b *Bus) Publish(evt Event) {
	b.mu.Lock()
	handlers := make([]Handler, 0, len(b.subs[evt.Kind]))
	for _, h := range b.subs[evt.Kind] {
		handlers = append(handlers, h)
	}
	b.mu.Unlock()

	for _, h := range handlers {
		h(evt)
	}
}
