package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := NewBus()

	var received []Event
	bus.Subscribe(SessionExpired, func(evt Event) {
		received = append(received, evt)
	})

	bus.Publish(Event{Kind: SessionExpired, Reason: "session expired", At: time.Now()})

	assert.Len(t, received, 1)
	assert.Equal(t, "session expired", received[0].Reason)
}

func TestBus_KindIsolation(t *testing.T) {
	bus := NewBus()

	expired := 0
	refreshed := 0
	bus.Subscribe(SessionExpired, func(Event) { expired++ })
	bus.Subscribe(TokenRefreshed, func(Event) { refreshed++ })

	bus.Publish(Event{Kind: TokenRefreshed})
	bus.Publish(Event{Kind: TokenRefreshed})

	assert.Equal(t, 0, expired)
	assert.Equal(t, 2, refreshed)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()

	calls := 0
	unsubscribe := bus.Subscribe(SessionExpired, func(Event) { calls++ })

	bus.Publish(Event{Kind: SessionExpired})
	unsubscribe()
	bus.Publish(Event{Kind: SessionExpired})

	assert.Equal(t, 1, calls)

	// double unsubscribe is a no-op
	unsubscribe()
}

func TestBus_MultipleSubscribers(t *testing.T) {
	bus := NewBus()

	first := 0
	second := 0
	bus.Subscribe(SessionExpired, func(Event) { first++ })
	bus.Subscribe(SessionExpired, func(Event) { second++ })

	bus.Publish(Event{Kind: SessionExpired})

	assert.Equal(t, 1, first)
	assert.Equal(t, 1, second)
}

func TestBus_SubscribeFromHandler(t *testing.T) {
	bus := NewBus()

	nested := 0
	bus.Subscribe(SessionExpired, func(Event) {
		// handlers run outside the bus lock
		bus.Subscribe(TokenRefreshed, func(Event) { nested++ })
	})

	bus.Publish(Event{Kind: SessionExpired})
	bus.Publish(Event{Kind: TokenRefreshed})

	assert.Equal(t, 1, nested)
}
