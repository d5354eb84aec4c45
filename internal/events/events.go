// Package events provides in-process pub/sub between the scheduling
// components, so the booking dialog and the calendar view stay decoupled.
package events

import (
	"sync"
	"time"
)

// Type identifies a domain event.
type Type string

const (
	// TypeAppointmentCreated is published after the backend confirms a new
	// appointment; payload is the created model.Appointment.
	TypeAppointmentCreated Type = "appointment.created"
	// TypeSessionExpired is published when a token refresh fails and the
	// session is forced out; payload is nil.
	TypeSessionExpired Type = "session.expired"
)

// Event is a lightweight domain event.
type Event struct {
	Type      Type
	Payload   any
	CreatedAt time.Time
}

// Handler reacts to an event.
type Handler func(event Event)

// Bus provides in-process pub/sub for events.
type Bus struct {
	subscribers map[Type][]Handler
	mu          sync.RWMutex
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[Type][]Handler)}
}

// Subscribe registers a handler for a given event type.
func (b *Bus) Subscribe(eventType Type, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		handler(event)
	}
}
