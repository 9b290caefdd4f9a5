package driver

import (
	"log/slog"
	"sync"
)

// Event types published on the bus.
const (
	EventCapability    = "capability"     // lock.CapabilityEvent payload
	EventDriverState   = "driver_state"   // "starting" | "ready" | "removed" | "stopped"
	EventConfigApplied = "config_applied" // map with frames/skipped counts
)

// Event is one bus event.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Handler is a callback for events.
type Handler func(Event)

type subscription struct {
	id        uint64
	eventType string // empty matches everything
	handler   Handler
}

// Bus is the pub/sub seam between the driver and the platform-facing
// collaborators (MQTT bridge, web server, rules engine). Emission is
// synchronous and panicking handlers are recovered so one bad subscriber
// cannot stall report processing.
type Bus struct {
	mu     sync.RWMutex
	subs   []subscription
	nextID uint64
	logger *slog.Logger
}

// NewBus creates an event bus.
func NewBus(logger *slog.Logger) *Bus {
	return &Bus{logger: logger}
}

// On registers a handler for one event type. Returns an unsubscribe func.
func (b *Bus) On(eventType string, handler Handler) func() {
	return b.subscribe(eventType, handler)
}

// OnAll registers a handler for every event. Returns an unsubscribe func.
func (b *Bus) OnAll(handler Handler) func() {
	return b.subscribe("", handler)
}

func (b *Bus) subscribe(eventType string, handler Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, eventType: eventType, handler: handler})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// Emit delivers an event to every matching handler.
func (b *Bus) Emit(event Event) {
	b.mu.RLock()
	matched := make([]Handler, 0, len(b.subs))
	for _, s := range b.subs {
		if s.eventType == "" || s.eventType == event.Type {
			matched = append(matched, s.handler)
		}
	}
	b.mu.RUnlock()

	for _, h := range matched {
		func() {
			defer func() {
				if r := recover(); r != nil {
					b.logger.Error("event handler panic", "type", event.Type, "panic", r)
				}
			}()
			h(event)
		}()
	}
}
