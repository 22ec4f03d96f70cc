package eventbus

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// EventType represents the type of event
type EventType string

const (
	// EventTypeLightUpdate carries a partial physical light report under the "update" key.
	EventTypeLightUpdate EventType = "light_update"
	// EventTypeConnectivity carries bridge/device connectivity changes.
	EventTypeConnectivity EventType = "connectivity"
)

// DefaultQueueSize is used when no queue size is configured.
const DefaultQueueSize = 256

// Event represents an event in the system
type Event struct {
	Type EventType
	Data map[string]interface{}
}

// Handler is a function that handles events
type Handler func(Event)

type subscriber struct {
	id      uint64
	handler Handler
}

// Bus routes events to subscribers on a single dispatch goroutine,
// so every handler sees events in publish order.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]subscriber
	nextID   uint64

	queue chan Event
	done  chan struct{}

	// sendMu guards queue against a send after close
	sendMu sync.RWMutex
	closed bool
}

// New creates a new event bus with the default queue size
func New() *Bus {
	return NewWithQueueSize(DefaultQueueSize)
}

// NewWithQueueSize creates a new event bus with a custom queue size
func NewWithQueueSize(queueSize int) *Bus {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	b := &Bus{
		handlers: make(map[EventType][]subscriber),
		queue:    make(chan Event, queueSize),
		done:     make(chan struct{}),
	}

	go b.dispatch()

	log.Debug().Int("queue_size", queueSize).Msg("Event bus dispatcher started")
	return b
}

func (b *Bus) dispatch() {
	defer close(b.done)

	for event := range b.queue {
		b.mu.RLock()
		subs := append([]subscriber(nil), b.handlers[event.Type]...)
		b.mu.RUnlock()

		for _, sub := range subs {
			b.deliver(sub, event)
		}
	}
}

func (b *Bus) deliver(sub subscriber, event Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Str("event_type", string(event.Type)).
				Msg("Event handler panicked")
		}
	}()
	sub.handler(event)
}

// Subscribe registers a handler for a specific event type.
// The returned func removes the subscription; calling it more than once is harmless.
func (b *Bus) Subscribe(eventType EventType, handler Handler) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.handlers[eventType] = append(b.handlers[eventType], subscriber{id: id, handler: handler})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		subs := b.handlers[eventType]
		for i, s := range subs {
			if s.id == id {
				b.handlers[eventType] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Publish queues an event for dispatch.
// Non-blocking: if the queue is full or the bus is closing, the event is dropped.
func (b *Bus) Publish(event Event) bool {
	b.sendMu.RLock()
	defer b.sendMu.RUnlock()

	if b.closed {
		log.Warn().Str("event_type", string(event.Type)).Msg("Event bus closing, dropping event")
		return false
	}

	select {
	case b.queue <- event:
		return true
	default:
		log.Warn().
			Str("event_type", string(event.Type)).
			Msg("Event bus queue full, dropping event")
		return false
	}
}

// Close stops accepting events, drains the queue and waits for the dispatcher.
func (b *Bus) Close(ctx context.Context) {
	b.sendMu.Lock()
	if b.closed {
		b.sendMu.Unlock()
		return
	}
	b.closed = true
	close(b.queue)
	b.sendMu.Unlock()

	select {
	case <-b.done:
		log.Debug().Msg("Event bus dispatcher stopped gracefully")
	case <-ctx.Done():
		log.Warn().Msg("Event bus shutdown timed out, some events may be lost")
	}
}
