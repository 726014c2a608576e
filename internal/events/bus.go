package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Handler receives events. Handlers run on the emitting goroutine and must not block.
type Handler func(event *Event)

type subscription struct {
	id      uint64
	handler Handler
}

// Bus delivers events synchronously to subscribers
type Bus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]subscription
	nextID      uint64
	now         func() time.Time
}

// NewBus creates an empty event bus
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[EventType][]subscription),
		now:         time.Now,
	}
}

// Subscribe registers handler for eventType and returns a function that removes it
func (b *Bus) Subscribe(eventType EventType, handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subscribers[eventType] = append(b.subscribers[eventType], subscription{id: id, handler: handler})

	var once sync.Once
	return func() {
		once.Do(func() { b.unsubscribe(eventType, id) })
	}
}

// SubscribeAll registers handler for each of types and returns a single unsubscribe function
func (b *Bus) SubscribeAll(types []EventType, handler Handler) func() {
	unsubs := make([]func(), 0, len(types))
	for _, t := range types {
		unsubs = append(unsubs, b.Subscribe(t, handler))
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}

func (b *Bus) unsubscribe(eventType EventType, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subscribers[eventType]
	for i, s := range subs {
		if s.id == id {
			// Copy so snapshots taken by Emit stay valid
			next := make([]subscription, 0, len(subs)-1)
			next = append(next, subs[:i]...)
			next = append(next, subs[i+1:]...)
			b.subscribers[eventType] = next
			return
		}
	}
}

// Emit builds an event and delivers it to every subscriber of eventType
func (b *Bus) Emit(eventType EventType, module string, data map[string]interface{}) *Event {
	event := &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Module:    module,
		Timestamp: b.now().UTC(),
		Data:      data,
	}

	b.mu.RLock()
	subs := b.subscribers[eventType]
	b.mu.RUnlock()

	for _, s := range subs {
		s.handler(event)
	}

	return event
}

// SubscriberCount returns the number of handlers registered for eventType
func (b *Bus) SubscriberCount(eventType EventType) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[eventType])
}
