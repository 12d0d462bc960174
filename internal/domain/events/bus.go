package events

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Event is one emission
type Event struct {
	Name Name        `json:"name"`
	Data interface{} `json:"data,omitempty"`
	Time time.Time   `json:"time"`
}

// Handler reacts to an event. A returned error is logged, never propagated.
type Handler func(ev Event) error

// Subscription identifies one registered handler
type Subscription struct {
	bus  *Bus
	name Name
	id   uint64
	tap  bool
}

// Unsubscribe removes the handler. Safe to call more than once.
func (s Subscription) Unsubscribe() {
	if s.bus == nil {
		return
	}
	if s.tap {
		s.bus.removeTap(s.id)
		return
	}
	s.bus.Off(s.name, s)
}

type entry struct {
	id      uint64
	handler Handler
	once    bool
}

// Bus is a synchronous publish/subscribe dispatcher. Handlers for one name
// run in registration order on the emitting goroutine; a failing handler
// never stops the ones after it.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Name][]entry
	taps     []entry
	nextID   uint64
	logger   *zap.Logger

	emitted atomic.Uint64
	failed  atomic.Uint64
}

// NewBus creates an empty bus
func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		handlers: make(map[Name][]entry),
		logger:   logger,
	}
}

// On registers handler for name
func (b *Bus) On(name Name, handler Handler) Subscription {
	return b.add(name, handler, false)
}

// Once registers handler for the next emission of name only
func (b *Bus) Once(name Name, handler Handler) Subscription {
	return b.add(name, handler, true)
}

func (b *Bus) add(name Name, handler Handler, once bool) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.handlers[name] = append(b.handlers[name], entry{id: b.nextID, handler: handler, once: once})
	return Subscription{bus: b, name: name, id: b.nextID}
}

// Tap registers handler for every event. Taps run after the named handlers.
func (b *Bus) Tap(handler Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.taps = append(b.taps, entry{id: b.nextID, handler: handler})
	return Subscription{bus: b, id: b.nextID, tap: true}
}

// Off removes the given subscriptions for name, or every handler for name
// when none are given. It returns the number of handlers removed.
func (b *Bus) Off(name Name, subs ...Subscription) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	current := b.handlers[name]
	if len(subs) == 0 {
		delete(b.handlers, name)
		return len(current)
	}

	drop := make(map[uint64]bool, len(subs))
	for _, s := range subs {
		if s.name == name && !s.tap {
			drop[s.id] = true
		}
	}

	kept := current[:0:0]
	for _, e := range current {
		if !drop[e.id] {
			kept = append(kept, e)
		}
	}
	if len(kept) == 0 {
		delete(b.handlers, name)
	} else {
		b.handlers[name] = kept
	}
	return len(current) - len(kept)
}

func (b *Bus) removeTap(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	kept := b.taps[:0:0]
	for _, e := range b.taps {
		if e.id != id {
			kept = append(kept, e)
		}
	}
	b.taps = kept
}

// Emit dispatches data to every handler of name, then to every tap
func (b *Bus) Emit(name Name, data interface{}) {
	ev := Event{Name: name, Data: data, Time: time.Now()}

	b.mu.Lock()
	handlers := make([]entry, len(b.handlers[name]))
	copy(handlers, b.handlers[name])
	b.dropOnce(name, handlers)
	taps := make([]entry, len(b.taps))
	copy(taps, b.taps)
	b.mu.Unlock()

	b.emitted.Add(1)
	for _, e := range handlers {
		b.invoke(ev, e.handler)
	}
	for _, e := range taps {
		b.invoke(ev, e.handler)
	}
}

// dropOnce removes once-handlers about to run. Caller holds mu.
func (b *Bus) dropOnce(name Name, running []entry) {
	hasOnce := false
	for _, e := range running {
		if e.once {
			hasOnce = true
			break
		}
	}
	if !hasOnce {
		return
	}

	kept := b.handlers[name][:0:0]
	for _, e := range b.handlers[name] {
		if !e.once {
			kept = append(kept, e)
		}
	}
	if len(kept) == 0 {
		delete(b.handlers, name)
	} else {
		b.handlers[name] = kept
	}
}

func (b *Bus) invoke(ev Event, handler Handler) {
	defer func() {
		if r := recover(); r != nil {
			b.failed.Add(1)
			b.logger.Error("Event handler panicked",
				zap.String("event", string(ev.Name)),
				zap.String("panic", fmt.Sprint(r)))
		}
	}()

	if err := handler(ev); err != nil {
		b.failed.Add(1)
		b.logger.Error("Event handler failed",
			zap.String("event", string(ev.Name)),
			zap.Error(err))
	}
}

// Count returns the number of handlers registered for name
func (b *Bus) Count(name Name) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[name])
}

// Stats returns bus statistics
func (b *Bus) Stats() map[string]interface{} {
	b.mu.RLock()
	names := len(b.handlers)
	total := 0
	for _, hs := range b.handlers {
		total += len(hs)
	}
	taps := len(b.taps)
	b.mu.RUnlock()

	return map[string]interface{}{
		"event_names":      names,
		"handlers":         total,
		"taps":             taps,
		"emitted":          b.emitted.Load(),
		"handler_failures": b.failed.Load(),
	}
}
