package events

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitRunsHandlersInRegistrationOrder(t *testing.T) {
	bus := NewBus(nil)

	var order []string
	bus.On("E", func(Event) error { order = append(order, "h1"); return nil })
	bus.On("E", func(Event) error { order = append(order, "h2"); return nil })
	bus.On("E", func(Event) error { order = append(order, "h3"); return nil })

	bus.Emit("E", nil)
	assert.Equal(t, []string{"h1", "h2", "h3"}, order)
}

func TestFailingHandlerDoesNotStopOthers(t *testing.T) {
	tests := []struct {
		name string
		h2   Handler
	}{
		{"panic", func(Event) error { panic("boom") }},
		{"error", func(Event) error { return errors.New("boom") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := NewBus(nil)
			var order []string
			bus.On("E", func(Event) error { order = append(order, "h1"); return nil })
			bus.On("E", tt.h2)
			bus.On("E", func(Event) error { order = append(order, "h3"); return nil })

			require.NotPanics(t, func() { bus.Emit("E", nil) })
			assert.Equal(t, []string{"h1", "h3"}, order)
			assert.Equal(t, uint64(1), bus.Stats()["handler_failures"])
		})
	}
}

func TestEmitDeliversData(t *testing.T) {
	bus := NewBus(nil)

	var got Event
	bus.On(ApplicationLaunchFailed, func(ev Event) error { got = ev; return nil })
	bus.Emit(ApplicationLaunchFailed, LaunchFailed{AppID: "notes", Error: "not found"})

	assert.Equal(t, ApplicationLaunchFailed, got.Name)
	assert.Equal(t, "notes", got.Data.(LaunchFailed).AppID)
	assert.False(t, got.Time.IsZero())
}

func TestEmitOnlyReachesMatchingName(t *testing.T) {
	bus := NewBus(nil)
	calls := 0
	bus.On(AuthLogin, func(Event) error { calls++; return nil })

	bus.Emit(AuthLogout, nil)
	bus.Emit("unknown", nil)
	assert.Equal(t, 0, calls)
}

func TestOffRemovesSpecificSubscription(t *testing.T) {
	bus := NewBus(nil)
	var order []string
	bus.On("E", func(Event) error { order = append(order, "a"); return nil })
	sub := bus.On("E", func(Event) error { order = append(order, "b"); return nil })

	assert.Equal(t, 1, bus.Off("E", sub))
	bus.Emit("E", nil)
	assert.Equal(t, []string{"a"}, order)
	assert.Equal(t, 1, bus.Count("E"))

	// a subscription for another name is ignored
	other := bus.On("F", func(Event) error { return nil })
	assert.Equal(t, 0, bus.Off("E", other))
}

func TestOffWithoutSubscriptionRemovesAll(t *testing.T) {
	bus := NewBus(nil)
	bus.On("E", func(Event) error { return nil })
	bus.On("E", func(Event) error { return nil })
	bus.On("F", func(Event) error { return nil })

	assert.Equal(t, 2, bus.Off("E"))
	assert.Equal(t, 0, bus.Count("E"))
	assert.Equal(t, 1, bus.Count("F"))
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	bus := NewBus(nil)
	calls := 0
	sub := bus.On("E", func(Event) error { calls++; return nil })

	sub.Unsubscribe()
	sub.Unsubscribe()
	bus.Emit("E", nil)
	assert.Equal(t, 0, calls)

	var zero Subscription
	assert.NotPanics(t, zero.Unsubscribe)
}

func TestOnceFiresOnce(t *testing.T) {
	bus := NewBus(nil)
	onceCalls, alwaysCalls := 0, 0
	bus.Once("E", func(Event) error { onceCalls++; return nil })
	bus.On("E", func(Event) error { alwaysCalls++; return nil })

	bus.Emit("E", nil)
	bus.Emit("E", nil)
	assert.Equal(t, 1, onceCalls)
	assert.Equal(t, 2, alwaysCalls)
	assert.Equal(t, 1, bus.Count("E"))
}

func TestTapSeesEveryEventAfterNamedHandlers(t *testing.T) {
	bus := NewBus(nil)
	var order []string
	tap := bus.Tap(func(ev Event) error { order = append(order, "tap:"+string(ev.Name)); return nil })
	bus.On("A", func(Event) error { order = append(order, "a"); return nil })

	bus.Emit("A", nil)
	bus.Emit("B", nil)
	assert.Equal(t, []string{"a", "tap:A", "tap:B"}, order)

	tap.Unsubscribe()
	bus.Emit("B", nil)
	assert.Len(t, order, 3)
}

func TestHandlerMayEmitAndSubscribe(t *testing.T) {
	bus := NewBus(nil)
	var order []string
	bus.On("outer", func(Event) error {
		order = append(order, "outer")
		bus.On("outer", func(Event) error { order = append(order, "late"); return nil })
		bus.Emit("inner", nil)
		return nil
	})
	bus.On("inner", func(Event) error { order = append(order, "inner"); return nil })

	bus.Emit("outer", nil)
	// the handler added during dispatch joins from the next emission
	assert.Equal(t, []string{"outer", "inner"}, order)
}

func TestConcurrentEmit(t *testing.T) {
	bus := NewBus(nil)
	var mu sync.Mutex
	count := 0
	bus.On("E", func(Event) error {
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Emit("E", nil)
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, count)
	assert.Equal(t, uint64(50), bus.Stats()["emitted"])
}
