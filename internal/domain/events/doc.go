// Package events provides the kernel's synchronous publish/subscribe bus.
//
// Emit calls every handler registered for the event name, in registration
// order, on the caller's goroutine, and returns once all have run. Handler
// errors and panics are logged and swallowed so one bad subscriber cannot
// break delivery to the others or to the emitter. There is no ordering
// guarantee across different names.
//
//	bus := events.NewBus(logger)
//	sub := bus.On(events.ApplicationLaunched, func(ev events.Event) error {
//	    launched := ev.Data.(events.Launched)
//	    ...
//	    return nil
//	})
//	defer sub.Unsubscribe()
package events
