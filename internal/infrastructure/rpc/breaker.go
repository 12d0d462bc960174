package rpc

import (
	"sync"
	"time"

	"github.com/GriffinCanCode/WebDesk/internal/shared/errs"
)

// BreakerState represents the circuit breaker state
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerHalfOpen
	BreakerOpen
)

// String returns the string representation of the state
func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerHalfOpen:
		return "half-open"
	case BreakerOpen:
		return "open"
	default:
		return "unknown"
	}
}

// BreakerCounts holds the statistics of one breaker generation
type BreakerCounts struct {
	Requests            uint32 `json:"requests"`
	Successes           uint32 `json:"successes"`
	Failures            uint32 `json:"failures"`
	ConsecutiveFailures uint32 `json:"consecutiveFailures"`
}

// Breaker guards one remote service. After Threshold consecutive transport
// failures it opens and rejects calls until Cooldown has passed, then admits a
// single probe call whose outcome closes or reopens it.
type Breaker struct {
	name      string
	threshold uint32
	cooldown  time.Duration
	now       func() time.Time
	onChange  func(name string, from, to BreakerState)

	mu         sync.Mutex
	state      BreakerState
	generation uint64
	counts     BreakerCounts
	openedAt   time.Time
	probing    bool
}

// NewBreaker creates a closed breaker. A threshold <= 0 disables tripping.
func NewBreaker(name string, threshold int, cooldown time.Duration) *Breaker {
	if threshold < 0 {
		threshold = 0
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{
		name:      name,
		threshold: uint32(threshold),
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// OnStateChange registers a callback invoked (under the breaker lock) on
// every transition
func (b *Breaker) OnStateChange(fn func(name string, from, to BreakerState)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onChange = fn
}

// State returns the current state
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current()
}

// Counts returns a copy of the counts for the current generation
func (b *Breaker) Counts() BreakerCounts {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts
}

// Do runs fn if the breaker admits it. failed classifies fn's error: only
// errors it reports as failures count against the breaker.
func (b *Breaker) Do(fn func() error, failed func(error) bool) error {
	generation, err := b.admit()
	if err != nil {
		return err
	}

	finished := false
	defer func() {
		if !finished {
			b.record(generation, false)
		}
	}()

	err = fn()
	finished = true
	b.record(generation, err == nil || !failed(err))
	return err
}

func (b *Breaker) admit() (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.current() {
	case BreakerOpen:
		return 0, errs.Newf(errs.KindTransport, "rpc."+b.name, "circuit breaker open")
	case BreakerHalfOpen:
		if b.probing {
			return 0, errs.Newf(errs.KindTransport, "rpc."+b.name, "circuit breaker probing")
		}
		b.probing = true
	}

	b.counts.Requests++
	return b.generation, nil
}

func (b *Breaker) record(generation uint64, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state := b.current()
	if generation != b.generation {
		return
	}

	if success {
		b.counts.Successes++
		b.counts.ConsecutiveFailures = 0
		if state == BreakerHalfOpen {
			b.transition(BreakerClosed)
		}
		return
	}

	b.counts.Failures++
	b.counts.ConsecutiveFailures++
	switch state {
	case BreakerHalfOpen:
		b.transition(BreakerOpen)
	case BreakerClosed:
		if b.threshold > 0 && b.counts.ConsecutiveFailures >= b.threshold {
			b.transition(BreakerOpen)
		}
	}
}

// current promotes an expired open breaker to half-open. Caller holds mu.
func (b *Breaker) current() BreakerState {
	if b.state == BreakerOpen && b.now().Sub(b.openedAt) >= b.cooldown {
		b.transition(BreakerHalfOpen)
	}
	return b.state
}

// transition starts a new generation. Caller holds mu.
func (b *Breaker) transition(to BreakerState) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	b.generation++
	b.counts = BreakerCounts{}
	b.probing = false
	if to == BreakerOpen {
		b.openedAt = b.now()
	}
	if b.onChange != nil {
		b.onChange(b.name, from, to)
	}
}
