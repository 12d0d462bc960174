package kernel

import (
	"fmt"
	"time"

	"github.com/GriffinCanCode/WebDesk/internal/domain/events"
	"github.com/GriffinCanCode/WebDesk/internal/shared/errs"
	"go.uber.org/zap"
)

// Status is the kernel lifecycle state
type Status string

const (
	StatusUninitialized Status = "uninitialized"
	StatusInitializing  Status = "initializing"
	StatusRunning       Status = "running"
	StatusShuttingDown  Status = "shuttingDown"
	StatusShutdown      Status = "shutdown"
	StatusError         Status = "error"
)

// transitions lists the legal next states of each state
var transitions = map[Status][]Status{
	StatusUninitialized: {StatusInitializing},
	StatusInitializing:  {StatusRunning, StatusError},
	StatusRunning:       {StatusShuttingDown},
	StatusShuttingDown:  {StatusShutdown},
}

// CanTransition reports whether from → to is legal
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// State is the kernel's observable state
type State struct {
	Status              Status    `json:"status"`
	StartTime           time.Time `json:"startTime"`
	LastError           string    `json:"lastError,omitempty"`
	Debug               bool      `json:"debug"`
	UseRemoteFilesystem bool      `json:"useRemoteFilesystem"`
}

// transition is the only writer of state.Status. It emits
// kernel:stateChanged after releasing the lock.
func (k *Kernel) transition(to Status, cause error) error {
	k.mu.Lock()
	from := k.state.Status
	if !CanTransition(from, to) {
		k.mu.Unlock()
		return errs.Invariant("kernel.transition", fmt.Sprintf("illegal transition %s -> %s", from, to))
	}
	k.state.Status = to
	if cause != nil {
		k.state.LastError = errs.Message(cause)
	}
	if to == StatusInitializing {
		k.state.StartTime = time.Now()
	}
	k.mu.Unlock()

	change := events.StateChange{From: string(from), To: string(to)}
	if cause != nil {
		change.Error = errs.Message(cause)
	}
	k.logger.Info("Kernel state changed", zap.String("from", string(from)), zap.String("to", string(to)))
	k.bus.Emit(events.KernelStateChanged, change)
	return nil
}

// State returns a copy of the kernel state
func (k *Kernel) State() State {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.state
}

// Status returns the current lifecycle state
func (k *Kernel) Status() Status {
	return k.State().Status
}

// requireRunning fails with InvariantViolation unless the kernel is running
func (k *Kernel) requireRunning(op string) error {
	if s := k.Status(); s != StatusRunning {
		return errs.Invariant(op, fmt.Sprintf("kernel is %s", s))
	}
	return nil
}
