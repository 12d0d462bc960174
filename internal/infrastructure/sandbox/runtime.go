package sandbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/GriffinCanCode/WebDesk/internal/shared/errs"
	"github.com/dop251/goja"
	"go.uber.org/zap"
)

// Globals removed from every runtime. Modules get scripting only.
var strippedGlobals = []string{
	"require", "process", "setTimeout", "setInterval", "setImmediate",
	"clearTimeout", "clearInterval", "clearImmediate", "queueMicrotask",
}

// Module is one application script loaded into its own goja VM
type Module struct {
	name   string
	config Config
	logger *zap.Logger

	mu      sync.Mutex
	vm      *goja.Runtime // Protected by mu; nil once closed
	exports *goja.Object  // Protected by mu

	consoleMu sync.Mutex
	console   []LogEntry
}

// Load evaluates source in a fresh runtime. The script may assign its
// lifecycle functions to module.exports (or exports) or declare them at top
// level; bridge is installed as the global "app".
func Load(ctx context.Context, name, source string, bridge Bridge, cfg Config, logger *zap.Logger) (*Module, error) {
	const op = "sandbox.load"
	if logger == nil {
		logger = zap.NewNop()
	}

	program, err := goja.Compile(name, source, false)
	if err != nil {
		return nil, errs.Wrap(errs.KindValidation, op, err)
	}

	m := &Module{
		name:   name,
		config: cfg,
		logger: logger,
		vm:     goja.New(),
	}
	if cfg.MaxCallStack > 0 {
		m.vm.SetMaxCallStackSize(cfg.MaxCallStack)
	}
	if err := m.setupGlobals(bridge); err != nil {
		return nil, errs.Wrap(errs.KindValidation, op, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.run(ctx, op, func() (goja.Value, error) { return m.vm.RunProgram(program) }); err != nil {
		return nil, err
	}

	if mod := m.vm.Get("module"); isObject(mod) {
		if exp := mod.ToObject(m.vm).Get("exports"); isObject(exp) {
			m.exports = exp.ToObject(m.vm)
		}
	}
	return m, nil
}

// Name returns the module name
func (m *Module) Name() string {
	return m.name
}

// Has reports whether the module exports a callable fn
func (m *Module) Has(fn string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.lookup(fn)
	return ok
}

// Call invokes an exported function with Go arguments and returns the
// exported result
func (m *Module) Call(ctx context.Context, fn string, args ...interface{}) (interface{}, error) {
	op := "sandbox.call." + fn

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.vm == nil {
		return nil, errs.New(errs.KindInvariantViolation, op, "module "+m.name+" is closed")
	}
	callable, ok := m.lookup(fn)
	if !ok {
		return nil, errs.NotFound(op, "function "+fn+" in module "+m.name)
	}

	values := make([]goja.Value, len(args))
	for i, a := range args {
		values[i] = m.vm.ToValue(a)
	}
	this := goja.Undefined()
	if m.exports != nil {
		this = m.exports
	}

	val, err := m.run(ctx, op, func() (goja.Value, error) { return callable(this, values...) })
	if err != nil {
		return nil, err
	}
	return exportValue(val), nil
}

// Console returns a copy of the captured console output
func (m *Module) Console() []LogEntry {
	m.consoleMu.Lock()
	defer m.consoleMu.Unlock()
	return append([]LogEntry{}, m.console...)
}

// Close releases the runtime. Further calls fail.
func (m *Module) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vm = nil
	m.exports = nil
}

// lookup finds fn on exports first, then the global object. Caller holds mu.
func (m *Module) lookup(fn string) (goja.Callable, bool) {
	if m.vm == nil {
		return nil, false
	}
	if m.exports != nil {
		if c, ok := goja.AssertFunction(m.exports.Get(fn)); ok {
			return c, true
		}
	}
	return goja.AssertFunction(m.vm.Get(fn))
}

// run executes fn under the timeout and ctx, interrupting the VM when either
// fires. Caller holds mu.
func (m *Module) run(ctx context.Context, op string, fn func() (goja.Value, error)) (goja.Value, error) {
	timeout := m.config.Timeout
	if timeout <= 0 {
		timeout = DefaultConfig().Timeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	done := make(chan struct{})
	exited := make(chan struct{})

	vm := m.vm
	go func() {
		defer close(exited)
		select {
		case <-timer.C:
			vm.Interrupt("execution timeout exceeded")
		case <-ctx.Done():
			vm.Interrupt("context cancelled")
		case <-done:
		}
	}()

	val, err := fn()
	close(done)
	<-exited
	vm.ClearInterrupt()
	if err == nil {
		return val, nil
	}

	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		return nil, errs.New(errs.KindTimeout, op, fmt.Sprintf("module %s: %v", m.name, interrupted.Value()))
	}
	var exception *goja.Exception
	if errors.As(err, &exception) {
		return nil, fmt.Errorf("%s: module %s threw: %s", op, m.name, exception.Value().String())
	}
	return nil, fmt.Errorf("%s: module %s: %w", op, m.name, err)
}

// setupGlobals strips host capabilities and installs module, console and app
func (m *Module) setupGlobals(bridge Bridge) error {
	for _, name := range strippedGlobals {
		if err := m.vm.GlobalObject().Delete(name); err != nil {
			return err
		}
	}

	module := m.vm.NewObject()
	exports := m.vm.NewObject()
	if err := module.Set("exports", exports); err != nil {
		return err
	}
	if err := m.vm.Set("module", module); err != nil {
		return err
	}
	if err := m.vm.Set("exports", exports); err != nil {
		return err
	}

	if m.config.EnableConsole {
		console := m.vm.NewObject()
		for _, level := range []string{"log", "info", "warn", "error"} {
			if err := console.Set(level, m.makeConsoleFunc(level)); err != nil {
				return err
			}
		}
		if err := m.vm.Set("console", console); err != nil {
			return err
		}
	}

	if bridge == nil {
		bridge = Bridge{}
	}
	return m.vm.Set("app", map[string]interface{}(bridge))
}

// makeConsoleFunc creates a console function
func (m *Module) makeConsoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		msg := strings.Join(parts, " ")

		m.consoleMu.Lock()
		m.console = append(m.console, LogEntry{Level: level, Message: msg, Time: time.Now()})
		m.consoleMu.Unlock()

		m.logger.Debug("Sandbox console", zap.String("module", m.name), zap.String("level", level), zap.String("message", msg))
		return goja.Undefined()
	}
}

func isObject(v goja.Value) bool {
	return v != nil && !goja.IsUndefined(v) && !goja.IsNull(v)
}

// exportValue converts goja value to Go value
func exportValue(val goja.Value) interface{} {
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil
	}
	return val.Export()
}
