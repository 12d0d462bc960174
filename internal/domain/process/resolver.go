package process

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/GriffinCanCode/WebDesk/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/WebDesk/internal/infrastructure/sandbox"
	"github.com/GriffinCanCode/WebDesk/internal/shared/errs"
	"github.com/GriffinCanCode/WebDesk/internal/shared/id"
	"github.com/GriffinCanCode/WebDesk/internal/shared/types"
	"go.uber.org/zap"
)

// Host is the kernel surface handed to every application
type Host interface {
	Notify(title, message, level string)
	Translate(key string) string
	HasPermission(permission string) bool
	ReadFile(ctx context.Context, path string) (string, error)
	WriteFile(ctx context.Context, path, content string) error
}

// AppContext is passed to an application's Init. Context lives as long as
// the kernel session, not the launch request.
type AppContext struct {
	Context  context.Context
	PID      int
	WindowID id.WindowID
	Manifest *types.Manifest
	Params   map[string]interface{}
	Host     Host
	Windows  *Manager
	Logger   *zap.Logger
}

// SetTitle renames the application's window
func (c *AppContext) SetTitle(title string) error {
	if c.Windows == nil {
		return errs.New(errs.KindInvariantViolation, "app.setTitle", "no window manager")
	}
	return c.Windows.SetTitle(c.WindowID, title)
}

// Application is the lifecycle every entry point implements
type Application interface {
	Init(ctx *AppContext) error
	Terminate()
}

// Factory creates a fresh application instance per launch
type Factory func() Application

// AppFuncs adapts plain functions to Application
type AppFuncs struct {
	OnInit      func(ctx *AppContext) error
	OnTerminate func()
}

// Init implements Application
func (a AppFuncs) Init(ctx *AppContext) error {
	if a.OnInit == nil {
		return nil
	}
	return a.OnInit(ctx)
}

// Terminate implements Application
func (a AppFuncs) Terminate() {
	if a.OnTerminate != nil {
		a.OnTerminate()
	}
}

// Registry maps built-in entry names to factories. It is populated at
// startup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory // Protected by mu
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a built-in. Names are unique.
func (r *Registry) Register(name string, f Factory) error {
	const op = "registry.register"
	if name == "" || f == nil {
		return errs.Validation(op, "built-in needs a name and a factory")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return errs.Invariant(op, fmt.Sprintf("built-in %s already registered", name))
	}
	r.factories[name] = f
	return nil
}

// Lookup returns the factory registered under name
func (r *Registry) Lookup(name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	return f, ok
}

// Names returns the registered names in order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SourceLoader fetches a module's script
type SourceLoader interface {
	LoadSource(ctx context.Context, manifest *types.Manifest) (string, error)
}

// Resolver turns a manifest's entry into an Application
type Resolver struct {
	builtins *Registry
	loader   SourceLoader
	sandbox  sandbox.Config
	metrics  *monitoring.Metrics
	logger   *zap.Logger
}

// SandboxService labels module calls in the call metrics
const SandboxService = "sandbox"

// NewResolver creates a resolver. loader may be nil when only built-ins
// are available.
func NewResolver(builtins *Registry, loader SourceLoader, cfg sandbox.Config, logger *zap.Logger) *Resolver {
	if builtins == nil {
		builtins = NewRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{builtins: builtins, loader: loader, sandbox: cfg, logger: logger}
}

// WithMetrics times module init and terminate calls
func (r *Resolver) WithMetrics(m *monitoring.Metrics) *Resolver {
	r.metrics = m
	return r
}

// Builtins returns the built-in registry
func (r *Resolver) Builtins() *Registry {
	return r.builtins
}

// Resolve finds the entry point. An unknown built-in or a missing module
// source is NotFound.
func (r *Resolver) Resolve(ctx context.Context, manifest *types.Manifest) (Application, error) {
	const op = "process.resolve"

	switch manifest.EntryKind() {
	case types.EntryModule:
		if r.loader == nil {
			return nil, errs.NotFound(op, "module loader for "+manifest.Entry)
		}
		source, err := r.loader.LoadSource(ctx, manifest)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return nil, errs.NotFound(op, "entry point "+manifest.Entry)
			}
			return nil, err
		}
		return &moduleApp{name: manifest.ID, source: source, config: r.sandbox, metrics: r.metrics, logger: r.logger}, nil

	default:
		name := manifest.BuiltinName()
		f, ok := r.builtins.Lookup(name)
		if !ok {
			return nil, errs.NotFound(op, "entry point "+name)
		}
		app := f()
		if app == nil {
			return nil, errs.NotFound(op, "entry point "+name)
		}
		return app, nil
	}
}

// moduleApp runs a script in its own sandbox. The module's optional init
// receives the launch params; its optional terminate runs on teardown.
type moduleApp struct {
	name    string
	source  string
	config  sandbox.Config
	metrics *monitoring.Metrics
	logger  *zap.Logger

	mod *sandbox.Module
}

func (a *moduleApp) Init(ctx *AppContext) error {
	mod, err := sandbox.Load(ctx.Context, a.name, a.source, a.bridge(ctx), a.config, a.logger)
	if err != nil {
		return err
	}
	a.mod = mod

	if mod.Has("init") {
		if err := a.call(ctx.Context, "init", ctx.Params); err != nil {
			mod.Close()
			return err
		}
	}
	return nil
}

func (a *moduleApp) Terminate() {
	if a.mod == nil {
		return
	}
	if a.mod.Has("terminate") {
		if err := a.call(context.Background(), "terminate"); err != nil {
			a.logger.Warn("Module terminate failed", zap.String("module", a.name), zap.Error(err))
		}
	}
	a.mod.Close()
}

func (a *moduleApp) call(ctx context.Context, fn string, args ...interface{}) error {
	timer := monitoring.NewTimer(a.metrics, SandboxService, fn)
	_, err := a.mod.Call(ctx, fn, args...)
	timer.Stop(err)
	return err
}

// bridge is the "app" object. Functions returning an error throw in the
// script.
func (a *moduleApp) bridge(c *AppContext) sandbox.Bridge {
	logger := a.logger.With(zap.String("module", a.name), zap.Int("pid", c.PID))
	b := sandbox.Bridge{
		"id":     a.name,
		"pid":    c.PID,
		"params": c.Params,
		"log": func(msg string) {
			logger.Info("Module log", zap.String("message", msg))
		},
		"setTitle": func(title string) error {
			return c.SetTitle(title)
		},
	}
	if c.Host == nil {
		return b
	}
	b["notify"] = func(title, message string) {
		c.Host.Notify(title, message, "info")
	}
	b["translate"] = c.Host.Translate
	b["hasPermission"] = c.Host.HasPermission
	b["readFile"] = func(path string) (string, error) {
		return c.Host.ReadFile(c.Context, path)
	}
	b["writeFile"] = func(path, content string) error {
		return c.Host.WriteFile(c.Context, path, content)
	}
	return b
}
