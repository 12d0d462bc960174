package rpc

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/GriffinCanCode/WebDesk/internal/infrastructure/config"
	"github.com/GriffinCanCode/WebDesk/internal/shared/errs"
	"go.uber.org/zap"
)

// Registry is the single source of truth for connected services. Each named
// service has at most one handle for the lifetime of the registry.
type Registry struct {
	cfg       config.RemoteConfig
	transport *Transport
	observer  Observer
	logger    *zap.Logger

	mu      sync.RWMutex
	handles map[string]*ServiceHandle
	order   []string
}

// Option configures a Registry
type Option func(*Registry)

// WithTransport overrides the transport built from config
func WithTransport(t *Transport) Option {
	return func(r *Registry) { r.transport = t }
}

// WithObserver attaches a call observer (metrics)
func WithObserver(o Observer) Option {
	return func(r *Registry) { r.observer = o }
}

// NewRegistry creates an empty registry
func NewRegistry(cfg config.RemoteConfig, logger *zap.Logger, opts ...Option) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.EndpointPattern == "" {
		cfg.EndpointPattern = "%s/%s"
	}
	r := &Registry{
		cfg:     cfg,
		logger:  logger,
		handles: make(map[string]*ServiceHandle),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.transport == nil {
		r.transport = NewTransport(OptionsFromConfig(cfg))
	}
	return r
}

// Connect returns the handle for name, creating it if needed, and marks it
// connected
func (r *Registry) Connect(name string) (*ServiceHandle, error) {
	if name == "" || strings.ContainsAny(name, "/?#") {
		return nil, errs.Validation("rpc.connect", fmt.Sprintf("invalid service name %q", name))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.handles[name]; ok {
		h.setStatus(StatusConnected)
		return h, nil
	}

	h := &ServiceHandle{
		name:      name,
		endpoint:  r.endpoint(name),
		transport: r.transport,
		breaker:   NewBreaker(name, r.cfg.BreakerFailures, r.cfg.BreakerCooldown),
		observer:  r.observer,
		logger:    r.logger.With(zap.String("service", name)),
		status:    StatusConnected,
	}
	h.breaker.OnStateChange(func(service string, from, to BreakerState) {
		r.logger.Warn("Circuit breaker state changed",
			zap.String("service", service),
			zap.String("from", from.String()),
			zap.String("to", to.String()))
	})

	r.handles[name] = h
	r.order = append(r.order, name)
	r.logger.Info("Service connected", zap.String("service", name), zap.String("endpoint", h.endpoint))
	return h, nil
}

// Get retrieves a handle by name
func (r *Registry) Get(name string) (*ServiceHandle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[name]
	return h, ok
}

// Handle retrieves a handle by name or reports NotFound
func (r *Registry) Handle(name string) (*ServiceHandle, error) {
	if h, ok := r.Get(name); ok {
		return h, nil
	}
	return nil, errs.NotFound("rpc", "service "+name)
}

// HandleInfo is a snapshot of one handle
type HandleInfo struct {
	Name     string        `json:"name"`
	Endpoint string        `json:"endpoint"`
	Status   Status        `json:"status"`
	Breaker  string        `json:"breaker"`
	Counts   BreakerCounts `json:"counts"`
}

// List returns all handles in connection order
func (r *Registry) List() []HandleInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]HandleInfo, 0, len(r.order))
	for _, name := range r.order {
		h := r.handles[name]
		infos = append(infos, HandleInfo{
			Name:     name,
			Endpoint: h.endpoint,
			Status:   h.Status(),
			Breaker:  h.breaker.State().String(),
			Counts:   h.breaker.Counts(),
		})
	}
	return infos
}

// Disconnect marks one handle disconnected
func (r *Registry) Disconnect(name string) bool {
	h, ok := r.Get(name)
	if ok {
		h.setStatus(StatusDisconnected)
	}
	return ok
}

// DisconnectAll marks every handle disconnected
func (r *Registry) DisconnectAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, h := range r.handles {
		h.setStatus(StatusDisconnected)
	}
}

// Stats returns registry statistics
func (r *Registry) Stats() map[string]interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	connected := 0
	open := make([]string, 0)
	for _, name := range r.order {
		h := r.handles[name]
		if h.Status() == StatusConnected {
			connected++
		}
		if h.breaker.State() == BreakerOpen {
			open = append(open, name)
		}
	}
	sort.Strings(open)

	return map[string]interface{}{
		"total_services":   len(r.handles),
		"connected":        connected,
		"open_breakers":    open,
		"endpoint_pattern": r.cfg.EndpointPattern,
	}
}

func (r *Registry) endpoint(name string) string {
	return fmt.Sprintf(r.cfg.EndpointPattern, strings.TrimRight(r.cfg.BaseURL, "/"), name)
}
