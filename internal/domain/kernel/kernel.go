package kernel

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/GriffinCanCode/WebDesk/internal/domain/catalog"
	"github.com/GriffinCanCode/WebDesk/internal/domain/events"
	"github.com/GriffinCanCode/WebDesk/internal/domain/filesystem"
	"github.com/GriffinCanCode/WebDesk/internal/domain/process"
	"github.com/GriffinCanCode/WebDesk/internal/domain/security"
	"github.com/GriffinCanCode/WebDesk/internal/domain/services"
	"github.com/GriffinCanCode/WebDesk/internal/domain/session"
	"github.com/GriffinCanCode/WebDesk/internal/domain/settings"
	"github.com/GriffinCanCode/WebDesk/internal/domain/ui"
	"github.com/GriffinCanCode/WebDesk/internal/infrastructure/config"
	"github.com/GriffinCanCode/WebDesk/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/WebDesk/internal/infrastructure/rpc"
	"github.com/GriffinCanCode/WebDesk/internal/infrastructure/sandbox"
	"github.com/GriffinCanCode/WebDesk/internal/infrastructure/storage"
	"github.com/GriffinCanCode/WebDesk/internal/shared/errs"
	"github.com/GriffinCanCode/WebDesk/internal/shared/types"
	"go.uber.org/zap"
)

// Named remote services connected at boot
const (
	ServiceAuth       = "auth"
	ServiceUsers      = "users"
	ServiceApps       = "apps"
	ServiceFilesystem = "filesystem"
	ServiceSystem     = "system"
	ServiceSandbox    = "sandbox"
)

// Services is the connection order used at boot
var Services = []string{ServiceAuth, ServiceUsers, ServiceApps, ServiceFilesystem, ServiceSystem, ServiceSandbox}

// Options configures a Kernel. Zero values get defaults.
type Options struct {
	Config    *config.Config
	Logger    *zap.Logger
	Shell     ui.Shell
	Store     storage.Store
	Metrics   *monitoring.Metrics
	Transport *rpc.Transport
	Builtins  *process.Registry
	Seed      []types.Manifest
}

// Kernel owns every subsystem of one desktop session. It is constructed once
// and handed to whatever drives it; nothing reaches it through globals.
// Subsystems exist from New on but are wired together during Boot.
type Kernel struct {
	cfg     *config.Config
	logger  *zap.Logger
	shell   ui.Shell
	store   storage.Store
	metrics *monitoring.Metrics

	bus       *events.Bus
	services  *rpc.Registry
	security  *security.Manager
	fs        *filesystem.FileSystem
	processes *process.Manager
	resolver  *process.Resolver
	builtins  *process.Registry

	catalog  *catalog.Catalog
	drafts   *catalog.Drafts
	settings *settings.Manager
	sessions *session.Manager
	seed     []types.Manifest

	auth   *services.Auth
	apps   *services.Apps
	system *services.System

	// ctx bounds application lifetimes; cancelled at shutdown
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	state    State               // Protected by mu
	info     services.SystemInfo // Protected by mu
	locale   string              // Protected by mu
	messages map[string]string   // Protected by mu
	token    string              // Protected by mu
	restored bool                // Protected by mu
}

// New creates an uninitialized kernel
func New(opts Options) (*Kernel, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, errs.Wrap(errs.KindValidation, "kernel.new", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	shell := opts.Shell
	if shell == nil {
		shell = ui.NewHeadless(logger.Named("ui"))
	}
	store := opts.Store
	if store == nil {
		store = storage.NewMemory()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = monitoring.NewMetrics()
	}
	builtins := opts.Builtins
	if builtins == nil {
		builtins = DefaultBuiltins()
	}
	seed := opts.Seed
	if seed == nil {
		seed = DefaultManifests()
	}

	rpcOpts := []rpc.Option{rpc.WithObserver(metrics)}
	if opts.Transport != nil {
		rpcOpts = append(rpcOpts, rpc.WithTransport(opts.Transport))
	}
	registry := rpc.NewRegistry(cfg.Remote, logger.Named("rpc"), rpcOpts...)

	bus := events.NewBus(logger.Named("events"))
	sec := security.NewManager(logger.Named("security"))

	ctx, cancel := context.WithCancel(context.Background())
	k := &Kernel{
		cfg:      cfg,
		logger:   logger.Named("kernel"),
		shell:    shell,
		store:    store,
		metrics:  metrics,
		bus:      bus,
		services: registry,
		security: sec,
		fs:       filesystem.New(nil, sec, bus, logger.Named("filesystem")).WithObserver(metrics),
		builtins: builtins,
		catalog:  catalog.New(store, logger.Named("catalog")),
		drafts:   catalog.NewDrafts(store, logger.Named("drafts")),
		settings: settings.NewManager(store, logger.Named("settings")),
		sessions: session.NewManager(store, logger.Named("session")),
		seed:     seed,
		ctx:      ctx,
		cancel:   cancel,
		locale:   cfg.Kernel.Locale,
		messages: map[string]string{},
		state: State{
			Status:              StatusUninitialized,
			Debug:               cfg.Kernel.Debug,
			UseRemoteFilesystem: cfg.Kernel.UseRemoteFilesystem,
		},
	}

	k.processes = process.NewManager(cfg.Workspace, bus, logger.Named("process")).WithObserver(metrics)
	k.resolver = process.NewResolver(builtins, k, sandbox.FromConfig(cfg.Sandbox), logger.Named("sandbox")).WithMetrics(metrics)

	timeout := cfg.Kernel.CallTimeout
	k.auth = services.NewAuth(k.caller(ServiceAuth, timeout))
	k.apps = services.NewApps(k.caller(ServiceApps, timeout))
	k.system = services.NewSystem(k.caller(ServiceSystem, timeout))
	return k, nil
}

// Config returns the kernel configuration
func (k *Kernel) Config() *config.Config {
	return k.cfg
}

// Bus returns the event system
func (k *Kernel) Bus() *events.Bus {
	return k.bus
}

// Services returns the remote service registry
func (k *Kernel) Services() *rpc.Registry {
	return k.services
}

// Security returns the security manager
func (k *Kernel) Security() *security.Manager {
	return k.security
}

// FileSystem returns the filesystem
func (k *Kernel) FileSystem() *filesystem.FileSystem {
	return k.fs
}

// Processes returns the process manager
func (k *Kernel) Processes() *process.Manager {
	return k.processes
}

// Catalog returns the local application catalog
func (k *Kernel) Catalog() *catalog.Catalog {
	return k.catalog
}

// Drafts returns the developer draft store
func (k *Kernel) Drafts() *catalog.Drafts {
	return k.drafts
}

// Metrics returns the metrics collector
func (k *Kernel) Metrics() *monitoring.Metrics {
	return k.metrics
}

// Shell returns the presentation shell
func (k *Kernel) Shell() ui.Shell {
	return k.shell
}

// SystemInfo returns the configuration loaded from the system service
func (k *Kernel) SystemInfo() services.SystemInfo {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.info
}

// Stats returns a summary of every subsystem
func (k *Kernel) Stats() map[string]interface{} {
	state := k.State()
	stats := map[string]interface{}{
		"status":     state.Status,
		"events":     k.bus.Stats(),
		"services":   k.services.Stats(),
		"sessions":   k.sessions.Stats(),
		"filesystem": k.fs.Stats(),
		"processes":  k.processes.Stats(),
		"metrics":    k.metrics.Snapshot(),
	}
	if !state.StartTime.IsZero() {
		stats["uptime"] = time.Since(state.StartTime).String()
	}
	return stats
}

// serviceCaller resolves its handle at call time so typed clients exist
// before the service is connected. Each call runs as a timeout future.
type serviceCaller struct {
	registry *rpc.Registry
	name     string
	timeout  time.Duration
}

func (k *Kernel) caller(name string, timeout time.Duration) serviceCaller {
	return serviceCaller{registry: k.services, name: name, timeout: timeout}
}

// Call implements rpc.Caller
func (c serviceCaller) Call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	h, ok := c.registry.Get(c.name)
	if !ok {
		return nil, errs.Newf(errs.KindTransport, c.name+"."+method, "service %s is not connected", c.name)
	}
	data, err := h.CallWithTimeout(ctx, c.timeout, method, params).Await(ctx)
	if err != nil && (errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)) {
		return nil, errs.Wrap(errs.KindTimeout, c.name+"."+method, err)
	}
	return data, err
}
