package kernel

import (
	"context"
	"fmt"

	"github.com/GriffinCanCode/WebDesk/internal/domain/events"
	"github.com/GriffinCanCode/WebDesk/internal/domain/filesystem"
	"github.com/GriffinCanCode/WebDesk/internal/infrastructure/storage"
	"github.com/GriffinCanCode/WebDesk/internal/shared/errs"
	"go.uber.org/zap"
)

// Boot stage names, in order
const (
	StageConfiguration = "configuration"
	StageEvents        = "events"
	StageSecurity      = "security"
	StageFilesystem    = "filesystem"
	StageProcesses     = "processes"
	StageServices      = "services"
	StageLocalization  = "localization"
	StageUI            = "ui"
	StageSession       = "session"
	StageStorage       = "storage"
	StageReady         = "ready"
)

type bootStage struct {
	percent int
	name    string
	run     func(ctx context.Context) error
}

func (k *Kernel) stages() []bootStage {
	return []bootStage{
		{5, StageConfiguration, k.loadConfiguration},
		{15, StageEvents, k.initEvents},
		{25, StageSecurity, k.initSecurity},
		{35, StageFilesystem, k.initFilesystem},
		{45, StageProcesses, k.initProcesses},
		{55, StageServices, k.connectServices},
		{65, StageLocalization, k.loadLocalization},
		{75, StageUI, k.initUI},
		{85, StageSession, k.restoreSession},
		{95, StageStorage, k.initStorage},
	}
}

// Boot runs every stage in order and leaves the kernel running. A failing
// stage moves the kernel to error and shows the failure.
func (k *Kernel) Boot(ctx context.Context) error {
	if err := k.transition(StatusInitializing, nil); err != nil {
		return err
	}
	k.logger.Info("Booting kernel",
		zap.String("remote", k.cfg.Remote.BaseURL),
		zap.Bool("debug", k.cfg.Kernel.Debug))

	if timeout := k.cfg.Kernel.BootTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	for _, stage := range k.stages() {
		k.progress(stage.percent, stage.name)
		if err := stage.run(ctx); err != nil {
			return k.fail(stage.name, err)
		}
	}

	if err := k.transition(StatusRunning, nil); err != nil {
		return err
	}
	k.progress(100, StageReady)
	k.logger.Info("Kernel running")

	k.mu.RLock()
	restored := k.restored
	k.mu.RUnlock()
	if restored {
		k.restoreWorkspace(ctx)
	}
	return nil
}

func (k *Kernel) progress(percent int, stage string) {
	k.shell.Progress(percent, stage)
	k.bus.Emit(events.KernelBootProgress, events.BootProgress{Percent: percent, Stage: stage})
}

func (k *Kernel) fail(stage string, err error) error {
	wrapped := fmt.Errorf("boot stage %s: %w", stage, err)
	k.logger.Error("Boot failed", zap.String("stage", stage), zap.Error(err))
	if terr := k.transition(StatusError, err); terr != nil {
		k.logger.Error("Failed to record boot failure", zap.Error(terr))
	}

	detail := ""
	if k.State().Debug {
		detail = wrapped.Error()
	}
	k.shell.ShowError(errs.Message(err), detail)
	return wrapped
}

// loadConfiguration fetches the remote configuration. The kernel cannot run
// without it.
func (k *Kernel) loadConfiguration(ctx context.Context) error {
	if _, err := k.services.Connect(ServiceSystem); err != nil {
		return err
	}
	info, err := k.system.GetSystemInfo(ctx)
	if err != nil {
		return err
	}

	k.mu.Lock()
	k.info = *info
	if info.Debug != nil {
		k.state.Debug = *info.Debug
	}
	if info.UseRemoteFilesystem != nil {
		k.state.UseRemoteFilesystem = *info.UseRemoteFilesystem
	}
	if info.DefaultLocale != "" {
		k.locale = info.DefaultLocale
	}
	state := k.state
	k.mu.Unlock()

	k.logger.Info("Configuration loaded",
		zap.String("system", info.Name),
		zap.String("version", info.Version),
		zap.Bool("debug", state.Debug),
		zap.Bool("remote_filesystem", state.UseRemoteFilesystem))
	return nil
}

func (k *Kernel) initEvents(context.Context) error {
	k.bus.Tap(func(ev events.Event) error {
		k.metrics.RecordEvent(string(ev.Name))
		return nil
	})
	k.bus.On(events.NotificationPosted, func(ev events.Event) error {
		if n, ok := ev.Data.(events.Notification); ok {
			k.shell.Notify(n)
		}
		return nil
	})
	return nil
}

func (k *Kernel) initSecurity(context.Context) error {
	k.security.Attach(k.bus)
	return nil
}

func (k *Kernel) initFilesystem(context.Context) error {
	// The backend is chosen at the storage stage, once the session is known
	k.logger.Debug("Filesystem ready", zap.Bool("remote", k.State().UseRemoteFilesystem))
	return nil
}

func (k *Kernel) initProcesses(context.Context) error {
	k.bus.On(events.ApplicationLaunched, k.persistWorkspace)
	k.bus.On(events.ApplicationTerminated, k.persistWorkspace)
	k.logger.Debug("Process manager ready", zap.Strings("builtins", k.builtins.Names()))
	return nil
}

func (k *Kernel) connectServices(context.Context) error {
	for _, name := range Services {
		if _, err := k.services.Connect(name); err != nil {
			return err
		}
	}
	return nil
}

// loadLocalization is best effort; Translate falls back to keys
func (k *Kernel) loadLocalization(ctx context.Context) error {
	k.mu.RLock()
	locale := k.locale
	k.mu.RUnlock()

	pack, err := k.system.GetLanguagePack(ctx, locale)
	if err != nil {
		k.logger.Warn("Language pack unavailable", zap.String("locale", locale), zap.Error(err))
		return nil
	}

	k.mu.Lock()
	k.messages = pack
	k.mu.Unlock()
	k.logger.Debug("Language pack loaded", zap.String("locale", locale), zap.Int("messages", len(pack)))
	return nil
}

func (k *Kernel) initUI(context.Context) error {
	if err := k.shell.Init(); err != nil {
		return errs.Wrap(errs.KindInvariantViolation, "kernel.initUI", err)
	}
	prefs, err := k.settings.Get()
	if err != nil {
		k.logger.Warn("Preferences unavailable, using defaults", zap.Error(err))
	}
	k.logger.Debug("UI ready", zap.String("theme", prefs.Theme), zap.Int("font_size", prefs.FontSize))
	return nil
}

// restoreSession revalidates a persisted token. Any failure shows the login
// screen instead of failing the boot.
func (k *Kernel) restoreSession(ctx context.Context) error {
	token := k.sessions.Token()
	if token == "" {
		k.shell.ShowLogin()
		return nil
	}

	res, err := k.auth.ValidateToken(ctx, token)
	if err != nil {
		k.logger.Info("Saved session rejected", zap.Error(err))
		if ferr := k.sessions.Forget(); ferr != nil {
			k.logger.Warn("Failed to forget session", zap.Error(ferr))
		}
		k.shell.ShowLogin()
		return nil
	}

	k.mu.Lock()
	k.token = res.Token
	k.restored = true
	k.mu.Unlock()

	k.bus.Emit(events.AuthLogin, loginEvent(res))
	k.shell.ShowDesktop(res.User.Username)
	k.logger.Info("Session restored", zap.String("username", res.User.Username))
	return nil
}

// initStorage installs the filesystem backend, seeds the catalog and, for a
// restored session, the user's skeleton
func (k *Kernel) initStorage(ctx context.Context) error {
	if k.State().UseRemoteFilesystem {
		h, err := k.services.Handle(ServiceFilesystem)
		if err != nil {
			return err
		}
		k.fs.SetBackend(filesystem.NewRemoteBackend(h, k.logger.Named("filesystem")))
	} else {
		store := k.store
		if err := storage.Probe(store); err != nil {
			k.logger.Warn("Persisted store unavailable, filesystem is in memory", zap.Error(err))
			store = nil
		}
		k.fs.SetBackend(filesystem.NewLocalBackend(store, k.logger.Named("filesystem")))
	}

	if n, err := k.catalog.Seed(k.seed); err != nil {
		k.logger.Warn("Failed to seed applications", zap.Error(err))
	} else if n > 0 {
		k.logger.Info("Seeded applications", zap.Int("count", n))
	}

	if user, ok := k.security.CurrentUser(); ok {
		if err := k.fs.Init(ctx, user.Username); err != nil {
			k.logger.Warn("Failed to initialize user filesystem", zap.String("username", user.Username), zap.Error(err))
		}
	}
	return nil
}
