package kernel

import (
	"context"
	"errors"
	"time"

	"github.com/GriffinCanCode/WebDesk/internal/domain/services"
	"github.com/GriffinCanCode/WebDesk/internal/domain/settings"
	"github.com/GriffinCanCode/WebDesk/internal/infrastructure/storage"
	"github.com/GriffinCanCode/WebDesk/internal/shared/errs"
	"github.com/GriffinCanCode/WebDesk/internal/shared/id"
	"github.com/GriffinCanCode/WebDesk/internal/shared/paths"
	"github.com/GriffinCanCode/WebDesk/internal/shared/types"
	"go.uber.org/zap"
)

func (k *Kernel) requireUser(op string) error {
	if !k.security.Authenticated() {
		return errs.New(errs.KindAuthenticationRequired, op, "no user is logged in")
	}
	return nil
}

// InstallApp adds a manifest to the local catalog
func (k *Kernel) InstallApp(m types.Manifest) error {
	if err := k.requireUser("kernel.installApp"); err != nil {
		return err
	}
	return k.catalog.Install(m)
}

// UninstallApp removes appID from the local catalog and terminates its
// running instances
func (k *Kernel) UninstallApp(appID string) (bool, error) {
	if err := k.requireUser("kernel.uninstallApp"); err != nil {
		return false, err
	}
	ok, err := k.catalog.Uninstall(appID)
	if err != nil || !ok {
		return ok, err
	}
	for _, p := range k.processes.FindByApp(appID) {
		k.processes.TerminateProcess(p.PID)
	}
	return true, nil
}

// InstalledApps lists the local catalog
func (k *Kernel) InstalledApps() ([]types.Manifest, error) {
	return k.catalog.List()
}

// InstallDraft installs a draft locally: its manifest goes to the catalog
// and its source to the application's data directory
func (k *Kernel) InstallDraft(ctx context.Context, draftID id.DraftID) (*types.Manifest, error) {
	const op = "kernel.installDraft"
	if err := k.requireUser(op); err != nil {
		return nil, err
	}
	draft, err := k.drafts.Get(draftID)
	if err != nil {
		return nil, err
	}

	m := draft.Manifest
	if m.EntryKind() == types.EntryModule {
		if err := k.writeSource(ctx, &m, draft.Source); err != nil {
			return nil, err
		}
	}
	if err := k.catalog.Install(m); err != nil {
		return nil, err
	}
	return &m, nil
}

// writeSource stores a module's script with kernel privileges
func (k *Kernel) writeSource(ctx context.Context, m *types.Manifest, source string) error {
	const op = "kernel.writeSource"
	p, err := SourcePath(m)
	if err != nil {
		return errs.Wrap(errs.KindValidation, op, err)
	}
	backend := k.fs.Backend()
	if backend == nil {
		return errs.New(errs.KindBackendUnavailable, op, "no storage backend installed")
	}

	// create missing ancestors top-down
	var missing []string
	for dir := paths.Parent(p); !paths.IsRoot(dir); dir = paths.Parent(dir) {
		ok, err := backend.DirectoryExists(ctx, dir)
		if err != nil {
			return err
		}
		if ok {
			break
		}
		missing = append(missing, dir)
	}
	for i := len(missing) - 1; i >= 0; i-- {
		if _, err := backend.CreateDirectory(ctx, missing[i]); err != nil {
			return err
		}
	}

	_, err = backend.WriteFile(ctx, p, source)
	return err
}

// SubmitDraft sends a draft to the app store for review
func (k *Kernel) SubmitDraft(ctx context.Context, draftID id.DraftID) (*services.Submission, error) {
	draft, err := k.drafts.Get(draftID)
	if err != nil {
		return nil, err
	}
	return k.AppStore().SubmitApp(ctx, draft.Manifest, draft.Source)
}

// Preferences returns the saved UI preferences
func (k *Kernel) Preferences() (settings.Preferences, error) {
	return k.settings.Get()
}

// SavePreferences validates and persists p
func (k *Kernel) SavePreferences(p settings.Preferences) error {
	return k.settings.Save(p)
}

// RunSelfTests combines local checks with the system service's diagnostics.
// An unreachable service is reported as a failed check.
func (k *Kernel) RunSelfTests(ctx context.Context) (*services.SelfTestReport, error) {
	if err := k.requireRunning("kernel.selfTests"); err != nil {
		return nil, err
	}

	report := &services.SelfTestReport{}
	if remote, err := k.system.RunSelfTests(ctx); err != nil {
		report.Results = append(report.Results, services.SelfTestResult{
			Name:    "remote.system",
			Passed:  false,
			Message: errs.Message(err),
		})
	} else {
		report.Results = append(report.Results, remote.Results...)
	}
	report.Results = append(report.Results, k.localChecks(ctx)...)

	for _, r := range report.Results {
		if r.Passed {
			report.Passed++
		} else {
			report.Failed++
		}
	}
	return report, nil
}

func (k *Kernel) localChecks(ctx context.Context) []services.SelfTestResult {
	check := func(name string, err error) services.SelfTestResult {
		if err != nil {
			return services.SelfTestResult{Name: name, Message: errs.Message(err)}
		}
		return services.SelfTestResult{Name: name, Passed: true}
	}

	var fsErr error
	if backend := k.fs.Backend(); backend == nil {
		fsErr = errs.New(errs.KindBackendUnavailable, "selftest", "no storage backend installed")
	} else if ok, err := backend.DirectoryExists(ctx, paths.Root); err != nil {
		fsErr = err
	} else if !ok {
		fsErr = errs.NotFound("selftest", "root directory")
	}

	var servicesErr error
	for _, name := range Services {
		if _, ok := k.services.Get(name); !ok {
			servicesErr = errs.NotFound("selftest", "service "+name)
			break
		}
	}

	return []services.SelfTestResult{
		check("local.storage", storage.Probe(k.store)),
		check("local.filesystem", fsErr),
		check("local.services", servicesErr),
	}
}

// ReportError forwards err to the system service. Failures are logged only.
func (k *Kernel) ReportError(ctx context.Context, err error, fields map[string]string) {
	if err == nil {
		return
	}
	report := services.ErrorReport{
		Message:   errs.Message(err),
		Kind:      errs.KindOf(err).String(),
		Timestamp: time.Now(),
		Context:   fields,
	}
	var e *errs.Error
	if errors.As(err, &e) {
		report.Op = e.Op
	}
	if user, ok := k.security.CurrentUser(); ok {
		report.Username = user.Username
	}

	if lerr := k.system.LogError(ctx, report); lerr != nil {
		k.logger.Warn("Failed to report error", zap.String("error", report.Message), zap.Error(lerr))
	}
}
