package kernel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GriffinCanCode/WebDesk/internal/domain/events"
	"github.com/GriffinCanCode/WebDesk/internal/domain/process"
	"github.com/GriffinCanCode/WebDesk/internal/shared/errs"
	"github.com/GriffinCanCode/WebDesk/internal/shared/types"
	"github.com/GriffinCanCode/WebDesk/internal/shared/utils"
	"go.uber.org/zap"
)

// LaunchPermission is the capability needed to start appID
func LaunchPermission(appID string) string {
	return "app.launch." + appID
}

// LaunchApplication starts appID in a new window. Every failure emits
// application:launchFailed and posts an error notification.
func (k *Kernel) LaunchApplication(ctx context.Context, appID string, params map[string]interface{}) (*process.Process, error) {
	start := time.Now()
	proc, err := k.launch(ctx, appID, params)
	k.metrics.RecordLaunch(time.Since(start), err)

	if err != nil {
		k.logger.Warn("Launch failed", zap.String("app_id", appID), zap.Error(err))
		k.bus.Emit(events.ApplicationLaunchFailed, events.LaunchFailed{
			AppID: appID,
			Error: errs.Message(err),
			Kind:  errs.KindOf(err).String(),
		})
		k.Notify(k.text("launch.failed", "Launch failed"), fmt.Sprintf("%s: %s", appID, errs.Message(err)), "error")
		return nil, err
	}

	k.bus.Emit(events.ApplicationLaunched, events.Launched{
		PID:      proc.PID,
		AppID:    proc.AppID,
		WindowID: proc.WindowID.String(),
	})
	return proc, nil
}

func (k *Kernel) launch(ctx context.Context, appID string, params map[string]interface{}) (*process.Process, error) {
	const op = "kernel.launch"
	if err := k.requireRunning(op); err != nil {
		return nil, err
	}
	if err := utils.ValidateAppID(appID); err != nil {
		return nil, errs.Wrap(errs.KindValidation, op, err)
	}
	if err := k.security.Require(LaunchPermission(appID)); err != nil {
		return nil, err
	}

	manifest, err := k.manifestFor(ctx, appID)
	if err != nil {
		return nil, err
	}
	for _, perm := range manifest.Permissions {
		if err := k.security.Require(perm); err != nil {
			return nil, err
		}
	}

	proc, err := k.processes.CreateProcess(appID, manifest, params)
	if err != nil {
		return nil, err
	}

	app, err := k.resolver.Resolve(ctx, manifest)
	if err != nil {
		k.processes.TerminateProcess(proc.PID)
		return nil, err
	}

	appCtx := &process.AppContext{
		Context:  k.ctx,
		PID:      proc.PID,
		WindowID: proc.WindowID,
		Manifest: manifest,
		Params:   params,
		Host:     k,
		Windows:  k.processes,
		Logger:   k.logger.Named("app").With(zap.String("app_id", appID), zap.Int("pid", proc.PID)),
	}
	if err := app.Init(appCtx); err != nil {
		k.processes.TerminateProcess(proc.PID)
		return nil, fmt.Errorf("failed to start %s: %w", appID, err)
	}
	if err := k.processes.Attach(proc.PID, app); err != nil {
		app.Terminate()
		return nil, err
	}

	running, ok := k.processes.Get(proc.PID)
	if !ok {
		return nil, errs.Invariant(op, fmt.Sprintf("process %d vanished during launch", proc.PID))
	}
	k.logger.Info("Application launched", zap.String("app_id", appID), zap.Int("pid", proc.PID))
	return running, nil
}

// manifestFor looks in the installed catalog first, then asks the apps
// service
func (k *Kernel) manifestFor(ctx context.Context, appID string) (*types.Manifest, error) {
	m, err := k.catalog.Get(appID)
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, errs.ErrNotFound) {
		k.logger.Warn("Installed catalog unavailable, asking the apps service",
			zap.String("app_id", appID), zap.Error(err))
	}
	return k.apps.GetAppInfo(ctx, appID)
}

// Terminate ends the process with pid
func (k *Kernel) Terminate(pid int) error {
	if !k.processes.TerminateProcess(pid) {
		return errs.NotFound("kernel.terminate", fmt.Sprintf("process %d", pid))
	}
	return nil
}
