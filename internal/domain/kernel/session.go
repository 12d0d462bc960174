package kernel

import (
	"context"

	"github.com/GriffinCanCode/WebDesk/internal/domain/events"
	"github.com/GriffinCanCode/WebDesk/internal/domain/security"
	"github.com/GriffinCanCode/WebDesk/internal/shared/errs"
	"go.uber.org/zap"
)

// Login authenticates against the auth service and opens the user's desktop
func (k *Kernel) Login(ctx context.Context, username, password string) (*security.User, error) {
	const op = "kernel.login"
	if err := k.requireRunning(op); err != nil {
		return nil, err
	}

	res, err := k.auth.Login(ctx, username, password)
	if err != nil {
		k.logger.Info("Login rejected", zap.String("username", username), zap.Error(err))
		return nil, err
	}
	if res.Token == "" {
		return nil, errs.New(errs.KindAuthenticationRequired, op, "auth service returned no token")
	}

	if _, err := k.sessions.Start(res.User.Username, res.Token); err != nil {
		k.logger.Warn("Failed to persist session", zap.Error(err))
	}
	k.mu.Lock()
	k.token = res.Token
	k.mu.Unlock()

	// security is attached to the bus and adopts the user from this event
	k.bus.Emit(events.AuthLogin, loginEvent(res))

	if err := k.fs.Init(ctx, res.User.Username); err != nil {
		k.logger.Warn("Failed to initialize user filesystem", zap.String("username", res.User.Username), zap.Error(err))
	}
	k.shell.ShowDesktop(res.User.Username)

	user := res.User
	return &user, nil
}

// Logout ends the session locally even when the auth service cannot be
// reached
func (k *Kernel) Logout(ctx context.Context) error {
	if err := k.requireRunning("kernel.logout"); err != nil {
		return err
	}
	k.logout(ctx)
	k.shell.ShowLogin()
	return nil
}

func (k *Kernel) logout(ctx context.Context) {
	k.mu.RLock()
	token := k.token
	k.mu.RUnlock()

	if token != "" {
		if err := k.auth.Logout(ctx, token); err != nil {
			k.logger.Warn("Remote logout failed", zap.Error(err))
		}
	}

	terminated := k.processes.TerminateAll()

	user, _ := k.security.CurrentUser()
	k.security.HandleLogout()

	k.mu.Lock()
	k.token = ""
	k.restored = false
	k.mu.Unlock()
	if err := k.sessions.Forget(); err != nil {
		k.logger.Warn("Failed to forget session", zap.Error(err))
	}

	k.bus.Emit(events.AuthLogout, events.Logout{Username: user.Username})
	k.logger.Info("Logged out", zap.String("username", user.Username), zap.Int("terminated", terminated))
}

// Shutdown stops every application, logs out and disconnects all services
func (k *Kernel) Shutdown(ctx context.Context, reason string) error {
	if err := k.transition(StatusShuttingDown, nil); err != nil {
		return err
	}
	k.logger.Info("Shutting down", zap.String("reason", reason))

	k.processes.TerminateAll()
	if k.security.Authenticated() {
		k.logout(ctx)
	}
	k.services.DisconnectAll()
	k.cancel()
	k.shell.Close()

	if err := k.transition(StatusShutdown, nil); err != nil {
		return err
	}
	k.bus.Emit(events.SystemShutdown, events.Shutdown{Reason: reason})
	return nil
}

// loginEvent is the auth:login payload. The token stays in the kernel since
// every bus event reaches the inspector stream.
func loginEvent(res *security.LoginResult) security.LoginResult {
	ev := *res
	ev.Token = ""
	ev.Permissions = append([]string(nil), res.Permissions...)
	return ev
}

// persistWorkspace keeps the saved session in step with open applications
// so a restarted host can relaunch them
func (k *Kernel) persistWorkspace(events.Event) error {
	k.mu.RLock()
	active := k.token != "" && k.state.Status == StatusRunning
	k.mu.RUnlock()
	if !active {
		return nil
	}
	return k.sessions.SaveWorkspace(k.processes)
}

func (k *Kernel) restoreWorkspace(ctx context.Context) {
	n, err := k.sessions.RestoreWorkspace(ctx, func(ctx context.Context, appID string, params map[string]interface{}) error {
		_, err := k.LaunchApplication(ctx, appID, params)
		return err
	})
	if err != nil {
		k.logger.Warn("Workspace restore failed", zap.Error(err))
		return
	}
	k.logger.Info("Workspace restored", zap.Int("applications", n))
}
