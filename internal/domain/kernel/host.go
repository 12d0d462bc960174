package kernel

import (
	"context"
	"fmt"
	"strings"

	"github.com/GriffinCanCode/WebDesk/internal/domain/catalog"
	"github.com/GriffinCanCode/WebDesk/internal/domain/events"
	"github.com/GriffinCanCode/WebDesk/internal/shared/errs"
	"github.com/GriffinCanCode/WebDesk/internal/shared/paths"
	"github.com/GriffinCanCode/WebDesk/internal/shared/types"
	"go.uber.org/zap"
)

// Notification levels
const (
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Translate looks key up in the loaded language pack and falls back to the
// key itself
func (k *Kernel) Translate(key string) string {
	return k.text(key, key)
}

func (k *Kernel) text(key, fallback string) string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if s, ok := k.messages[key]; ok && s != "" {
		return s
	}
	return fallback
}

// Locale returns the active locale
func (k *Kernel) Locale() string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.locale
}

// Notify posts a notification. Markup is stripped from title and message;
// unknown levels become info.
func (k *Kernel) Notify(title, message, level string) {
	switch level {
	case LevelInfo, LevelWarning, LevelError:
	default:
		level = LevelInfo
	}
	k.bus.Emit(events.NotificationPosted, events.Notification{
		Title:   catalog.SanitizeText(title),
		Message: catalog.SanitizeText(message),
		Level:   level,
	})
}

// HasPermission reports whether the current user holds permission
func (k *Kernel) HasPermission(permission string) bool {
	return k.security.HasPermission(permission)
}

// ReadFile returns the content at path, subject to the user's permissions
func (k *Kernel) ReadFile(ctx context.Context, path string) (string, error) {
	res, err := k.fs.ReadFile(ctx, path)
	if err != nil {
		return "", err
	}
	return res.Content, nil
}

// WriteFile stores content at path, subject to the user's permissions
func (k *Kernel) WriteFile(ctx context.Context, path, content string) error {
	_, err := k.fs.WriteFile(ctx, path, content)
	return err
}

// SourcePath is where a module entry's script lives: absolute entries are
// used as is, relative ones resolve under the application's data directory
func SourcePath(m *types.Manifest) (string, error) {
	entry := strings.TrimSpace(m.Entry)
	if strings.HasPrefix(entry, "/") {
		return paths.Normalize(entry)
	}
	dir := paths.AppData(m.ID)
	p, err := paths.Normalize(paths.Join(dir, entry))
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(p, dir+"/") {
		return "", fmt.Errorf("entry %q escapes %s", entry, dir)
	}
	return p, nil
}

// LoadSource implements process.SourceLoader. Application code is read by
// the kernel itself, so the user's filesystem permissions do not apply.
func (k *Kernel) LoadSource(ctx context.Context, m *types.Manifest) (string, error) {
	const op = "kernel.loadSource"
	p, err := SourcePath(m)
	if err != nil {
		return "", errs.Wrap(errs.KindValidation, op, err)
	}
	backend := k.fs.Backend()
	if backend == nil {
		return "", errs.New(errs.KindBackendUnavailable, op, "no storage backend installed")
	}

	res, err := backend.ReadFile(ctx, p)
	if err != nil {
		k.logger.Debug("Module source missing", zap.String("app_id", m.ID), zap.String("path", p), zap.Error(err))
		return "", err
	}
	return res.Content, nil
}
