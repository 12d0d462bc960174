package ui

import (
	"sync"

	"github.com/GriffinCanCode/WebDesk/internal/domain/events"
	"go.uber.org/zap"
)

// Screen is what the shell currently shows
type Screen string

const (
	ScreenBoot    Screen = "boot"
	ScreenLogin   Screen = "login"
	ScreenDesktop Screen = "desktop"
	ScreenError   Screen = "error"
	ScreenOff     Screen = "off"
)

// Shell is the presentation layer driven by the kernel
type Shell interface {
	Init() error
	Progress(percent int, stage string)
	ShowLogin()
	ShowDesktop(username string)
	ShowError(message, detail string)
	Notify(n events.Notification)
	Close()
}

// Headless is a Shell that logs instead of drawing. It remembers what it
// was asked to show so hosts and tests can inspect it.
type Headless struct {
	logger *zap.Logger

	mu            sync.RWMutex
	screen        Screen                // Protected by mu
	progress      int                   // Protected by mu
	user          string                // Protected by mu
	lastError     string                // Protected by mu
	notifications []events.Notification // Protected by mu
	maxHistory    int
}

// NewHeadless creates a headless shell
func NewHeadless(logger *zap.Logger) *Headless {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Headless{logger: logger, screen: ScreenBoot, maxHistory: 100}
}

// Init implements Shell
func (h *Headless) Init() error {
	h.logger.Debug("Headless shell ready")
	return nil
}

// Progress implements Shell
func (h *Headless) Progress(percent int, stage string) {
	h.mu.Lock()
	h.progress = percent
	h.mu.Unlock()
	h.logger.Info("Boot progress", zap.Int("percent", percent), zap.String("stage", stage))
}

// ShowLogin implements Shell
func (h *Headless) ShowLogin() {
	h.mu.Lock()
	h.screen = ScreenLogin
	h.user = ""
	h.mu.Unlock()
	h.logger.Info("Showing login")
}

// ShowDesktop implements Shell
func (h *Headless) ShowDesktop(username string) {
	h.mu.Lock()
	h.screen = ScreenDesktop
	h.user = username
	h.mu.Unlock()
	h.logger.Info("Showing desktop", zap.String("username", username))
}

// ShowError implements Shell. detail is empty outside debug mode.
func (h *Headless) ShowError(message, detail string) {
	h.mu.Lock()
	h.screen = ScreenError
	h.lastError = message
	h.mu.Unlock()

	fields := []zap.Field{zap.String("message", message)}
	if detail != "" {
		fields = append(fields, zap.String("detail", detail))
	}
	h.logger.Error("Showing error", fields...)
}

// Notify implements Shell
func (h *Headless) Notify(n events.Notification) {
	h.mu.Lock()
	h.notifications = append(h.notifications, n)
	if len(h.notifications) > h.maxHistory {
		h.notifications = h.notifications[len(h.notifications)-h.maxHistory:]
	}
	h.mu.Unlock()

	h.logger.Info("Notification",
		zap.String("title", n.Title),
		zap.String("message", n.Message),
		zap.String("level", n.Level))
}

// Close implements Shell
func (h *Headless) Close() {
	h.mu.Lock()
	h.screen = ScreenOff
	h.mu.Unlock()
}

// Screen returns the current screen
func (h *Headless) Screen() Screen {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.screen
}

// User returns the user shown on the desktop
func (h *Headless) User() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.user
}

// LastProgress returns the last boot percentage shown
func (h *Headless) LastProgress() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.progress
}

// LastError returns the last error message shown
func (h *Headless) LastError() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lastError
}

// Notifications returns recent notifications, oldest first
func (h *Headless) Notifications() []events.Notification {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]events.Notification(nil), h.notifications...)
}
