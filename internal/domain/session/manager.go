package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/GriffinCanCode/WebDesk/internal/domain/process"
	"github.com/GriffinCanCode/WebDesk/internal/infrastructure/storage"
	"github.com/GriffinCanCode/WebDesk/internal/shared/errs"
	"github.com/GriffinCanCode/WebDesk/internal/shared/id"
	"go.uber.org/zap"
)

// Record is the persisted session: the auth token used for restoration and
// the workspace open at the last save
type Record struct {
	ID        id.SessionID `json:"id"`
	Username  string       `json:"username"`
	Token     string       `json:"token"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
	Workspace *Workspace   `json:"workspace,omitempty"`
}

// Workspace captures open applications in launch order
type Workspace struct {
	Apps      []AppSnapshot `json:"apps"`
	FocusedID string        `json:"focusedAppId,omitempty"`
}

// AppSnapshot is enough to relaunch one application
type AppSnapshot struct {
	AppID  string                 `json:"appId"`
	Params map[string]interface{} `json:"params,omitempty"`
	Title  string                 `json:"title,omitempty"`
}

// AppManager is the process table a workspace is captured from
type AppManager interface {
	List() []*process.Process
	Window(wid id.WindowID) (*process.Window, bool)
	ActiveWindow() (id.WindowID, bool)
}

// Launcher relaunches a captured application
type Launcher func(ctx context.Context, appID string, params map[string]interface{}) error

// Manager persists the session record under storage.KeySession
type Manager struct {
	store  storage.Store
	now    func() time.Time
	logger *zap.Logger

	mu           sync.RWMutex
	lastSaved    *time.Time // Protected by mu
	lastRestored *time.Time // Protected by mu
}

// NewManager creates a session manager over store
func NewManager(store storage.Store, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{store: store, now: time.Now, logger: logger}
}

// Start records a fresh session for a login, replacing any previous one
func (m *Manager) Start(username, token string) (*Record, error) {
	const op = "session.start"
	if username == "" || token == "" {
		return nil, errs.Validation(op, "session needs a username and token")
	}

	now := m.now()
	rec := &Record{
		ID:        id.NewSessionID(),
		Username:  username,
		Token:     token,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.write(rec); err != nil {
		return nil, err
	}
	m.logger.Info("Session started", zap.String("session_id", rec.ID.String()), zap.String("username", username))
	return rec, nil
}

// Load returns the persisted record. A missing record is NotFound.
func (m *Manager) Load() (*Record, error) {
	var rec Record
	ok, err := storage.LoadJSON(m.store, storage.KeySession, &rec)
	if err != nil {
		return nil, err
	}
	if !ok || rec.Token == "" {
		return nil, errs.NotFound("session.load", "saved session")
	}
	return &rec, nil
}

// Token returns the persisted token, or "" when there is none
func (m *Manager) Token() string {
	rec, err := m.Load()
	if err != nil {
		return ""
	}
	return rec.Token
}

// Forget removes the persisted record
func (m *Manager) Forget() error {
	if err := m.store.Delete(storage.KeySession); err != nil {
		return err
	}
	m.logger.Debug("Session forgotten")
	return nil
}

// Capture snapshots the open applications of apps
func Capture(apps AppManager) *Workspace {
	procs := apps.List()
	ws := &Workspace{Apps: make([]AppSnapshot, 0, len(procs))}

	active, hasActive := apps.ActiveWindow()
	for _, p := range procs {
		if p.Status == process.StatusTerminating || p.Status == process.StatusTerminated {
			continue
		}
		snap := AppSnapshot{AppID: p.AppID, Params: p.Params}
		if w, ok := apps.Window(p.WindowID); ok {
			snap.Title = w.Title
		}
		ws.Apps = append(ws.Apps, snap)
		if hasActive && p.WindowID == active {
			ws.FocusedID = p.AppID
		}
	}
	return ws
}

// SaveWorkspace stores the current workspace in the persisted record
func (m *Manager) SaveWorkspace(apps AppManager) error {
	rec, err := m.Load()
	if err != nil {
		return fmt.Errorf("failed to save workspace: %w", err)
	}

	rec.Workspace = Capture(apps)
	rec.UpdatedAt = m.now()
	if err := m.write(rec); err != nil {
		return err
	}

	now := rec.UpdatedAt
	m.mu.Lock()
	m.lastSaved = &now
	m.mu.Unlock()

	m.logger.Info("Workspace saved", zap.Int("apps", len(rec.Workspace.Apps)))
	return nil
}

// RestoreWorkspace relaunches the saved applications in order and returns
// how many came back. A failing launch is logged and skipped.
func (m *Manager) RestoreWorkspace(ctx context.Context, launch Launcher) (int, error) {
	rec, err := m.Load()
	if err != nil {
		return 0, err
	}
	if rec.Workspace == nil {
		return 0, nil
	}

	restored := 0
	for _, snap := range rec.Workspace.Apps {
		if err := ctx.Err(); err != nil {
			return restored, errs.Wrap(errs.KindTimeout, "session.restore", err)
		}
		if err := launch(ctx, snap.AppID, snap.Params); err != nil {
			m.logger.Warn("Failed to restore application",
				zap.String("app_id", snap.AppID),
				zap.Error(err))
			continue
		}
		restored++
	}

	now := m.now()
	m.mu.Lock()
	m.lastRestored = &now
	m.mu.Unlock()

	m.logger.Info("Workspace restored", zap.Int("restored", restored), zap.Int("saved", len(rec.Workspace.Apps)))
	return restored, nil
}

// Stats returns session statistics
func (m *Manager) Stats() map[string]interface{} {
	m.mu.RLock()
	lastSaved := m.lastSaved
	lastRestored := m.lastRestored
	m.mu.RUnlock()

	stats := map[string]interface{}{"active": false}
	if rec, err := m.Load(); err == nil {
		stats["active"] = true
		stats["session_id"] = rec.ID.String()
		stats["username"] = rec.Username
	}
	if lastSaved != nil {
		stats["last_saved"] = *lastSaved
	}
	if lastRestored != nil {
		stats["last_restored"] = *lastRestored
	}
	return stats
}

func (m *Manager) write(rec *Record) error {
	if err := storage.SaveJSON(m.store, storage.KeySession, rec); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}
