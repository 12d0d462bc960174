package security

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/GriffinCanCode/WebDesk/internal/domain/events"
	"github.com/GriffinCanCode/WebDesk/internal/shared/errs"
	"go.uber.org/zap"
)

// AdminRole satisfies every permission
const AdminRole = "admin"

// User is the authenticated principal
type User struct {
	Username    string   `json:"username"`
	DisplayName string   `json:"displayName"`
	Role        string   `json:"role"`
	Roles       []string `json:"roles,omitempty"`
}

// HasRole reports whether role is the primary role or in the role set
func (u User) HasRole(role string) bool {
	if u.Role == role {
		return true
	}
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// LoginResult is what a successful login or session restore yields
type LoginResult struct {
	User        User     `json:"user"`
	Permissions []string `json:"permissions"`
	Token       string   `json:"token,omitempty"`
}

// AuditEntry records one denied permission check
type AuditEntry struct {
	Timestamp  time.Time `json:"timestamp"`
	Username   string    `json:"username,omitempty"`
	Permission string    `json:"permission"`
}

const auditCapacity = 128

// Manager holds the current user and granted permission set
type Manager struct {
	mu          sync.RWMutex
	user        *User               // Protected by mu
	roles       map[string]struct{} // Protected by mu
	permissions map[string]struct{} // Protected by mu
	denied      []AuditEntry        // Protected by mu, ring of recent denials

	logger *zap.Logger
}

// NewManager creates a manager with no user
func NewManager(logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		roles:       make(map[string]struct{}),
		permissions: make(map[string]struct{}),
		logger:      logger,
	}
}

// Attach keeps the manager in sync with auth:login and auth:logout
// notifications on bus
func (m *Manager) Attach(bus *events.Bus) []events.Subscription {
	login := bus.On(events.AuthLogin, func(ev events.Event) error {
		switch res := ev.Data.(type) {
		case LoginResult:
			m.HandleLogin(res)
		case *LoginResult:
			m.HandleLogin(*res)
		}
		return nil
	})
	logout := bus.On(events.AuthLogout, func(events.Event) error {
		m.HandleLogout()
		return nil
	})
	return []events.Subscription{login, logout}
}

// HandleLogin replaces the current user and permission set
func (m *Manager) HandleLogin(res LoginResult) {
	user := res.User
	user.Roles = append([]string(nil), res.User.Roles...)

	roles := make(map[string]struct{}, len(user.Roles)+1)
	if user.Role != "" {
		roles[user.Role] = struct{}{}
	}
	for _, r := range user.Roles {
		roles[r] = struct{}{}
	}

	perms := make(map[string]struct{}, len(res.Permissions))
	for _, p := range res.Permissions {
		if p = strings.TrimSpace(p); p != "" {
			perms[p] = struct{}{}
		}
	}

	m.mu.Lock()
	m.user = &user
	m.roles = roles
	m.permissions = perms
	m.mu.Unlock()

	m.logger.Info("User logged in",
		zap.String("username", user.Username),
		zap.String("role", user.Role),
		zap.Int("permissions", len(perms)))
}

// HandleLogout clears the user and permission set. Idempotent.
func (m *Manager) HandleLogout() {
	m.mu.Lock()
	prev := m.user
	m.user = nil
	m.roles = make(map[string]struct{})
	m.permissions = make(map[string]struct{})
	m.mu.Unlock()

	if prev != nil {
		m.logger.Info("User logged out", zap.String("username", prev.Username))
	}
}

// Authenticated reports whether a user is logged in
func (m *Manager) Authenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user != nil
}

// CurrentUser returns a copy of the current user
func (m *Manager) CurrentUser() (User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.user == nil {
		return User{}, false
	}
	u := *m.user
	u.Roles = append([]string(nil), m.user.Roles...)
	return u, true
}

// IsAdmin reports whether the current user holds the admin role
func (m *Manager) IsAdmin() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isAdmin()
}

func (m *Manager) isAdmin() bool {
	if m.user == nil {
		return false
	}
	_, ok := m.roles[AdminRole]
	return ok
}

// HasPermission resolves p against the granted set. An exact grant matches,
// as does "<prefix>.*" for any dot-segment prefix of p; admins match all.
func (m *Manager) HasPermission(p string) bool {
	m.mu.RLock()
	allowed := m.hasPermission(p)
	m.mu.RUnlock()

	if !allowed {
		m.recordDenial(p)
	}
	return allowed
}

func (m *Manager) hasPermission(p string) bool {
	if m.user == nil {
		return false
	}
	if m.isAdmin() {
		return true
	}
	if _, ok := m.permissions[p]; ok {
		return true
	}

	prefix := p
	for {
		i := strings.LastIndexByte(prefix, '.')
		if i <= 0 {
			return false
		}
		prefix = prefix[:i]
		if _, ok := m.permissions[prefix+".*"]; ok {
			return true
		}
	}
}

// Require returns a PermissionDenied error unless p is granted.
// With no user it returns AuthenticationRequired.
func (m *Manager) Require(p string) error {
	if !m.Authenticated() {
		return errs.New(errs.KindAuthenticationRequired, "security", "login required")
	}
	if !m.HasPermission(p) {
		return errs.PermissionDenied("security", p)
	}
	return nil
}

// Permissions returns the granted permissions, sorted
func (m *Manager) Permissions() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, 0, len(m.permissions))
	for p := range m.permissions {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Audit returns up to limit recent denials, newest first. limit <= 0 returns all.
func (m *Manager) Audit(limit int) []AuditEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := len(m.denied)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]AuditEntry, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, m.denied[i])
	}
	return out
}

func (m *Manager) recordDenial(p string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := AuditEntry{Timestamp: time.Now(), Permission: p}
	if m.user != nil {
		entry.Username = m.user.Username
	}
	m.denied = append(m.denied, entry)
	if len(m.denied) > auditCapacity {
		m.denied = m.denied[len(m.denied)-auditCapacity:]
	}

	m.logger.Debug("Permission denied",
		zap.String("permission", p),
		zap.String("username", entry.Username))
}
