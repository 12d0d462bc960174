package security

import (
	"testing"

	"github.com/GriffinCanCode/WebDesk/internal/domain/events"
	"github.com/GriffinCanCode/WebDesk/internal/shared/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func login(m *Manager, role string, perms ...string) {
	m.HandleLogin(LoginResult{
		User:        User{Username: "alice", DisplayName: "Alice", Role: role},
		Permissions: perms,
	})
}

func TestHasPermission(t *testing.T) {
	tests := []struct {
		name   string
		role   string
		grants []string
		check  string
		want   bool
	}{
		{"exact match", "user", []string{"app.launch.foo"}, "app.launch.foo", true},
		{"wildcard match", "user", []string{"app.launch.*"}, "app.launch.foo", true},
		{"parent wildcard", "user", []string{"app.*"}, "app.launch.foo", true},
		{"admin bypass", "admin", nil, "app.launch.foo", true},
		{"negative", "user", []string{"app.launch.bar"}, "app.launch.foo", false},
		{"sibling wildcard", "user", []string{"filesystem.read.*"}, "filesystem.write.*", false},
		{"wildcard satisfies wildcard", "user", []string{"filesystem.*"}, "filesystem.write.*", true},
		{"no bare wildcard walk", "user", []string{"*"}, "app.launch.foo", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager(nil)
			login(m, tt.role, tt.grants...)
			assert.Equal(t, tt.want, m.HasPermission(tt.check))
		})
	}
}

func TestNoUserHasNoPermissions(t *testing.T) {
	m := NewManager(nil)
	assert.False(t, m.HasPermission("app.launch.foo"))
	assert.False(t, m.IsAdmin())
	assert.False(t, m.Authenticated())

	err := m.Require("app.launch.foo")
	assert.ErrorIs(t, err, errs.ErrAuthenticationRequired)
}

func TestAdminFromRoleSet(t *testing.T) {
	m := NewManager(nil)
	m.HandleLogin(LoginResult{User: User{Username: "root", Role: "user", Roles: []string{"developer", "admin"}}})
	assert.True(t, m.IsAdmin())
	assert.True(t, m.HasPermission("anything.at.all"))
}

func TestRequire(t *testing.T) {
	m := NewManager(nil)
	login(m, "user", "filesystem.read.*")

	assert.NoError(t, m.Require("filesystem.read.*"))

	err := m.Require("filesystem.write.*")
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrPermissionDenied)
	assert.Contains(t, err.Error(), "filesystem.write.*")
}

func TestHandleLogoutIsIdempotent(t *testing.T) {
	m := NewManager(nil)
	login(m, "admin", "app.*")

	m.HandleLogout()
	m.HandleLogout()

	assert.False(t, m.Authenticated())
	assert.False(t, m.IsAdmin())
	assert.Empty(t, m.Permissions())
	_, ok := m.CurrentUser()
	assert.False(t, ok)
}

func TestLoginReplacesPreviousGrants(t *testing.T) {
	m := NewManager(nil)
	login(m, "user", "app.launch.a")
	login(m, "user", "app.launch.b", " ", "app.launch.b")

	assert.Equal(t, []string{"app.launch.b"}, m.Permissions())
	assert.False(t, m.HasPermission("app.launch.a"))
}

func TestCurrentUserIsACopy(t *testing.T) {
	m := NewManager(nil)
	m.HandleLogin(LoginResult{User: User{Username: "alice", Roles: []string{"dev"}}})

	u, ok := m.CurrentUser()
	require.True(t, ok)
	u.Roles[0] = "admin"
	assert.False(t, m.IsAdmin())
}

func TestAttachFollowsBus(t *testing.T) {
	bus := events.NewBus(nil)
	m := NewManager(nil)
	subs := m.Attach(bus)
	require.Len(t, subs, 2)

	bus.Emit(events.AuthLogin, LoginResult{User: User{Username: "bob", Role: "user"}, Permissions: []string{"app.*"}})
	assert.True(t, m.HasPermission("app.launch.x"))

	bus.Emit(events.AuthLogout, events.Logout{Username: "bob"})
	assert.False(t, m.Authenticated())
}

func TestAuditRecordsDenials(t *testing.T) {
	m := NewManager(nil)
	login(m, "user")

	m.HasPermission("a.b")
	m.HasPermission("c.d")

	audit := m.Audit(0)
	require.Len(t, audit, 2)
	assert.Equal(t, "c.d", audit[0].Permission)
	assert.Equal(t, "alice", audit[0].Username)
	assert.Len(t, m.Audit(1), 1)

	for i := 0; i < auditCapacity+10; i++ {
		m.HasPermission("x.y")
	}
	assert.Len(t, m.Audit(0), auditCapacity)
}
