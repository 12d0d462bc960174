package process

import (
	"context"
	"sync"
	"testing"

	"github.com/GriffinCanCode/WebDesk/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/WebDesk/internal/infrastructure/sandbox"
	"github.com/GriffinCanCode/WebDesk/internal/shared/errs"
	"github.com/GriffinCanCode/WebDesk/internal/shared/types"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHost struct {
	mu      sync.Mutex
	notes   []string
	files   map[string]string
	granted map[string]bool
}

func newFakeHost() *fakeHost {
	return &fakeHost{files: map[string]string{}, granted: map[string]bool{}}
}

func (h *fakeHost) Notify(title, message, level string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.notes = append(h.notes, title+": "+message)
}

func (h *fakeHost) Translate(key string) string { return "t:" + key }

func (h *fakeHost) HasPermission(p string) bool { return h.granted[p] }

func (h *fakeHost) ReadFile(_ context.Context, path string) (string, error) {
	if c, ok := h.files[path]; ok {
		return c, nil
	}
	return "", errs.NotFound("readFile", path)
}

func (h *fakeHost) WriteFile(_ context.Context, path, content string) error {
	h.files[path] = content
	return nil
}

type mapLoader map[string]string

func (l mapLoader) LoadSource(_ context.Context, m *types.Manifest) (string, error) {
	if src, ok := l[m.Entry]; ok {
		return src, nil
	}
	return "", errs.NotFound("loadSource", m.Entry)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("notepad", func() Application { return AppFuncs{} }))
	require.NoError(t, r.Register("clock", func() Application { return AppFuncs{} }))

	assert.ErrorIs(t, r.Register("notepad", func() Application { return AppFuncs{} }), errs.ErrInvariantViolation)
	assert.ErrorIs(t, r.Register("", nil), errs.ErrValidation)
	assert.Equal(t, []string{"clock", "notepad"}, r.Names())

	_, ok := r.Lookup("clock")
	assert.True(t, ok)
	_, ok = r.Lookup("missing")
	assert.False(t, ok)
}

func TestResolveBuiltin(t *testing.T) {
	r := NewRegistry()
	inits := 0
	require.NoError(t, r.Register("notepad", func() Application {
		return AppFuncs{OnInit: func(*AppContext) error { inits++; return nil }}
	}))
	res := NewResolver(r, nil, sandbox.DefaultConfig(), nil)

	app, err := res.Resolve(context.Background(), &types.Manifest{ID: "notepad", Entry: "builtin:notepad"})
	require.NoError(t, err)
	require.NoError(t, app.Init(&AppContext{Context: context.Background()}))
	assert.Equal(t, 1, inits)

	_, err = res.Resolve(context.Background(), &types.Manifest{ID: "ghost", Entry: "ghost"})
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestResolveModuleWithoutLoader(t *testing.T) {
	res := NewResolver(nil, nil, sandbox.DefaultConfig(), nil)
	_, err := res.Resolve(context.Background(), &types.Manifest{ID: "m", Entry: "main.js"})
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestModuleLifecycleThroughBridge(t *testing.T) {
	src := `
		module.exports = {
			init: function (params) {
				app.setTitle(app.translate("title"));
				app.writeFile("/apps/clock/state.txt", "started " + params.zone);
				app.notify("Clock", app.readFile("/apps/clock/state.txt"));
			},
			terminate: function () {
				app.writeFile("/apps/clock/state.txt", "stopped");
			}
		};
	`
	res := NewResolver(nil, mapLoader{"main.js": src}, sandbox.DefaultConfig(), nil)
	m, _ := newManager(t)
	host := newFakeHost()
	mf := &types.Manifest{ID: "clock", Title: "Clock", Entry: "main.js"}

	p, err := m.CreateProcess("clock", mf, map[string]interface{}{"zone": "UTC"})
	require.NoError(t, err)

	app, err := res.Resolve(context.Background(), mf)
	require.NoError(t, err)
	require.NoError(t, app.Init(&AppContext{
		Context:  context.Background(),
		PID:      p.PID,
		WindowID: p.WindowID,
		Manifest: mf,
		Params:   p.Params,
		Host:     host,
		Windows:  m,
	}))
	require.NoError(t, m.Attach(p.PID, app))

	w, _ := m.Window(p.WindowID)
	assert.Equal(t, "t:title", w.Title)
	assert.Equal(t, []string{"Clock: started UTC"}, host.notes)

	require.True(t, m.TerminateProcess(p.PID))
	assert.Equal(t, "stopped", host.files["/apps/clock/state.txt"])
}

func TestModuleHostErrorsThrow(t *testing.T) {
	src := `function init() { app.readFile("/missing"); }`
	res := NewResolver(nil, mapLoader{"/apps/x/main.js": src}, sandbox.DefaultConfig(), nil)
	mf := &types.Manifest{ID: "x", Title: "X", Entry: "/apps/x/main.js"}

	app, err := res.Resolve(context.Background(), mf)
	require.NoError(t, err)
	err = app.Init(&AppContext{Context: context.Background(), Manifest: mf, Host: newFakeHost()})
	assert.Error(t, err)
}

func TestModuleCallsAreTimed(t *testing.T) {
	src := `module.exports = { init: function () {}, terminate: function () {} };`
	metrics := monitoring.NewMetrics()
	res := NewResolver(nil, mapLoader{"main.js": src}, sandbox.DefaultConfig(), nil).WithMetrics(metrics)
	mf := &types.Manifest{ID: "timed", Title: "Timed", Entry: "main.js"}

	app, err := res.Resolve(context.Background(), mf)
	require.NoError(t, err)
	require.NoError(t, app.Init(&AppContext{Context: context.Background(), Manifest: mf}))
	app.Terminate()

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RPCCalls.WithLabelValues(SandboxService, "init", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RPCCalls.WithLabelValues(SandboxService, "terminate", "ok")))
	assert.EqualValues(t, 2, metrics.Snapshot().RPCCalls)
}

func TestModuleMissingSource(t *testing.T) {
	res := NewResolver(nil, mapLoader{}, sandbox.DefaultConfig(), nil)
	_, err := res.Resolve(context.Background(), &types.Manifest{ID: "x", Entry: "gone.js"})
	assert.ErrorIs(t, err, errs.ErrNotFound)
}
