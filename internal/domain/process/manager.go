package process

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/GriffinCanCode/WebDesk/internal/domain/events"
	"github.com/GriffinCanCode/WebDesk/internal/infrastructure/config"
	"github.com/GriffinCanCode/WebDesk/internal/shared/errs"
	"github.com/GriffinCanCode/WebDesk/internal/shared/id"
	"github.com/GriffinCanCode/WebDesk/internal/shared/types"
	"go.uber.org/zap"
)

// Window cascade for newly opened windows
const (
	cascadeOrigin = 40
	cascadeStep   = 30
	cascadeSlots  = 8
)

// Publisher receives lifecycle events
type Publisher interface {
	Emit(name events.Name, data interface{})
}

// Observer is told the live process count after every change
type Observer interface {
	ObserveProcessCount(n int)
}

type emission struct {
	name events.Name
	data interface{}
}

// gesture is an in-progress drag or resize
type gesture struct {
	window id.WindowID
	mode   Target
	startX int
	startY int
	origin Frame
}

// Manager owns the process table, the window table, z-order and the taskbar
type Manager struct {
	mu        sync.RWMutex
	processes map[int]*Process        // Protected by mu
	windows   map[id.WindowID]*Window // Protected by mu
	apps      map[int]Application     // Protected by mu
	taskbar   []id.WindowID           // Protected by mu, open order
	active    id.WindowID             // Protected by mu
	nextPID   int                     // Protected by mu
	zCounter  int                     // Protected by mu
	gesture   *gesture                // Protected by mu

	workspace config.WorkspaceConfig
	bus       Publisher
	observer  Observer
	logger    *zap.Logger
}

// NewManager creates a process manager for a workspace
func NewManager(workspace config.WorkspaceConfig, bus Publisher, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		processes: make(map[int]*Process),
		windows:   make(map[id.WindowID]*Window),
		apps:      make(map[int]Application),
		workspace: workspace,
		bus:       bus,
		logger:    logger,
	}
}

// WithObserver adds process count tracking to the manager
func (m *Manager) WithObserver(o Observer) *Manager {
	m.observer = o
	return m
}

// CreateProcess allocates the next pid and opens its window with a loading
// placeholder. The new window is raised and becomes the active taskbar entry.
func (m *Manager) CreateProcess(appID string, manifest *types.Manifest, params map[string]interface{}) (*Process, error) {
	const op = "process.create"
	if appID == "" {
		return nil, errs.Validation(op, "application id is required")
	}
	if manifest == nil {
		return nil, errs.Validation(op, "manifest is required for "+appID)
	}

	m.mu.Lock()
	m.nextPID++
	pid := m.nextPID
	m.zCounter++

	size := m.initialSize(manifest)
	w := &Window{
		ID:        id.NewWindowID(),
		PID:       pid,
		Title:     manifest.DisplayTitle(),
		Icon:      manifest.Icon,
		Position:  m.cascade(len(m.windows)),
		Size:      size,
		ZIndex:    m.zCounter,
		State:     WindowNormal,
		Resizable: manifest.Resizable(),
		Content:   ContentLoading,
	}
	p := &Process{
		PID:       pid,
		AppID:     appID,
		WindowID:  w.ID,
		StartTime: time.Now(),
		Status:    StatusStarting,
		Params:    params,
		Manifest:  manifest,
	}

	m.processes[pid] = p
	m.windows[w.ID] = w
	m.taskbar = append(m.taskbar, w.ID)
	m.active = w.ID
	count := len(m.processes)
	out := p.clone()
	m.mu.Unlock()

	m.observe(count)
	m.logger.Info("Process created",
		zap.Int("pid", pid),
		zap.String("app_id", appID),
		zap.String("window_id", w.ID.String()))
	return out, nil
}

// Attach binds a started application to its process and marks it running
func (m *Manager) Attach(pid int, app Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.processes[pid]
	if !ok {
		return errs.NotFound("process.attach", fmt.Sprintf("process %d", pid))
	}
	if app != nil {
		m.apps[pid] = app
	}
	p.Status = StatusRunning
	if w, ok := m.windows[p.WindowID]; ok {
		w.Content = ContentReady
	}
	return nil
}

// TerminateProcess tears down pid: its window and taskbar entry are removed,
// it is marked terminated and dropped from the table, application:terminated
// is emitted and finally the application's Terminate hook runs. It returns
// false when pid is not live.
func (m *Manager) TerminateProcess(pid int) bool {
	m.mu.Lock()
	p, ok := m.processes[pid]
	if !ok {
		m.mu.Unlock()
		return false
	}
	p.Status = StatusTerminating
	app := m.apps[pid]

	delete(m.windows, p.WindowID)
	m.removeTaskbar(p.WindowID)
	if m.active == p.WindowID {
		m.active = ""
	}
	if m.gesture != nil && m.gesture.window == p.WindowID {
		m.gesture = nil
	}

	p.Status = StatusTerminated
	delete(m.processes, pid)
	delete(m.apps, pid)
	count := len(m.processes)
	m.mu.Unlock()

	m.observe(count)
	m.emit(emission{events.ApplicationTerminated, events.Terminated{PID: pid, AppID: p.AppID}})
	if app != nil {
		m.terminateHook(p, app)
	}

	m.logger.Info("Process terminated", zap.Int("pid", pid), zap.String("app_id", p.AppID))
	return true
}

// TerminateAll terminates every live process in pid order and returns how
// many were terminated
func (m *Manager) TerminateAll() int {
	m.mu.RLock()
	pids := make([]int, 0, len(m.processes))
	for pid := range m.processes {
		pids = append(pids, pid)
	}
	m.mu.RUnlock()
	sort.Ints(pids)

	n := 0
	for _, pid := range pids {
		if m.TerminateProcess(pid) {
			n++
		}
	}
	return n
}

func (m *Manager) terminateHook(p *Process, app Application) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("Application terminate hook panicked",
				zap.Int("pid", p.PID),
				zap.String("app_id", p.AppID),
				zap.Any("panic", r))
		}
	}()
	app.Terminate()
}

// Minimize moves a window to minimized from any state
func (m *Manager) Minimize(wid id.WindowID) error {
	m.mu.Lock()
	w, err := m.windowLocked("window.minimize", wid)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	var out []emission
	if w.State != WindowMinimized {
		out = append(out, m.setState(w, WindowMinimized))
		if m.active == wid {
			m.active = ""
		}
		m.cancelGesture(wid)
	}
	m.mu.Unlock()
	m.emit(out...)
	return nil
}

// Restore returns a minimized window to normal. Other states are left alone.
func (m *Manager) Restore(wid id.WindowID) error {
	m.mu.Lock()
	w, err := m.windowLocked("window.restore", wid)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	var out []emission
	if w.State == WindowMinimized {
		out = append(out, m.restoreLocked(w))
	}
	m.mu.Unlock()
	m.emit(out...)
	return nil
}

// ToggleMaximize switches between normal and maximized. A minimized window
// must be restored first.
func (m *Manager) ToggleMaximize(wid id.WindowID) error {
	const op = "window.toggleMaximize"

	m.mu.Lock()
	w, err := m.windowLocked(op, wid)
	if err != nil {
		m.mu.Unlock()
		return err
	}

	var out []emission
	switch w.State {
	case WindowNormal:
		frame := w.Frame()
		w.normal = &frame
		w.Position = Position{}
		w.Size = Size{Width: m.workspace.Width, Height: m.workspace.Height}
		out = append(out, m.setState(w, WindowMaximized))
	case WindowMaximized:
		m.restoreFrame(w)
		out = append(out, m.setState(w, WindowNormal))
	default:
		m.mu.Unlock()
		return errs.Invariant(op, fmt.Sprintf("window %s is minimized", wid))
	}
	m.cancelGesture(wid)
	m.mu.Unlock()
	m.emit(out...)
	return nil
}

// Close terminates the window's process
func (m *Manager) Close(wid id.WindowID) bool {
	m.mu.RLock()
	w, ok := m.windows[wid]
	pid := 0
	if ok {
		pid = w.PID
	}
	m.mu.RUnlock()
	if !ok {
		return false
	}
	return m.TerminateProcess(pid)
}

// Activate raises a window to the top of the z-order and marks its taskbar
// entry active. A minimized window is restored first.
func (m *Manager) Activate(wid id.WindowID) error {
	m.mu.Lock()
	w, err := m.windowLocked("window.activate", wid)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	out := m.activateLocked(w)
	m.mu.Unlock()
	m.emit(out...)
	return nil
}

// SetTitle renames a window and its taskbar entry
func (m *Manager) SetTitle(wid id.WindowID, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, err := m.windowLocked("window.setTitle", wid)
	if err != nil {
		return err
	}
	w.Title = title
	return nil
}

// PointerDown starts a drag on the header or a resize on the resize handle.
// The window is activated either way. It reports whether a gesture began:
// drags are refused while maximized, resizes also when not resizable.
func (m *Manager) PointerDown(wid id.WindowID, target Target, x, y int) (bool, error) {
	m.mu.Lock()
	w, err := m.windowLocked("window.pointerDown", wid)
	if err != nil {
		m.mu.Unlock()
		return false, err
	}

	out := m.activateLocked(w)
	started := false
	switch target {
	case TargetHeader:
		started = w.State != WindowMaximized
	case TargetResize:
		started = w.State != WindowMaximized && w.Resizable
	}
	if started {
		m.gesture = &gesture{window: wid, mode: target, startX: x, startY: y, origin: w.Frame()}
	} else {
		m.gesture = nil
	}
	m.mu.Unlock()

	m.emit(out...)
	return started, nil
}

// PointerMove applies the in-progress gesture. Drags keep the top-left within
// [0, workspace - visible margin]; resizes keep the size at or above the
// minimum. It returns the new frame and false when no gesture is active.
func (m *Manager) PointerMove(x, y int) (Frame, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g := m.gesture
	if g == nil {
		return Frame{}, false
	}
	w, ok := m.windows[g.window]
	if !ok {
		m.gesture = nil
		return Frame{}, false
	}

	dx, dy := x-g.startX, y-g.startY
	switch g.mode {
	case TargetHeader:
		w.Position = Position{
			X: clamp(g.origin.X+dx, 0, m.workspace.Width-m.workspace.VisibleMargin),
			Y: clamp(g.origin.Y+dy, 0, m.workspace.Height-m.workspace.VisibleMargin),
		}
	case TargetResize:
		w.Size = Size{
			Width:  max(g.origin.Width+dx, m.workspace.MinWidth),
			Height: max(g.origin.Height+dy, m.workspace.MinHeight),
		}
	}
	return w.Frame(), true
}

// PointerUp ends the gesture and reports whether one was active
func (m *Manager) PointerUp() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	active := m.gesture != nil
	m.gesture = nil
	return active
}

// Get returns a copy of the process
func (m *Manager) Get(pid int) (*Process, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.processes[pid]
	if !ok {
		return nil, false
	}
	return p.clone(), true
}

// List returns copies of all live processes in pid order
func (m *Manager) List() []*Process {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Process, 0, len(m.processes))
	for _, p := range m.processes {
		out = append(out, p.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PID < out[j].PID })
	return out
}

// FindByApp returns the live processes of an application
func (m *Manager) FindByApp(appID string) []*Process {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Process
	for _, p := range m.processes {
		if p.AppID == appID {
			out = append(out, p.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PID < out[j].PID })
	return out
}

// Window returns a copy of the window
func (m *Manager) Window(wid id.WindowID) (*Window, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	w, ok := m.windows[wid]
	if !ok {
		return nil, false
	}
	return w.clone(), true
}

// Windows returns copies of all windows, bottom of the stack first
func (m *Manager) Windows() []*Window {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Window, 0, len(m.windows))
	for _, w := range m.windows {
		out = append(out, w.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ZIndex < out[j].ZIndex })
	return out
}

// Taskbar returns the taskbar in open order. At most one entry is active.
func (m *Manager) Taskbar() []TaskbarEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]TaskbarEntry, 0, len(m.taskbar))
	for _, wid := range m.taskbar {
		w, ok := m.windows[wid]
		if !ok {
			continue
		}
		out = append(out, TaskbarEntry{
			WindowID: wid,
			PID:      w.PID,
			Title:    w.Title,
			Icon:     w.Icon,
			Active:   wid == m.active,
		})
	}
	return out
}

// ActiveWindow returns the active window id
func (m *Manager) ActiveWindow() (id.WindowID, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active, m.active != ""
}

// Count returns the number of live processes
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.processes)
}

// Stats returns manager statistics
func (m *Manager) Stats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byStatus := map[Status]int{}
	for _, p := range m.processes {
		byStatus[p.Status]++
	}
	byState := map[WindowState]int{}
	for _, w := range m.windows {
		byState[w.State]++
	}

	return map[string]interface{}{
		"processes":     len(m.processes),
		"starting":      byStatus[StatusStarting],
		"running":       byStatus[StatusRunning],
		"windows":       len(m.windows),
		"minimized":     byState[WindowMinimized],
		"maximized":     byState[WindowMaximized],
		"active_window": string(m.active),
		"last_pid":      m.nextPID,
		"z_counter":     m.zCounter,
	}
}

// windowLocked looks up a window. Caller holds mu.
func (m *Manager) windowLocked(op string, wid id.WindowID) (*Window, error) {
	w, ok := m.windows[wid]
	if !ok {
		return nil, errs.NotFound(op, "window "+wid.String())
	}
	return w, nil
}

// activateLocked raises w. Caller holds mu.
func (m *Manager) activateLocked(w *Window) []emission {
	var out []emission
	if w.State == WindowMinimized {
		out = append(out, m.restoreLocked(w))
	}
	m.zCounter++
	w.ZIndex = m.zCounter
	m.active = w.ID
	return append(out, emission{events.WindowActivated, events.WindowActivation{
		WindowID: w.ID.String(),
		PID:      w.PID,
		ZIndex:   w.ZIndex,
	}})
}

// restoreLocked moves a minimized window to normal. Caller holds mu.
func (m *Manager) restoreLocked(w *Window) emission {
	m.restoreFrame(w)
	return m.setState(w, WindowNormal)
}

// restoreFrame puts back the frame saved when maximizing
func (m *Manager) restoreFrame(w *Window) {
	if w.normal != nil {
		w.Position = w.normal.Position
		w.Size = w.normal.Size
		w.normal = nil
	}
}

func (m *Manager) setState(w *Window, to WindowState) emission {
	from := w.State
	w.State = to
	return emission{events.WindowStateChanged, events.WindowTransition{
		WindowID: w.ID.String(),
		From:     string(from),
		To:       string(to),
	}}
}

func (m *Manager) cancelGesture(wid id.WindowID) {
	if m.gesture != nil && m.gesture.window == wid {
		m.gesture = nil
	}
}

func (m *Manager) removeTaskbar(wid id.WindowID) {
	for i, t := range m.taskbar {
		if t == wid {
			m.taskbar = append(m.taskbar[:i], m.taskbar[i+1:]...)
			return
		}
	}
}

// initialSize applies the manifest's requested size within the workspace
func (m *Manager) initialSize(manifest *types.Manifest) Size {
	s := Size{Width: m.workspace.DefaultWidth, Height: m.workspace.DefaultHeight}
	if w := manifest.Window; w != nil {
		if w.Width > 0 {
			s.Width = w.Width
		}
		if w.Height > 0 {
			s.Height = w.Height
		}
	}
	s.Width = max(s.Width, m.workspace.MinWidth)
	s.Height = max(s.Height, m.workspace.MinHeight)
	if m.workspace.Width > 0 {
		s.Width = min(s.Width, m.workspace.Width)
	}
	if m.workspace.Height > 0 {
		s.Height = min(s.Height, m.workspace.Height)
	}
	return s
}

// cascade offsets the n-th open window from the previous one
func (m *Manager) cascade(n int) Position {
	offset := cascadeOrigin + cascadeStep*(n%cascadeSlots)
	return Position{
		X: clamp(offset, 0, m.workspace.Width-m.workspace.VisibleMargin),
		Y: clamp(offset, 0, m.workspace.Height-m.workspace.VisibleMargin),
	}
}

func (m *Manager) observe(count int) {
	if m.observer != nil {
		m.observer.ObserveProcessCount(count)
	}
}

// emit publishes outside the lock so handlers may call back in
func (m *Manager) emit(out ...emission) {
	if m.bus == nil {
		return
	}
	for _, e := range out {
		m.bus.Emit(e.name, e.data)
	}
}

// clamp bounds v to [lo, hi]; an empty range pins to lo
func clamp(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	return min(max(v, lo), hi)
}
