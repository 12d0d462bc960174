package process

import (
	"time"

	"github.com/GriffinCanCode/WebDesk/internal/shared/id"
	"github.com/GriffinCanCode/WebDesk/internal/shared/types"
)

// Status of a process
type Status string

const (
	StatusStarting    Status = "starting"
	StatusRunning     Status = "running"
	StatusTerminating Status = "terminating"
	StatusTerminated  Status = "terminated"
)

// WindowState of a window
type WindowState string

const (
	WindowNormal    WindowState = "normal"
	WindowMinimized WindowState = "minimized"
	WindowMaximized WindowState = "maximized"
)

// Content of a window surface
type Content string

const (
	ContentLoading Content = "loading"
	ContentReady   Content = "ready"
)

// Target is the part of a window a pointer-down lands on
type Target string

const (
	TargetHeader  Target = "header"
	TargetControl Target = "control"
	TargetResize  Target = "resize"
	TargetBody    Target = "body"
)

// Position is a window's top-left corner
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Size is a window's extent
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Frame is position plus size
type Frame struct {
	Position
	Size
}

// Process is a running application instance
type Process struct {
	PID       int                    `json:"pid"`
	AppID     string                 `json:"appId"`
	WindowID  id.WindowID            `json:"windowId"`
	StartTime time.Time              `json:"startTime"`
	Status    Status                 `json:"status"`
	Params    map[string]interface{} `json:"params,omitempty"`
	Manifest  *types.Manifest        `json:"-"`
}

// Window is the logical surface of one live process
type Window struct {
	ID        id.WindowID `json:"id"`
	PID       int         `json:"pid"`
	Title     string      `json:"title"`
	Icon      string      `json:"icon,omitempty"`
	Position  Position    `json:"position"`
	Size      Size        `json:"size"`
	ZIndex    int         `json:"zIndex"`
	State     WindowState `json:"state"`
	Resizable bool        `json:"resizable"`
	Content   Content     `json:"content"`

	// normal is the frame restored when leaving maximized
	normal *Frame
}

// Frame returns the current frame
func (w *Window) Frame() Frame {
	return Frame{Position: w.Position, Size: w.Size}
}

// TaskbarEntry is one taskbar button
type TaskbarEntry struct {
	WindowID id.WindowID `json:"windowId"`
	PID      int         `json:"pid"`
	Title    string      `json:"title"`
	Icon     string      `json:"icon,omitempty"`
	Active   bool        `json:"active"`
}

func (p *Process) clone() *Process {
	c := *p
	if p.Params != nil {
		c.Params = make(map[string]interface{}, len(p.Params))
		for k, v := range p.Params {
			c.Params[k] = v
		}
	}
	c.Manifest = p.Manifest.Clone()
	return &c
}

func (w *Window) clone() *Window {
	c := *w
	if w.normal != nil {
		n := *w.normal
		c.normal = &n
	}
	return &c
}
