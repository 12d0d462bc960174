package events

// Name identifies an event
type Name string

const (
	KernelStateChanged      Name = "kernel:stateChanged"
	KernelBootProgress      Name = "kernel:bootProgress"
	AuthLogin               Name = "auth:login"
	AuthLogout              Name = "auth:logout"
	ApplicationLaunched     Name = "application:launched"
	ApplicationLaunchFailed Name = "application:launchFailed"
	ApplicationTerminated   Name = "application:terminated"
	WindowActivated         Name = "window:activated"
	WindowStateChanged      Name = "window:stateChanged"
	SystemShutdown          Name = "system:shutdown"
	FilesystemChanged       Name = "filesystem:changed"
	NotificationPosted      Name = "notification"
)

// Payloads carried by kernel events. Handlers type-assert Event.Data.

// StateChange accompanies kernel:stateChanged
type StateChange struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Error string `json:"error,omitempty"`
}

// BootProgress accompanies kernel:bootProgress
type BootProgress struct {
	Percent int    `json:"percent"`
	Stage   string `json:"stage"`
}

// Launched accompanies application:launched
type Launched struct {
	PID      int    `json:"pid"`
	AppID    string `json:"appId"`
	WindowID string `json:"windowId"`
}

// LaunchFailed accompanies application:launchFailed
type LaunchFailed struct {
	AppID string `json:"appId"`
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// Terminated accompanies application:terminated
type Terminated struct {
	PID   int    `json:"pid"`
	AppID string `json:"appId"`
}

// WindowActivation accompanies window:activated
type WindowActivation struct {
	WindowID string `json:"windowId"`
	PID      int    `json:"pid"`
	ZIndex   int    `json:"zIndex"`
}

// WindowTransition accompanies window:stateChanged
type WindowTransition struct {
	WindowID string `json:"windowId"`
	From     string `json:"from"`
	To       string `json:"to"`
}

// Logout accompanies auth:logout
type Logout struct {
	Username string `json:"username"`
}

// Shutdown accompanies system:shutdown
type Shutdown struct {
	Reason string `json:"reason"`
}

// FileChange accompanies filesystem:changed
type FileChange struct {
	Op   string `json:"op"`
	Path string `json:"path"`
}

// Notification accompanies notification
type Notification struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Level   string `json:"level"` // info, warning, error
}
