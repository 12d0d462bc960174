// Package process owns running applications and their windows.
//
// The Manager keeps the process table (monotonic pids), one window per live
// process, a monotonically increasing z-order counter and the taskbar. Window
// state moves between normal, minimized and maximized; pointer gestures drag
// a window by its header or resize it from its handle, clamped to the
// workspace.
//
// Entry points resolve through a Resolver: built-ins come from a Registry
// populated at startup, and script modules run in the sandbox with only the
// "app" bridge to reach the kernel.
package process
