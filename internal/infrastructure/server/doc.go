// Package server runs the inspector API of a booted kernel on its own
// listener and shuts it down gracefully with the host's context.
package server
