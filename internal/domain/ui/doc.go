// Package ui defines the presentation surface the kernel drives and a
// headless implementation for CLIs and tests.
package ui
