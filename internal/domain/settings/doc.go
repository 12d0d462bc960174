// Package settings stores the user's UI preferences (theme, font size,
// animations, visual effects) in the local persisted store.
package settings
