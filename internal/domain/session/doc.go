// Package session persists the login session so a restarted kernel can
// restore it.
//
// The record holds the auth token checked with auth.validateToken at boot
// and, once saved, a snapshot of the open applications.
//
// Restoration:
//  1. Load the record from the local store
//  2. Validate the token remotely (done by the kernel)
//  3. Relaunch the captured applications in launch order
//
// Example:
//
//	sessions := session.NewManager(store, logger)
//	rec, err := sessions.Start(user.Username, token)
//	err = sessions.SaveWorkspace(processes)
//	n, err := sessions.RestoreWorkspace(ctx, relaunch)
package session
