// Package types provides data structures shared across backend components.
//
// Core Types:
//   - Manifest: installable application description
//   - WindowSpec: initial window geometry requested by a manifest
//   - EntryKind: how an entry point resolves (built-in or sandboxed module)
//
// Example Usage:
//
//	m := &types.Manifest{
//	    ID:          "notepad",
//	    Title:       "Notepad",
//	    Entry:       "builtin:notepad",
//	    Permissions: []string{"filesystem.read.*"},
//	}
//	if err := m.Validate(); err != nil {
//	    return err
//	}
package types
