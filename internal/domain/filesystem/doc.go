// Package filesystem implements the virtual filesystem.
//
// A FileSystem facade checks capabilities and normalizes paths, then
// delegates to one of two backends with the same contract:
//
//   - LocalBackend keeps the whole tree as a single JSON map in the
//     persisted key/value store (key "webdesk.filesystem"), falling back to
//     an in-memory map when the store is unavailable
//   - RemoteBackend proxies every call to the "filesystem" service
//
// Nodes are a tagged variant: *File or *Directory, discriminated by
// Kind() and by the "type" field of the persisted form.
package filesystem
