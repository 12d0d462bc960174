// Package storage provides the local persisted key/value store.
//
// Each key is one file on an afero filesystem: a host directory in
// production, MemMapFs in tests and as the in-memory fallback. Values may be
// zstd compressed; compressed and plain values are told apart by the frame
// magic, so toggling compression never strands existing data.
//
// Failures to reach the underlying filesystem are BackendUnavailable errors.
package storage
