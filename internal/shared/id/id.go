// Package id provides identifier generation for the kernel.
//
// Request, window and session identifiers are prefixed ULIDs: sortable by
// creation time and readable in logs (req_01H..., win_01H...). Draft
// identifiers are UUIDs because drafts are exchanged with the apps service,
// which keys submissions by UUID.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// RequestID correlates an RPC call with its response in diagnostics
type RequestID string

// WindowID identifies a logical window surface
type WindowID string

// SessionID identifies a kernel session (one boot)
type SessionID string

// DraftID identifies a developer-authored application draft
type DraftID string

const (
	RequestPrefix = "req"
	WindowPrefix  = "win"
	SessionPrefix = "sess"
)

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the process-wide generator
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator backed by crypto/rand with monotonic
// entropy, so IDs minted within the same millisecond still sort in order
func NewGenerator() *Generator {
	return &Generator{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.Generate().String())
}

// NewRequestID generates a new request ID
func NewRequestID() RequestID {
	return RequestID(Default().GenerateWithPrefix(RequestPrefix))
}

// NewWindowID generates a new window ID
func NewWindowID() WindowID {
	return WindowID(Default().GenerateWithPrefix(WindowPrefix))
}

// NewSessionID generates a new session ID
func NewSessionID() SessionID {
	return SessionID(Default().GenerateWithPrefix(SessionPrefix))
}

// NewDraftID generates a new draft ID
func NewDraftID() DraftID {
	return DraftID(uuid.NewString())
}

func (id RequestID) String() string { return string(id) }
func (id WindowID) String() string  { return string(id) }
func (id SessionID) String() string { return string(id) }
func (id DraftID) String() string   { return string(id) }

// IsValid checks whether s is a ULID, optionally carrying a prefix
func IsValid(s string) bool {
	if i := strings.LastIndexByte(s, '_'); i >= 0 {
		s = s[i+1:]
	}
	_, err := ulid.Parse(s)
	return err == nil
}

// Timestamp extracts the creation time from a (possibly prefixed) ULID
func Timestamp(s string) (time.Time, error) {
	if i := strings.LastIndexByte(s, '_'); i >= 0 {
		s = s[i+1:]
	}
	parsed, err := ulid.Parse(s)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}

// IsValidDraftID checks whether s is a UUID
func IsValidDraftID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
