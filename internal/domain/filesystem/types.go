package filesystem

import (
	"context"
	"sort"
	"strings"
	"time"
)

// ReadResult is returned by ReadFile
type ReadResult struct {
	Content  string    `json:"content"`
	Size     int       `json:"size"`
	Modified time.Time `json:"modified"`
	MimeType string    `json:"mimeType,omitempty"`
}

// WriteResult is returned by WriteFile
type WriteResult struct {
	Path     string    `json:"path"`
	Size     int       `json:"size"`
	Modified time.Time `json:"modified"`
}

// Entry is one row of a directory listing
type Entry struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Type      NodeKind  `json:"type"`
	Modified  time.Time `json:"modified"`
	Size      *int      `json:"size,omitempty"`
	Extension string    `json:"extension,omitempty"`
}

// IsDir reports whether the entry is a directory
func (e Entry) IsDir() bool {
	return e.Type == KindDirectory
}

// SortEntries orders directories first, then names case-insensitively
func SortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.IsDir() != b.IsDir() {
			return a.IsDir()
		}
		la, lb := strings.ToLower(a.Name), strings.ToLower(b.Name)
		if la != lb {
			return la < lb
		}
		return a.Name < b.Name
	})
}

// Backend stores the virtual filesystem. Paths reaching a backend are
// already normalized and permission checked.
type Backend interface {
	Name() string
	Init(ctx context.Context, username string) error
	ReadFile(ctx context.Context, path string) (ReadResult, error)
	WriteFile(ctx context.Context, path, content string) (WriteResult, error)
	DeleteFile(ctx context.Context, path string) (bool, error)
	DeleteDirectory(ctx context.Context, path string) (bool, error)
	ListDirectory(ctx context.Context, path string) ([]Entry, error)
	CreateDirectory(ctx context.Context, path string) (bool, error)
	FileExists(ctx context.Context, path string) (bool, error)
	DirectoryExists(ctx context.Context, path string) (bool, error)
}

// WelcomeText is seeded onto a new user's desktop
const WelcomeText = `Welcome to WebDesk!

This is your desktop. Files you save here appear on the desktop.
Your documents live in the Documents folder of your home directory.
`
