// Package paths provides the virtual filesystem layout and POSIX path helpers.
//
// Virtual paths are absolute and '/'-separated regardless of the host OS, so
// this package works on strings with the path package and never touches
// path/filepath.
package paths

import (
	"fmt"
	"path"
	"strings"
)

// Reserved subtrees
const (
	Root   = "/"
	Users  = "/users"
	Apps   = "/apps"
	System = "/system"
)

// MaxPathLength is the longest accepted virtual path
const MaxPathLength = 4096

// Home returns the home directory of username
func Home(username string) string {
	return path.Join(Users, username)
}

// Desktop returns the desktop directory of username
func Desktop(username string) string {
	return path.Join(Users, username, "Desktop")
}

// Documents returns the documents directory of username
func Documents(username string) string {
	return path.Join(Users, username, "Documents")
}

// AppData returns the data directory of an installed application
func AppData(appID string) string {
	return path.Join(Apps, appID)
}

// Skeleton returns the directories seeded for a user, parents first
func Skeleton(username string) []string {
	return []string{
		Root,
		Users,
		Home(username),
		Desktop(username),
		Documents(username),
		Apps,
		System,
	}
}

// Normalize validates p as an absolute virtual path and returns its clean
// form. Backslashes are treated as separators.
func Normalize(p string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("path is empty")
	}
	if len(p) > MaxPathLength {
		return "", fmt.Errorf("path exceeds %d bytes", MaxPathLength)
	}
	p = strings.ReplaceAll(p, "\\", "/")
	if !strings.HasPrefix(p, "/") {
		return "", fmt.Errorf("path %q is not absolute", p)
	}
	if strings.ContainsRune(p, 0) {
		return "", fmt.Errorf("path contains NUL byte")
	}
	return path.Clean(p), nil
}

// Parent returns the parent directory of a clean absolute path. The root is
// its own parent.
func Parent(p string) string {
	return path.Dir(p)
}

// Base returns the last element of a clean absolute path; "" for the root
func Base(p string) string {
	if p == Root {
		return ""
	}
	return path.Base(p)
}

// Ext returns the extension of the last element without the dot
func Ext(p string) string {
	ext := path.Ext(Base(p))
	return strings.TrimPrefix(ext, ".")
}

// Join joins a directory and a child name
func Join(dir, name string) string {
	return path.Join(dir, name)
}

// IsRoot reports whether p is the root
func IsRoot(p string) bool {
	return p == Root
}

// IsWithin reports whether p equals dir or lies below it
func IsWithin(p, dir string) bool {
	if dir == Root {
		return strings.HasPrefix(p, Root)
	}
	return p == dir || strings.HasPrefix(p, dir+"/")
}

// IsSystemPath reports whether p lies inside /system
func IsSystemPath(p string) bool {
	return IsWithin(p, System)
}

// ValidateName checks a single path element
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." {
		return fmt.Errorf("invalid name %q", name)
	}
	if strings.ContainsAny(name, "/\\") {
		return fmt.Errorf("name %q contains a separator", name)
	}
	return nil
}
