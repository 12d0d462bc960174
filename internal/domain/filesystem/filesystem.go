package filesystem

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"github.com/GriffinCanCode/WebDesk/internal/domain/events"
	"github.com/GriffinCanCode/WebDesk/internal/shared/errs"
	"github.com/GriffinCanCode/WebDesk/internal/shared/paths"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

// Capabilities checked before touching storage
const (
	PermRead   = "filesystem.read.*"
	PermWrite  = "filesystem.write.*"
	PermDelete = "filesystem.delete.*"
)

// Authorizer answers permission checks
type Authorizer interface {
	HasPermission(permission string) bool
}

// AdminChecker is implemented by authorizers that know about the admin role.
// Only admins may change anything under /system.
type AdminChecker interface {
	IsAdmin() bool
}

// Publisher receives change notifications
type Publisher interface {
	Emit(name events.Name, data interface{})
}

// Observer receives one sample per operation
type Observer interface {
	ObserveFilesystemOp(backend, op string, err error)
}

// FileSystem exposes one contract over whichever backend is installed
type FileSystem struct {
	mu      sync.RWMutex
	backend Backend

	auth     Authorizer
	bus      Publisher
	observer Observer
	logger   *zap.Logger

	reads  atomic.Uint64
	writes atomic.Uint64
	denied atomic.Uint64
}

// New creates a filesystem. The backend may be installed later with
// SetBackend; until then every operation reports BackendUnavailable.
func New(backend Backend, auth Authorizer, bus Publisher, logger *zap.Logger) *FileSystem {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileSystem{backend: backend, auth: auth, bus: bus, logger: logger}
}

// WithObserver attaches an operation observer (metrics)
func (fs *FileSystem) WithObserver(o Observer) *FileSystem {
	fs.observer = o
	return fs
}

// SetBackend installs the storage backend
func (fs *FileSystem) SetBackend(b Backend) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.backend = b
	fs.logger.Info("Filesystem backend installed", zap.String("backend", b.Name()))
}

// Backend returns the installed backend, or nil
func (fs *FileSystem) Backend() Backend {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.backend
}

// prepare normalizes p, checks perm and returns the backend
func (fs *FileSystem) prepare(op, p, perm string) (Backend, string, error) {
	clean, err := paths.Normalize(p)
	if err != nil {
		return nil, "", errs.Wrap(errs.KindValidation, op, err)
	}
	if perm != "" && (fs.auth == nil || !fs.auth.HasPermission(perm)) {
		fs.denied.Add(1)
		return nil, "", errs.PermissionDenied(op, perm)
	}
	if (perm == PermWrite || perm == PermDelete) && paths.IsSystemPath(clean) && !fs.isAdmin() {
		fs.denied.Add(1)
		return nil, "", errs.New(errs.KindPermissionDenied, op, "only administrators may modify "+paths.System)
	}
	b := fs.Backend()
	if b == nil {
		return nil, "", errs.New(errs.KindBackendUnavailable, op, "no storage backend installed")
	}
	return b, clean, nil
}

func (fs *FileSystem) isAdmin() bool {
	a, ok := fs.auth.(AdminChecker)
	return ok && a.IsAdmin()
}

func (fs *FileSystem) observe(b Backend, op string, err error) {
	if fs.observer != nil && b != nil {
		fs.observer.ObserveFilesystemOp(b.Name(), op, err)
	}
	if err != nil {
		fs.logger.Debug("Filesystem operation failed", zap.String("op", op), zap.Error(err))
	}
}

func (fs *FileSystem) changed(op, p string) {
	fs.writes.Add(1)
	if fs.bus != nil {
		fs.bus.Emit(events.FilesystemChanged, events.FileChange{Op: op, Path: p})
	}
}

// Init seeds the user's skeleton on the installed backend
func (fs *FileSystem) Init(ctx context.Context, username string) error {
	b := fs.Backend()
	if b == nil {
		return errs.New(errs.KindBackendUnavailable, "filesystem.init", "no storage backend installed")
	}
	err := b.Init(ctx, username)
	fs.observe(b, "init", err)
	return err
}

// ReadFile returns the content of the file at p
func (fs *FileSystem) ReadFile(ctx context.Context, p string) (ReadResult, error) {
	b, clean, err := fs.prepare("filesystem.readFile", p, PermRead)
	if err != nil {
		return ReadResult{}, err
	}
	res, err := b.ReadFile(ctx, clean)
	fs.observe(b, "readFile", err)
	if err != nil {
		return ReadResult{}, err
	}
	fs.reads.Add(1)
	if res.MimeType == "" {
		res.MimeType = DetectMimeType(clean, res.Content)
	}
	return res, nil
}

// WriteFile creates or replaces the file at p. The parent must exist and
// content must be valid UTF-8.
func (fs *FileSystem) WriteFile(ctx context.Context, p, content string) (WriteResult, error) {
	const op = "filesystem.writeFile"
	if err := CheckContent(op, content); err != nil {
		return WriteResult{}, err
	}
	b, clean, err := fs.prepare(op, p, PermWrite)
	if err != nil {
		return WriteResult{}, err
	}
	res, err := b.WriteFile(ctx, clean, content)
	fs.observe(b, "writeFile", err)
	if err != nil {
		return WriteResult{}, err
	}
	fs.changed("writeFile", clean)
	return res, nil
}

// CheckContent rejects content the JSON codecs cannot carry unchanged
func CheckContent(op, content string) error {
	if !utf8.ValidString(content) {
		return errs.Validation(op, "content is not valid UTF-8")
	}
	return nil
}

// DeleteFile removes the file (or empty directory) at p
func (fs *FileSystem) DeleteFile(ctx context.Context, p string) (bool, error) {
	b, clean, err := fs.prepare("filesystem.deleteFile", p, PermDelete)
	if err != nil {
		return false, err
	}
	ok, err := b.DeleteFile(ctx, clean)
	fs.observe(b, "deleteFile", err)
	if ok && err == nil {
		fs.changed("deleteFile", clean)
	}
	return ok, err
}

// DeleteDirectory removes the empty directory at p
func (fs *FileSystem) DeleteDirectory(ctx context.Context, p string) (bool, error) {
	b, clean, err := fs.prepare("filesystem.deleteDirectory", p, PermDelete)
	if err != nil {
		return false, err
	}
	ok, err := b.DeleteDirectory(ctx, clean)
	fs.observe(b, "deleteDirectory", err)
	if ok && err == nil {
		fs.changed("deleteDirectory", clean)
	}
	return ok, err
}

// ListDirectory lists p, directories first then names case-insensitively
func (fs *FileSystem) ListDirectory(ctx context.Context, p string) ([]Entry, error) {
	b, clean, err := fs.prepare("filesystem.listDirectory", p, PermRead)
	if err != nil {
		return nil, err
	}
	entries, err := b.ListDirectory(ctx, clean)
	fs.observe(b, "listDirectory", err)
	if err != nil {
		return nil, err
	}
	fs.reads.Add(1)
	return entries, nil
}

// CreateDirectory creates p. It fails if p exists or its parent is missing.
func (fs *FileSystem) CreateDirectory(ctx context.Context, p string) (bool, error) {
	b, clean, err := fs.prepare("filesystem.createDirectory", p, PermWrite)
	if err != nil {
		return false, err
	}
	ok, err := b.CreateDirectory(ctx, clean)
	fs.observe(b, "createDirectory", err)
	if ok && err == nil {
		fs.changed("createDirectory", clean)
	}
	return ok, err
}

// FileExists reports whether p is a file
func (fs *FileSystem) FileExists(ctx context.Context, p string) (bool, error) {
	b, clean, err := fs.prepare("filesystem.fileExists", p, "")
	if err != nil {
		return false, err
	}
	return b.FileExists(ctx, clean)
}

// DirectoryExists reports whether p is a directory
func (fs *FileSystem) DirectoryExists(ctx context.Context, p string) (bool, error) {
	b, clean, err := fs.prepare("filesystem.directoryExists", p, "")
	if err != nil {
		return false, err
	}
	return b.DirectoryExists(ctx, clean)
}

// Search walks root and returns entries whose path relative to root matches
// the doublestar pattern, e.g. "**/*.txt"
func (fs *FileSystem) Search(ctx context.Context, root, pattern string) ([]Entry, error) {
	const op = "filesystem.search"
	if !doublestar.ValidatePattern(pattern) {
		return nil, errs.Validation(op, "invalid pattern "+pattern)
	}
	b, clean, err := fs.prepare(op, root, PermRead)
	if err != nil {
		return nil, err
	}

	var matches []Entry
	queue := []string{clean}
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, errs.Wrap(errs.KindTimeout, op, err)
		}
		dir := queue[0]
		queue = queue[1:]

		entries, err := b.ListDirectory(ctx, dir)
		if err != nil {
			fs.observe(b, "search", err)
			return nil, err
		}
		for _, e := range entries {
			rel := strings.TrimPrefix(strings.TrimPrefix(e.Path, clean), "/")
			if ok, _ := doublestar.Match(pattern, rel); ok {
				matches = append(matches, e)
			}
			if e.IsDir() {
				queue = append(queue, e.Path)
			}
		}
	}
	fs.observe(b, "search", nil)
	fs.reads.Add(1)
	if matches == nil {
		matches = []Entry{}
	}
	return matches, nil
}

// Stats returns filesystem statistics
func (fs *FileSystem) Stats() map[string]interface{} {
	name := "none"
	if b := fs.Backend(); b != nil {
		name = b.Name()
	}
	return map[string]interface{}{
		"backend": name,
		"reads":   fs.reads.Load(),
		"writes":  fs.writes.Load(),
		"denied":  fs.denied.Load(),
	}
}

// DetectMimeType sniffs content, falling back to the extension for
// content that sniffs as generic text
func DetectMimeType(p, content string) string {
	detected := mimetype.Detect([]byte(content))
	if detected.Is("text/plain") || detected.Is("application/octet-stream") {
		if t, ok := extensionTypes[strings.ToLower(paths.Ext(p))]; ok {
			return t
		}
	}
	return detected.String()
}

// extensionTypes maps common text extensions that sniff as plain text
var extensionTypes = map[string]string{
	"md":   "text/markdown",
	"json": "application/json",
	"csv":  "text/csv",
	"html": "text/html",
	"js":   "text/javascript",
	"css":  "text/css",
	"xml":  "text/xml",
	"yaml": "text/yaml",
	"yml":  "text/yaml",
}
