package filesystem

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/GriffinCanCode/WebDesk/internal/infrastructure/storage"
	"github.com/GriffinCanCode/WebDesk/internal/shared/errs"
	"github.com/GriffinCanCode/WebDesk/internal/shared/paths"
	"go.uber.org/zap"
)

// LocalBackend keeps the whole tree as one JSON map under a single key of
// the persisted store. Every call reads the map, mutates it and writes it
// back while holding mu; validation always completes before the first
// mutation so a failed call leaves the stored map untouched.
type LocalBackend struct {
	mu     sync.Mutex
	store  storage.Store
	memory Tree // non-nil once fallen back to memory
	now    func() time.Time
	logger *zap.Logger
}

// NewLocalBackend creates a backend over store. A nil store starts in memory.
func NewLocalBackend(store storage.Store, logger *zap.Logger) *LocalBackend {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &LocalBackend{store: store, now: time.Now, logger: logger}
	if store == nil {
		b.memory = Tree{}
	}
	return b
}

// Name implements Backend
func (b *LocalBackend) Name() string {
	if b.InMemory() {
		return "memory"
	}
	return "local"
}

// InMemory reports whether the backend fell back to an in-memory map
func (b *LocalBackend) InMemory() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.memory != nil
}

// Init seeds the directory skeleton and welcome file for username. When the
// persisted store is unreachable it falls back to an in-memory map and still
// succeeds.
func (b *LocalBackend) Init(ctx context.Context, username string) error {
	if err := paths.ValidateName(username); err != nil {
		return errs.Wrap(errs.KindValidation, "filesystem.init", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.memory == nil {
		if err := storage.Probe(b.store); err != nil {
			b.logger.Warn("Persisted storage unavailable, using in-memory filesystem", zap.Error(err))
			b.memory = Tree{}
		}
	}

	tree, err := b.load()
	if err != nil {
		b.logger.Warn("Stored filesystem unreadable, reseeding in memory", zap.Error(err))
		b.memory = Tree{}
		tree = Tree{}
	}

	now := b.now()
	changed := false
	for _, dir := range paths.Skeleton(username) {
		if _, ok := tree[dir]; ok {
			continue
		}
		tree[dir] = &Directory{Children: []string{}, Created: now, Modified: now}
		if !paths.IsRoot(dir) {
			if parent, ok := tree.Dir(paths.Parent(dir)); ok {
				parent.add(paths.Base(dir))
				parent.Modified = now
			}
		}
		changed = true
	}

	welcome := paths.Join(paths.Desktop(username), "Welcome.txt")
	if _, ok := tree[welcome]; !ok {
		if desktop, ok := tree.Dir(paths.Desktop(username)); ok {
			tree[welcome] = &File{Content: WelcomeText, Created: now, Modified: now}
			desktop.add("Welcome.txt")
			changed = true
		}
	}

	if !changed {
		return nil
	}
	if err := b.save(tree); err != nil {
		b.logger.Warn("Failed to persist filesystem skeleton, using in-memory filesystem", zap.Error(err))
		b.memory = tree
	}
	return nil
}

// ReadFile implements Backend
func (b *LocalBackend) ReadFile(_ context.Context, p string) (ReadResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tree, err := b.load()
	if err != nil {
		return ReadResult{}, err
	}
	f, err := fileAt(tree, "filesystem.readFile", p)
	if err != nil {
		return ReadResult{}, err
	}
	return ReadResult{Content: f.Content, Size: f.Size(), Modified: f.Modified}, nil
}

// WriteFile implements Backend
func (b *LocalBackend) WriteFile(_ context.Context, p, content string) (WriteResult, error) {
	const op = "filesystem.writeFile"
	if err := CheckContent(op, content); err != nil {
		return WriteResult{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	tree, err := b.load()
	if err != nil {
		return WriteResult{}, err
	}

	if paths.IsRoot(p) {
		return WriteResult{}, errs.Invariant(op, "cannot write to the root directory")
	}
	parentPath := paths.Parent(p)
	parent, ok := tree.Dir(parentPath)
	if !ok {
		return WriteResult{}, errs.Invariant(op, fmt.Sprintf("parent directory %s does not exist", parentPath))
	}
	existing, exists := tree[p]
	if exists && existing.Kind() == KindDirectory {
		return WriteResult{}, errs.Invariant(op, fmt.Sprintf("%s is a directory", p))
	}

	now := b.now()
	if exists {
		f := existing.(*File)
		f.Content = content
		f.Modified = now
	} else {
		tree[p] = &File{Content: content, Created: now, Modified: now}
		parent.add(paths.Base(p))
		parent.Modified = now
	}

	if err := b.save(tree); err != nil {
		return WriteResult{}, err
	}
	return WriteResult{Path: p, Size: len(content), Modified: now}, nil
}

// DeleteFile removes a file, or an empty directory
func (b *LocalBackend) DeleteFile(_ context.Context, p string) (bool, error) {
	return b.remove("filesystem.deleteFile", p, false)
}

// DeleteDirectory removes an empty directory
func (b *LocalBackend) DeleteDirectory(_ context.Context, p string) (bool, error) {
	return b.remove("filesystem.deleteDirectory", p, true)
}

func (b *LocalBackend) remove(op, p string, dirOnly bool) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tree, err := b.load()
	if err != nil {
		return false, err
	}

	if paths.IsRoot(p) {
		return false, errs.Invariant(op, "cannot delete the root directory")
	}
	node, ok := tree[p]
	if !ok {
		return false, errs.NotFound(op, p)
	}
	if dir, isDir := node.(*Directory); isDir {
		if len(dir.Children) > 0 {
			return false, errs.Invariant(op, fmt.Sprintf("directory %s is not empty", p))
		}
	} else if dirOnly {
		return false, errs.Invariant(op, fmt.Sprintf("%s is not a directory", p))
	}

	delete(tree, p)
	if parent, ok := tree.Dir(paths.Parent(p)); ok {
		parent.remove(paths.Base(p))
		parent.Modified = b.now()
	}

	if err := b.save(tree); err != nil {
		return false, err
	}
	return true, nil
}

// ListDirectory implements Backend
func (b *LocalBackend) ListDirectory(_ context.Context, p string) ([]Entry, error) {
	const op = "filesystem.listDirectory"

	b.mu.Lock()
	defer b.mu.Unlock()

	tree, err := b.load()
	if err != nil {
		return nil, err
	}
	node, ok := tree[p]
	if !ok {
		return nil, errs.NotFound(op, p)
	}
	dir, ok := node.(*Directory)
	if !ok {
		return nil, errs.Invariant(op, fmt.Sprintf("%s is not a directory", p))
	}

	entries := make([]Entry, 0, len(dir.Children))
	for _, name := range dir.Children {
		childPath := paths.Join(p, name)
		child, ok := tree[childPath]
		if !ok {
			b.logger.Warn("Directory lists missing child", zap.String("dir", p), zap.String("child", name))
			continue
		}
		entries = append(entries, entryFor(name, childPath, child))
	}
	SortEntries(entries)
	return entries, nil
}

// CreateDirectory implements Backend
func (b *LocalBackend) CreateDirectory(_ context.Context, p string) (bool, error) {
	const op = "filesystem.createDirectory"

	b.mu.Lock()
	defer b.mu.Unlock()

	tree, err := b.load()
	if err != nil {
		return false, err
	}
	if _, exists := tree[p]; exists {
		return false, errs.Invariant(op, fmt.Sprintf("%s already exists", p))
	}
	parentPath := paths.Parent(p)
	parent, ok := tree.Dir(parentPath)
	if !ok {
		return false, errs.Invariant(op, fmt.Sprintf("parent directory %s does not exist", parentPath))
	}

	now := b.now()
	tree[p] = &Directory{Children: []string{}, Created: now, Modified: now}
	parent.add(paths.Base(p))
	parent.Modified = now

	if err := b.save(tree); err != nil {
		return false, err
	}
	return true, nil
}

// FileExists implements Backend
func (b *LocalBackend) FileExists(_ context.Context, p string) (bool, error) {
	return b.exists(p, KindFile)
}

// DirectoryExists implements Backend
func (b *LocalBackend) DirectoryExists(_ context.Context, p string) (bool, error) {
	return b.exists(p, KindDirectory)
}

func (b *LocalBackend) exists(p string, kind NodeKind) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tree, err := b.load()
	if err != nil {
		return false, err
	}
	node, ok := tree[p]
	return ok && node.Kind() == kind, nil
}

// Snapshot returns a deep copy of the current tree
func (b *LocalBackend) Snapshot() (Tree, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.load()
}

// load returns a private copy of the tree. Caller holds mu.
func (b *LocalBackend) load() (Tree, error) {
	if b.memory != nil {
		return b.memory.Clone(), nil
	}

	data, ok, err := b.store.Get(storage.KeyFilesystem)
	if err != nil {
		return nil, err
	}
	if !ok {
		return Tree{}, nil
	}
	return UnmarshalTree(data)
}

// save replaces the stored tree. Caller holds mu.
func (b *LocalBackend) save(tree Tree) error {
	if b.memory != nil {
		b.memory = tree
		return nil
	}

	data, err := MarshalTree(tree)
	if err != nil {
		return err
	}
	return b.store.Set(storage.KeyFilesystem, data)
}

func fileAt(tree Tree, op, p string) (*File, error) {
	node, ok := tree[p]
	if !ok {
		return nil, errs.NotFound(op, p)
	}
	f, ok := node.(*File)
	if !ok {
		return nil, errs.Invariant(op, fmt.Sprintf("%s is a directory", p))
	}
	return f, nil
}

func entryFor(name, p string, node Node) Entry {
	_, modified := node.Times()
	e := Entry{Name: name, Path: p, Type: node.Kind(), Modified: modified}
	if f, ok := node.(*File); ok {
		size := f.Size()
		e.Size = &size
		e.Extension = paths.Ext(p)
	}
	return e
}
