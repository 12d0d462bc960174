package filesystem

import (
	"context"
	"fmt"
	"testing"

	"github.com/GriffinCanCode/WebDesk/internal/domain/events"
	"github.com/GriffinCanCode/WebDesk/internal/infrastructure/storage"
	"github.com/GriffinCanCode/WebDesk/internal/shared/errs"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type grants map[string]bool

func (g grants) HasPermission(p string) bool { return g[p] }

var allGrants = grants{PermRead: true, PermWrite: true, PermDelete: true}

type admin struct{ grants }

func (admin) IsAdmin() bool { return true }

func newLocalFS(t *testing.T, auth Authorizer) (*FileSystem, storage.Store, *events.Bus) {
	t.Helper()
	store := storage.NewMemory()
	bus := events.NewBus(nil)
	fs := New(NewLocalBackend(store, nil), auth, bus, nil)
	require.NoError(t, fs.Init(context.Background(), "alice"))
	return fs, store, bus
}

func TestInitSeedsSkeleton(t *testing.T) {
	fs, _, _ := newLocalFS(t, allGrants)
	ctx := context.Background()

	for _, dir := range []string{"/", "/users", "/users/alice", "/users/alice/Desktop", "/users/alice/Documents", "/apps", "/system"} {
		ok, err := fs.DirectoryExists(ctx, dir)
		require.NoError(t, err)
		assert.True(t, ok, dir)
	}

	welcome, err := fs.ReadFile(ctx, "/users/alice/Desktop/Welcome.txt")
	require.NoError(t, err)
	assert.Equal(t, WelcomeText, welcome.Content)
	assert.Contains(t, welcome.MimeType, "text/plain")

	root, err := fs.ListDirectory(ctx, "/")
	require.NoError(t, err)
	names := make([]string, 0, len(root))
	for _, e := range root {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"apps", "system", "users"}, names)
}

func TestInitIsIdempotentAndAddsUsers(t *testing.T) {
	fs, _, _ := newLocalFS(t, allGrants)
	ctx := context.Background()

	_, err := fs.WriteFile(ctx, "/users/alice/Desktop/Welcome.txt", "edited")
	require.NoError(t, err)

	require.NoError(t, fs.Init(ctx, "alice"))
	require.NoError(t, fs.Init(ctx, "bob"))

	res, err := fs.ReadFile(ctx, "/users/alice/Desktop/Welcome.txt")
	require.NoError(t, err)
	assert.Equal(t, "edited", res.Content)

	users, err := fs.ListDirectory(ctx, "/users")
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].Name)
	assert.Equal(t, "bob", users[1].Name)

	assert.ErrorIs(t, fs.Init(ctx, "../evil"), errs.ErrValidation)
}

func TestRoundTrip(t *testing.T) {
	fs, _, _ := newLocalFS(t, allGrants)
	ctx := context.Background()

	contents := []string{"", "hi", "line one\nline two\n", "unicode ✓ ünïcødé", `{"json":true}`}
	for i, c := range contents {
		p := fmt.Sprintf("/users/alice/Documents/file-%d.txt", i)
		w, err := fs.WriteFile(ctx, p, c)
		require.NoError(t, err)
		assert.Equal(t, p, w.Path)
		assert.Equal(t, len(c), w.Size)

		r, err := fs.ReadFile(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, c, r.Content)
		assert.Equal(t, len(c), r.Size)
	}
}

func TestWriteRejectsInvalidUTF8(t *testing.T) {
	fs, store, _ := newLocalFS(t, allGrants)
	ctx := context.Background()

	before, _, err := store.Get(storage.KeyFilesystem)
	require.NoError(t, err)

	for _, c := range []string{"a\xffb", "\xc3", "ok\xed\xa0\x80"} {
		_, err := fs.WriteFile(ctx, "/users/alice/Documents/bin.dat", c)
		assert.ErrorIs(t, err, errs.ErrValidation, "%q", c)
	}

	_, err = NewLocalBackend(store, nil).WriteFile(ctx, "/users/alice/Documents/bin.dat", "a\xffb")
	assert.ErrorIs(t, err, errs.ErrValidation)

	after, _, err := store.Get(storage.KeyFilesystem)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestSystemTreeIsAdminOnly(t *testing.T) {
	store := storage.NewMemory()
	ctx := context.Background()
	backend := NewLocalBackend(store, nil)
	require.NoError(t, backend.Init(ctx, "alice"))

	user := New(backend, allGrants, nil, nil)
	_, err := user.WriteFile(ctx, "/system/motd", "hello")
	assert.ErrorIs(t, err, errs.ErrPermissionDenied)
	_, err = user.CreateDirectory(ctx, "/system/config")
	assert.ErrorIs(t, err, errs.ErrPermissionDenied)
	_, err = user.DeleteDirectory(ctx, "/system")
	assert.ErrorIs(t, err, errs.ErrPermissionDenied)

	exists, err := user.DirectoryExists(ctx, "/system")
	require.NoError(t, err)
	assert.True(t, exists)
	_, err = user.ListDirectory(ctx, "/system")
	require.NoError(t, err)

	root := New(backend, admin{allGrants}, nil, nil)
	_, err = root.WriteFile(ctx, "/system/motd", "hello")
	require.NoError(t, err)

	res, err := user.ReadFile(ctx, "/system/motd")
	require.NoError(t, err)
	assert.Equal(t, "hello", res.Content)
}

func TestRoundTripSurvivesReload(t *testing.T) {
	store := storage.NewMemory()
	ctx := context.Background()

	first := New(NewLocalBackend(store, nil), allGrants, nil, nil)
	require.NoError(t, first.Init(ctx, "alice"))
	_, err := first.WriteFile(ctx, "/users/alice/Documents/todo.md", "- ship it")
	require.NoError(t, err)

	second := New(NewLocalBackend(store, nil), allGrants, nil, nil)
	res, err := second.ReadFile(ctx, "/users/alice/Documents/todo.md")
	require.NoError(t, err)
	assert.Equal(t, "- ship it", res.Content)
	assert.Equal(t, "text/markdown", res.MimeType)
}

func TestScenarioWriteThenList(t *testing.T) {
	fs, _, _ := newLocalFS(t, allGrants)
	ctx := context.Background()

	_, err := fs.WriteFile(ctx, "/users/alice/Desktop/a.txt", "hi")
	require.NoError(t, err)

	entries, err := fs.ListDirectory(ctx, "/users/alice/Desktop")
	require.NoError(t, err)

	var found *Entry
	for i := range entries {
		if entries[i].Name == "a.txt" {
			found = &entries[i]
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, KindFile, found.Type)
	require.NotNil(t, found.Size)
	assert.Equal(t, 2, *found.Size)
	assert.Equal(t, "txt", found.Extension)
	assert.Equal(t, "/users/alice/Desktop/a.txt", found.Path)
}

func TestScenarioCreateDirectoryTwice(t *testing.T) {
	fs, _, _ := newLocalFS(t, allGrants)
	ctx := context.Background()

	ok, err := fs.CreateDirectory(ctx, "/users/alice/Notes")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = fs.CreateDirectory(ctx, "/users/alice/Notes")
	assert.False(t, ok)
	assert.ErrorIs(t, err, errs.ErrInvariantViolation)

	entries, err := fs.ListDirectory(ctx, "/users/alice")
	require.NoError(t, err)
	count := 0
	for _, e := range entries {
		if e.Name == "Notes" {
			count++
		}
	}
	assert.Equal(t, 1, count)

	exists, err := fs.DirectoryExists(ctx, "/users/alice/Notes")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestScenarioWriteWithoutPermission(t *testing.T) {
	fs, store, _ := newLocalFS(t, grants{PermRead: true})
	ctx := context.Background()

	before, _, err := store.Get(storage.KeyFilesystem)
	require.NoError(t, err)

	_, err = fs.WriteFile(ctx, "/users/alice/Desktop/a.txt", "hi")
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrPermissionDenied)

	after, _, err := store.Get(storage.KeyFilesystem)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	exists, err := fs.FileExists(ctx, "/users/alice/Desktop/a.txt")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestPermissionGates(t *testing.T) {
	fs, _, _ := newLocalFS(t, grants{})
	ctx := context.Background()

	_, err := fs.ReadFile(ctx, "/users/alice/Desktop/Welcome.txt")
	assert.ErrorIs(t, err, errs.ErrPermissionDenied)
	_, err = fs.ListDirectory(ctx, "/")
	assert.ErrorIs(t, err, errs.ErrPermissionDenied)
	_, err = fs.CreateDirectory(ctx, "/users/alice/x")
	assert.ErrorIs(t, err, errs.ErrPermissionDenied)
	_, err = fs.DeleteFile(ctx, "/users/alice/Desktop/Welcome.txt")
	assert.ErrorIs(t, err, errs.ErrPermissionDenied)
	_, err = fs.Search(ctx, "/", "**")
	assert.ErrorIs(t, err, errs.ErrPermissionDenied)

	assert.Equal(t, uint64(5), fs.Stats()["denied"])
}

func TestNonEmptyDirectoryDeleteLeavesTreeUnchanged(t *testing.T) {
	fs, store, _ := newLocalFS(t, allGrants)
	ctx := context.Background()

	_, err := fs.CreateDirectory(ctx, "/users/alice/Notes")
	require.NoError(t, err)
	_, err = fs.WriteFile(ctx, "/users/alice/Notes/n1.txt", "note")
	require.NoError(t, err)

	before, _, _ := store.Get(storage.KeyFilesystem)

	ok, err := fs.DeleteFile(ctx, "/users/alice/Notes")
	assert.False(t, ok)
	assert.ErrorIs(t, err, errs.ErrInvariantViolation)

	ok, err = fs.DeleteDirectory(ctx, "/users/alice/Notes")
	assert.False(t, ok)
	assert.ErrorIs(t, err, errs.ErrInvariantViolation)

	after, _, _ := store.Get(storage.KeyFilesystem)
	assert.Equal(t, before, after)

	// emptied, it can go
	ok, err = fs.DeleteFile(ctx, "/users/alice/Notes/n1.txt")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = fs.DeleteDirectory(ctx, "/users/alice/Notes")
	require.NoError(t, err)
	assert.True(t, ok)

	entries, err := fs.ListDirectory(ctx, "/users/alice")
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotEqual(t, "Notes", e.Name)
	}
}

func TestWriteRequiresParent(t *testing.T) {
	fs, _, _ := newLocalFS(t, allGrants)
	ctx := context.Background()

	_, err := fs.WriteFile(ctx, "/users/alice/Missing/a.txt", "x")
	assert.ErrorIs(t, err, errs.ErrInvariantViolation)

	_, err = fs.WriteFile(ctx, "/users/alice/Desktop", "x")
	assert.ErrorIs(t, err, errs.ErrInvariantViolation)

	_, err = fs.CreateDirectory(ctx, "/nope/deeper")
	assert.ErrorIs(t, err, errs.ErrInvariantViolation)
}

func TestPathValidation(t *testing.T) {
	fs, _, _ := newLocalFS(t, allGrants)
	ctx := context.Background()

	for _, p := range []string{"", "relative/path.txt", "a.txt"} {
		_, err := fs.WriteFile(ctx, p, "x")
		assert.ErrorIs(t, err, errs.ErrValidation, p)
	}

	// unclean paths are normalized
	_, err := fs.WriteFile(ctx, "/users/alice/Desktop/../Documents//b.txt", "b")
	require.NoError(t, err)
	res, err := fs.ReadFile(ctx, "/users/alice/Documents/b.txt")
	require.NoError(t, err)
	assert.Equal(t, "b", res.Content)
}

func TestReadMissing(t *testing.T) {
	fs, _, _ := newLocalFS(t, allGrants)
	ctx := context.Background()

	_, err := fs.ReadFile(ctx, "/users/alice/ghost.txt")
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = fs.ReadFile(ctx, "/users/alice")
	assert.ErrorIs(t, err, errs.ErrInvariantViolation)

	_, err = fs.ListDirectory(ctx, "/users/ghost")
	assert.ErrorIs(t, err, errs.ErrNotFound)

	ok, err := fs.DeleteFile(ctx, "/users/alice/ghost.txt")
	assert.False(t, ok)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestListingOrder(t *testing.T) {
	fs, _, _ := newLocalFS(t, allGrants)
	ctx := context.Background()
	dir := "/users/alice/Documents"

	for _, name := range []string{"beta.txt", "Alpha.txt", "gamma.txt"} {
		_, err := fs.WriteFile(ctx, dir+"/"+name, name)
		require.NoError(t, err)
	}
	for _, name := range []string{"zeta", "Delta"} {
		_, err := fs.CreateDirectory(ctx, dir+"/"+name)
		require.NoError(t, err)
	}

	entries, err := fs.ListDirectory(ctx, dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"Delta", "zeta", "Alpha.txt", "beta.txt", "gamma.txt"}, names)
	assert.Nil(t, entries[0].Size)
}

func TestChangeEvents(t *testing.T) {
	fs, _, bus := newLocalFS(t, allGrants)
	ctx := context.Background()

	var changes []events.FileChange
	bus.On(events.FilesystemChanged, func(ev events.Event) error {
		changes = append(changes, ev.Data.(events.FileChange))
		return nil
	})

	_, _ = fs.CreateDirectory(ctx, "/users/alice/Notes")
	_, _ = fs.WriteFile(ctx, "/users/alice/Notes/a.txt", "a")
	_, _ = fs.DeleteFile(ctx, "/users/alice/Notes/a.txt")
	_, _ = fs.CreateDirectory(ctx, "/users/alice/Notes") // fails, no event

	assert.Equal(t, []events.FileChange{
		{Op: "createDirectory", Path: "/users/alice/Notes"},
		{Op: "writeFile", Path: "/users/alice/Notes/a.txt"},
		{Op: "deleteFile", Path: "/users/alice/Notes/a.txt"},
	}, changes)
}

func TestSearch(t *testing.T) {
	fs, _, _ := newLocalFS(t, allGrants)
	ctx := context.Background()

	_, _ = fs.WriteFile(ctx, "/users/alice/Documents/report.txt", "r")
	_, _ = fs.CreateDirectory(ctx, "/users/alice/Documents/old")
	_, _ = fs.WriteFile(ctx, "/users/alice/Documents/old/draft.txt", "d")
	_, _ = fs.WriteFile(ctx, "/users/alice/Documents/old/notes.md", "n")

	matches, err := fs.Search(ctx, "/users/alice", "**/*.txt")
	require.NoError(t, err)
	found := make([]string, 0, len(matches))
	for _, m := range matches {
		found = append(found, m.Path)
	}
	assert.ElementsMatch(t, []string{
		"/users/alice/Desktop/Welcome.txt",
		"/users/alice/Documents/report.txt",
		"/users/alice/Documents/old/draft.txt",
	}, found)

	matches, err = fs.Search(ctx, "/users/alice/Documents", "old/*")
	require.NoError(t, err)
	assert.Len(t, matches, 2)

	_, err = fs.Search(ctx, "/", "[")
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestNoBackendIsUnavailable(t *testing.T) {
	fs := New(nil, allGrants, nil, nil)
	_, err := fs.ReadFile(context.Background(), "/a")
	assert.ErrorIs(t, err, errs.ErrBackendUnavailable)
	assert.ErrorIs(t, fs.Init(context.Background(), "alice"), errs.ErrBackendUnavailable)
	assert.Equal(t, "none", fs.Stats()["backend"])
}

func TestUnavailableStoreFallsBackToMemory(t *testing.T) {
	broken, err := storage.New(afero.NewReadOnlyFs(afero.NewMemMapFs()), storage.Options{})
	require.NoError(t, err)

	backend := NewLocalBackend(broken, nil)
	fs := New(backend, allGrants, nil, nil)
	ctx := context.Background()

	require.NoError(t, fs.Init(ctx, "alice"))
	assert.True(t, backend.InMemory())
	assert.Equal(t, "memory", fs.Stats()["backend"])

	_, err = fs.WriteFile(ctx, "/users/alice/Desktop/a.txt", "hi")
	require.NoError(t, err)
	res, err := fs.ReadFile(ctx, "/users/alice/Desktop/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "hi", res.Content)
}

func TestTreeCodec(t *testing.T) {
	backend := NewLocalBackend(nil, nil)
	require.NoError(t, backend.Init(context.Background(), "alice"))
	tree, err := backend.Snapshot()
	require.NoError(t, err)

	data, err := MarshalTree(tree)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"directory"`)
	assert.Contains(t, string(data), `"type":"file"`)

	decoded, err := UnmarshalTree(data)
	require.NoError(t, err)
	require.Len(t, decoded, len(tree))
	welcome, ok := decoded.File("/users/alice/Desktop/Welcome.txt")
	require.True(t, ok)
	assert.Equal(t, WelcomeText, welcome.Content)

	_, err = UnmarshalTree([]byte(`{"/":{"type":"symlink"}}`))
	assert.ErrorIs(t, err, errs.ErrValidation)
}
