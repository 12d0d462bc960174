package storage

import (
	"bytes"
	"errors"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/GriffinCanCode/WebDesk/internal/shared/errs"
	"github.com/klauspost/compress/zstd"
	"github.com/spf13/afero"
)

// Persisted keys
const (
	KeyFilesystem    = "webdesk.filesystem"
	KeyInstalledApps = "webdesk.installedApps"
	KeyDrafts        = "webdesk.devDrafts"
	KeyPreferences   = "webdesk.preferences"
	KeySession       = "webdesk.session"
)

// zstd frame magic number
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Store is a persisted key/value store. Values are opaque byte slices.
type Store interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Delete(key string) error
	Keys() ([]string, error)
}

// Options configures a FileStore
type Options struct {
	Compress bool
}

// FileStore keeps one file per key on an afero filesystem
type FileStore struct {
	fs       afero.Fs
	compress bool

	mu      sync.RWMutex
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// New creates a store rooted at the top of fs
func New(fs afero.Fs, opts Options) (*FileStore, error) {
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, errs.Wrap(errs.KindBackendUnavailable, "storage.new", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, errs.Wrap(errs.KindBackendUnavailable, "storage.new", err)
	}
	return &FileStore{
		fs:       fs,
		compress: opts.Compress,
		encoder:  encoder,
		decoder:  decoder,
	}, nil
}

// NewDir creates a store backed by a host directory, creating it if missing
func NewDir(dir string, opts Options) (*FileStore, error) {
	osFs := afero.NewOsFs()
	if err := osFs.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.Wrap(errs.KindBackendUnavailable, "storage.new", err)
	}
	return New(afero.NewBasePathFs(osFs, dir), opts)
}

// NewMemory creates a store that lives only in process memory
func NewMemory() *FileStore {
	store, err := New(afero.NewMemMapFs(), Options{})
	if err != nil {
		// zstd construction with default options does not fail
		panic(err)
	}
	return store
}

// Get returns the value for key and whether it was present
func (s *FileStore) Get(key string) ([]byte, bool, error) {
	if err := validateKey(key); err != nil {
		return nil, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := afero.ReadFile(s.fs, fileName(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, errs.Wrap(errs.KindBackendUnavailable, "storage.get", err)
	}

	if bytes.HasPrefix(data, zstdMagic) {
		data, err = s.decoder.DecodeAll(data, nil)
		if err != nil {
			return nil, false, errs.Wrap(errs.KindBackendUnavailable, "storage.get", err)
		}
	}
	return data, true, nil
}

// Set replaces the value for key
func (s *FileStore) Set(key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}

	data := value
	if s.compress {
		data = s.encoder.EncodeAll(value, nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp := fileName(key) + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return errs.Wrap(errs.KindBackendUnavailable, "storage.set", err)
	}
	if err := s.fs.Rename(tmp, fileName(key)); err != nil {
		_ = s.fs.Remove(tmp)
		return errs.Wrap(errs.KindBackendUnavailable, "storage.set", err)
	}
	return nil
}

// Delete removes key. Missing keys are not an error.
func (s *FileStore) Delete(key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fs.Remove(fileName(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errs.Wrap(errs.KindBackendUnavailable, "storage.delete", err)
	}
	return nil
}

// Keys lists stored keys in sorted order
func (s *FileStore) Keys() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos, err := afero.ReadDir(s.fs, "/")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, errs.Wrap(errs.KindBackendUnavailable, "storage.keys", err)
	}

	keys := make([]string, 0, len(infos))
	for _, info := range infos {
		name := info.Name()
		if info.IsDir() || !strings.HasSuffix(name, ".dat") {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, ".dat"))
	}
	sort.Strings(keys)
	return keys, nil
}

// Probe verifies the store accepts writes
func Probe(s Store) error {
	const key = "webdesk.probe"
	if err := s.Set(key, []byte("ok")); err != nil {
		return err
	}
	return s.Delete(key)
}

func fileName(key string) string {
	return "/" + key + ".dat"
}

func validateKey(key string) error {
	if key == "" {
		return errs.Validation("storage", "key cannot be empty")
	}
	if strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return errs.Validation("storage", "invalid key "+key)
	}
	return nil
}
