// Package store persists identities and repository bindings as JSON
// documents in a data directory.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"github.com/ksteinfeldt/gitswitch/internal/identity"
)

const (
	// KeyIdentities names the identity list document.
	KeyIdentities = "accounts"

	// KeyBindings names the repository binding document.
	KeyBindings = "local-git-configs"

	lockFileName = ".lock"
)

// ErrCorrupt indicates a stored document could not be parsed.
var ErrCorrupt = errors.New("store document is corrupt")

// File stores each record as <dir>/<key>.json. Access is serialized within
// the process by a mutex and across processes by a lock file, so two
// gitswitch invocations never interleave a read with a half-written file.
type File struct {
	mu  sync.Mutex
	dir string
}

// New creates a File store rooted at dir. The directory is created on the
// first write.
func New(dir string) *File {
	return &File{dir: dir}
}

// Dir returns the data directory.
func (f *File) Dir() string {
	return f.dir
}

// Path returns the file that holds key.
func (f *File) Path(key string) string {
	return filepath.Join(f.dir, key+".json")
}

// LoadIdentities returns the stored identity list, or an empty list.
func (f *File) LoadIdentities() ([]identity.Identity, error) {
	ids := []identity.Identity{}
	if _, err := f.read(KeyIdentities, &ids); err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []identity.Identity{}
	}
	return ids, nil
}

// SaveIdentities overwrites the stored identity list.
func (f *File) SaveIdentities(ids []identity.Identity) error {
	if ids == nil {
		ids = []identity.Identity{}
	}
	return f.write(KeyIdentities, ids)
}

// LoadBindings returns the stored repository bindings, or none.
func (f *File) LoadBindings() ([]identity.Binding, error) {
	var bindings []identity.Binding
	if _, err := f.read(KeyBindings, &bindings); err != nil {
		return nil, err
	}
	return bindings, nil
}

// SaveBindings overwrites the stored repository bindings.
func (f *File) SaveBindings(bindings []identity.Binding) error {
	if bindings == nil {
		bindings = []identity.Binding{}
	}
	return f.write(KeyBindings, bindings)
}

// LoadRaw returns the records of key undecoded, for callers that need to see
// values the typed loaders normalize away.
func (f *File) LoadRaw(key string) ([]json.RawMessage, error) {
	var records []json.RawMessage
	if _, err := f.read(key, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// read decodes key into v. It reports false when the document does not exist.
func (f *File) read(key string, v any) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, err := os.Stat(f.dir); os.IsNotExist(err) {
		return false, nil
	}

	lock := flock.New(filepath.Join(f.dir, lockFileName))
	if err := lock.RLock(); err != nil {
		return false, fmt.Errorf("locking store: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	path := f.Path(key)
	data, err := os.ReadFile(path) //nolint:gosec // G304: path from configured data dir
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("reading %s: %w", key, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	return true, nil
}

// write replaces key with v using a temp file and rename.
func (f *File) write(key string, v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	lock := flock.New(filepath.Join(f.dir, lockFileName))
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("locking store: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(f.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", key, err)
	}
	if err := os.Rename(tmpPath, f.Path(key)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}
