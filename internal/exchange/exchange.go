// Package exchange writes and reads identity backup files.
package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/ksteinfeldt/gitswitch/internal/identity"
)

// CurrentVersion is the backup envelope schema version.
const CurrentVersion = 1

var (
	// ErrUnsupportedVersion indicates a backup written by a newer release.
	ErrUnsupportedVersion = errors.New("unsupported backup version")

	// ErrMalformed indicates the file is neither an envelope nor a bare list.
	ErrMalformed = errors.New("malformed backup file")
)

// Envelope is the backup file layout.
type Envelope struct {
	// Version is the schema version.
	Version int `json:"version"`

	// ExportID identifies this backup.
	ExportID string `json:"export_id"`

	// ExportedAt is when the backup was written.
	ExportedAt time.Time `json:"exported_at"`

	// Accounts are the exported identities.
	Accounts []identity.Identity `json:"accounts"`
}

// File implements identity.Gateway against a single file on disk.
type File struct {
	path string
	now  func() time.Time
}

// NewFile creates a gateway for path.
func NewFile(path string) *File {
	return &File{path: path, now: time.Now}
}

// Path returns the backup file location.
func (f *File) Path() string {
	return f.path
}

// ExportBytes writes ids to the backup file, replacing it.
func (f *File) ExportBytes(_ context.Context, ids []identity.Identity) error {
	if ids == nil {
		ids = []identity.Identity{}
	}
	env := Envelope{
		Version:    CurrentVersion,
		ExportID:   uuid.NewString(),
		ExportedAt: f.now().UTC(),
		Accounts:   ids,
	}

	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding backup: %w", err)
	}

	if dir := filepath.Dir(f.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory: %w", err)
		}
	}
	if err := os.WriteFile(f.path, data, 0600); err != nil {
		return fmt.Errorf("writing backup: %w", err)
	}
	return nil
}

// ImportBytes reads identities from the backup file. Both the envelope and
// a bare JSON list of identities are accepted.
func (f *File) ImportBytes(_ context.Context) ([]identity.Identity, error) {
	data, err := os.ReadFile(f.path) //nolint:gosec // G304: path chosen by the user
	if err != nil {
		return nil, fmt.Errorf("reading backup: %w", err)
	}
	return Decode(data)
}

// Decode parses backup file contents.
func Decode(data []byte) ([]identity.Identity, error) {
	var probe json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	first := firstNonSpace(probe)
	switch first {
	case '[':
		var ids []identity.Identity
		if err := json.Unmarshal(data, &ids); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return ids, nil
	case '{':
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if env.Version > CurrentVersion {
			return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, env.Version)
		}
		return env.Accounts, nil
	}
	return nil, fmt.Errorf("%w: expected an object or a list", ErrMalformed)
}

func firstNonSpace(b []byte) byte {
	for _, c := range b {
		switch c {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return c
	}
	return 0
}
