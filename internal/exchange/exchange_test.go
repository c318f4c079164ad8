package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ksteinfeldt/gitswitch/internal/identity"
)

func TestFile_ExportImport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup", "accounts.json")
	f := NewFile(path)
	f.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	ids := []identity.Identity{
		{ID: 1, Type: "work", Name: "Alice", Username: "alice", Email: "alice@example.com", AvatarURL: "a"},
		{ID: 2, Type: "home", Name: "Bob", Username: "bob", Email: "bob@example.com", AvatarURL: "b"},
	}
	ctx := context.Background()

	if err := f.ExportBytes(ctx, ids); err != nil {
		t.Fatalf("ExportBytes: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading backup: %v", err)
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if env.Version != CurrentVersion {
		t.Errorf("version = %d, want %d", env.Version, CurrentVersion)
	}
	if _, err := uuid.Parse(env.ExportID); err != nil {
		t.Errorf("export id %q is not a uuid: %v", env.ExportID, err)
	}
	if !env.ExportedAt.Equal(f.now()) {
		t.Errorf("exported_at = %v", env.ExportedAt)
	}

	back, err := f.ImportBytes(ctx)
	if err != nil {
		t.Fatalf("ImportBytes: %v", err)
	}
	if len(back) != 2 || back[0] != ids[0] || back[1] != ids[1] {
		t.Errorf("imported = %+v, want %+v", back, ids)
	}
}

func TestDecode_BareList(t *testing.T) {
	data := []byte(`  [{"id":4,"type":"work","name":"A","username":"a","email":"a@b.c","avatar_url":"u","isActive":false}]`)

	ids, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(ids) != 1 || ids[0].ID != 4 || ids[0].AvatarURL != "u" {
		t.Errorf("ids = %+v", ids)
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{name: "not json", data: "accounts", want: ErrMalformed},
		{name: "scalar", data: `"x"`, want: ErrMalformed},
		{name: "wrong list items", data: `[1, 2]`, want: ErrMalformed},
		{name: "newer version", data: `{"version": 9, "accounts": []}`, want: ErrUnsupportedVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.data))
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got: %v", tt.want, err)
			}
		})
	}
}

func TestFile_ImportMissingFile(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "nope.json"))

	if _, err := f.ImportBytes(context.Background()); err == nil {
		t.Error("expected an error for a missing file")
	}
}
