package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ksteinfeldt/gitswitch/internal/identity"
)

func TestFile_LoadNothingSaved(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "missing"))

	ids, err := s.LoadIdentities()
	if err != nil {
		t.Fatalf("LoadIdentities: %v", err)
	}
	if ids == nil || len(ids) != 0 {
		t.Errorf("ids = %#v, want empty non-nil list", ids)
	}

	bindings, err := s.LoadBindings()
	if err != nil {
		t.Fatalf("LoadBindings: %v", err)
	}
	if len(bindings) != 0 {
		t.Errorf("bindings = %v, want none", bindings)
	}
}

func TestFile_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	s := New(dir)

	ids := []identity.Identity{
		{ID: 1, Type: "work", Name: "Alice", Username: "alice", Email: "alice@example.com", AvatarURL: "u1", Activation: identity.ScopeGlobal},
		{ID: 2, Type: "home", Name: "Bob", Username: "bob", Email: "bob@example.com"},
	}
	if err := s.SaveIdentities(ids); err != nil {
		t.Fatalf("SaveIdentities: %v", err)
	}
	bindings := []identity.Binding{{RepoPath: "/repos/a", IdentityID: 2}}
	if err := s.SaveBindings(bindings); err != nil {
		t.Fatalf("SaveBindings: %v", err)
	}

	// A second store on the same directory sees the same state.
	loaded, err := New(dir).LoadIdentities()
	if err != nil {
		t.Fatalf("LoadIdentities: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("loaded %d identities, want 2", len(loaded))
	}
	if loaded[0] != ids[0] || loaded[1] != ids[1] {
		t.Errorf("loaded = %+v, want %+v", loaded, ids)
	}

	loadedBindings, err := New(dir).LoadBindings()
	if err != nil {
		t.Fatalf("LoadBindings: %v", err)
	}
	if len(loadedBindings) != 1 || loadedBindings[0] != bindings[0] {
		t.Errorf("bindings = %+v, want %+v", loadedBindings, bindings)
	}
}

func TestFile_DocumentLayout(t *testing.T) {
	s := New(t.TempDir())

	if err := s.SaveBindings([]identity.Binding{{RepoPath: "/repos/a", IdentityID: 3}}); err != nil {
		t.Fatalf("SaveBindings: %v", err)
	}
	data, err := os.ReadFile(s.Path(KeyBindings))
	if err != nil {
		t.Fatalf("reading bindings: %v", err)
	}
	for _, want := range []string{`"repoPath": "/repos/a"`, `"accountId": 3`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("bindings document %s missing %s", data, want)
		}
	}

	if got := filepath.Base(s.Path(KeyIdentities)); got != "accounts.json" {
		t.Errorf("identity file = %q, want accounts.json", got)
	}
}

func TestFile_SaveNilWritesEmptyList(t *testing.T) {
	s := New(t.TempDir())

	if err := s.SaveBindings(nil); err != nil {
		t.Fatalf("SaveBindings: %v", err)
	}
	data, err := os.ReadFile(s.Path(KeyBindings))
	if err != nil {
		t.Fatalf("reading bindings: %v", err)
	}
	if strings.TrimSpace(string(data)) != "[]" {
		t.Errorf("bindings document = %q, want []", data)
	}
}

func TestFile_CorruptDocument(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	if err := os.WriteFile(s.Path(KeyIdentities), []byte("{not json"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err := s.LoadIdentities()
	if !errors.Is(err, ErrCorrupt) {
		t.Errorf("expected ErrCorrupt, got: %v", err)
	}
}

func TestFile_ReadsOriginalAppExport(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	doc := `[{"id":1,"type":"work","name":"Alice","username":"alice","email":"alice@example.com","avatar_url":"u","isActive":true,"scope":"local"}]`
	if err := os.WriteFile(s.Path(KeyIdentities), []byte(doc), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	ids, err := s.LoadIdentities()
	if err != nil {
		t.Fatalf("LoadIdentities: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("ids = %d, want 1", len(ids))
	}
	if scope, ok := ids[0].Scope(); !ok || scope != identity.ScopeLocal {
		t.Errorf("scope = %q, active = %v", scope, ok)
	}
}

func TestFile_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	for i := 0; i < 3; i++ {
		if err := s.SaveIdentities([]identity.Identity{{ID: i + 1}}); err != nil {
			t.Fatalf("SaveIdentities: %v", err)
		}
	}

	matches, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	if err != nil {
		t.Fatalf("Glob: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestFile_LoadRaw(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	doc := `[{"id":1,"isActive":true,"scope":"system"},{"id":2}]`
	if err := os.WriteFile(s.Path(KeyIdentities), []byte(doc), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	records, err := s.LoadRaw(KeyIdentities)
	if err != nil {
		t.Fatalf("LoadRaw: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if !strings.Contains(string(records[0]), `"system"`) {
		t.Errorf("record 0 = %s, want the stored scope untouched", records[0])
	}
}
