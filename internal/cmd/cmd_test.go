package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ksteinfeldt/gitswitch/internal/identity"
	"github.com/ksteinfeldt/gitswitch/internal/prompt"
	"github.com/ksteinfeldt/gitswitch/internal/store"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// resetFlags puts every flag of c and its subcommands back to its default.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.PersistentFlags().VisitAll(reset)
	c.Flags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// executeCmd runs the root command with args against dataDir.
func executeCmd(t *testing.T, dataDir string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("GITSWITCH_CONFIG", filepath.Join(t.TempDir(), "none.toml"))
	resetFlags(rootCmd)
	t.Cleanup(func() { resetFlags(rootCmd) })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--data-dir", dataDir}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func seed(t *testing.T, ids []identity.Identity, bindings []identity.Binding) string {
	t.Helper()
	dir := t.TempDir()
	s := store.New(dir)
	if err := s.SaveIdentities(ids); err != nil {
		t.Fatalf("SaveIdentities: %v", err)
	}
	if err := s.SaveBindings(bindings); err != nil {
		t.Fatalf("SaveBindings: %v", err)
	}
	return dir
}

func sampleIdentities() []identity.Identity {
	return []identity.Identity{
		{ID: 1, Type: "work", Name: "Alice", Username: "alice", Email: "alice@corp.example.com", Activation: identity.ScopeGlobal},
		{ID: 2, Type: "Personal", Name: "Bob", Username: "bob", Email: "bob@example.com"},
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		arg     string
		want    int
		wantErr bool
	}{
		{arg: "1", want: 1},
		{arg: " 42 ", want: 42},
		{arg: "0", wantErr: true},
		{arg: "-3", wantErr: true},
		{arg: "abc", wantErr: true},
		{arg: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			got, err := parseID(tt.arg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseID(%q) error = %v, wantErr %v", tt.arg, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseID(%q) = %d, want %d", tt.arg, got, tt.want)
			}
		})
	}
}

func TestFilterByType(t *testing.T) {
	ids := []identity.Identity{
		{ID: 1, Type: "Work"},
		{ID: 2, Type: "personal"},
		{ID: 3, Type: "WORK"},
		{ID: 4, Type: "Ärbeit"},
	}

	tests := []struct {
		typ  string
		want []int
	}{
		{typ: "", want: []int{1, 2, 3, 4}},
		{typ: "work", want: []int{1, 3}},
		{typ: "PERSONAL", want: []int{2}},
		{typ: "äRBEIT", want: []int{4}},
		{typ: "school", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			var got []int
			for _, id := range filterByType(ids, tt.typ) {
				got = append(got, id.ID)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("filterByType(%q) = %v, want %v", tt.typ, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("filterByType(%q) = %v, want %v", tt.typ, got, tt.want)
				}
			}
		})
	}
}

func TestRenderIdentities(t *testing.T) {
	var buf bytes.Buffer
	renderIdentities(&buf, sampleIdentities())
	out := buf.String()

	for _, want := range []string{"ID", "EMAIL", "alice@corp.example.com", "Bob", "global", "*"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestListCommand(t *testing.T) {
	dir := seed(t, sampleIdentities(), nil)

	out, err := executeCmd(t, dir, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "alice") || !strings.Contains(out, "bob") {
		t.Errorf("list output:\n%s", out)
	}

	out, err = executeCmd(t, dir, "list", "--type", "PERSONAL")
	if err != nil {
		t.Fatalf("list --type: %v", err)
	}
	if strings.Contains(out, "alice") || !strings.Contains(out, "bob") {
		t.Errorf("list --type output:\n%s", out)
	}
}

func TestListCommand_Empty(t *testing.T) {
	out, err := executeCmd(t, t.TempDir(), "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "No identities registered") {
		t.Errorf("list output:\n%s", out)
	}
}

func TestShowCommand(t *testing.T) {
	dir := seed(t, sampleIdentities(), []identity.Binding{{RepoPath: "/src/app", IdentityID: 2}})

	out, err := executeCmd(t, dir, "show", "2")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	for _, want := range []string{"bob@example.com", "/src/app"} {
		if !strings.Contains(out, want) {
			t.Errorf("show output missing %q:\n%s", want, out)
		}
	}

	if _, err := executeCmd(t, dir, "show", "9"); !errors.Is(err, identity.ErrNotFound) {
		t.Errorf("show 9: expected ErrNotFound, got %v", err)
	}
}

func TestEditCommand(t *testing.T) {
	dir := seed(t, sampleIdentities(), nil)

	if _, err := executeCmd(t, dir, "edit", "2"); err == nil {
		t.Error("edit without flags should fail")
	}
	if _, err := executeCmd(t, dir, "edit", "2", "--email", "not-an-email"); !errors.Is(err, identity.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}

	if _, err := executeCmd(t, dir, "edit", "2", "--name", "Robert"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	ids, err := store.New(dir).LoadIdentities()
	if err != nil {
		t.Fatalf("LoadIdentities: %v", err)
	}
	if ids[1].Name != "Robert" || ids[1].Email != "bob@example.com" {
		t.Errorf("identity 2 = %+v", ids[1])
	}
}

func TestRemoveCommand(t *testing.T) {
	dir := seed(t, sampleIdentities(), []identity.Binding{
		{RepoPath: "/src/app", IdentityID: 2},
		{RepoPath: "/src/work", IdentityID: 1},
	})

	out, err := executeCmd(t, dir, "remove", "2", "--yes")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !strings.Contains(out, "Removed identity 2") {
		t.Errorf("remove output:\n%s", out)
	}

	s := store.New(dir)
	ids, _ := s.LoadIdentities()
	bindings, _ := s.LoadBindings()
	if len(ids) != 1 || ids[0].ID != 1 {
		t.Errorf("ids = %+v", ids)
	}
	if len(bindings) != 1 || bindings[0].IdentityID != 1 {
		t.Errorf("bindings = %+v", bindings)
	}
}

func TestBindingsCommand(t *testing.T) {
	dir := seed(t, sampleIdentities(), []identity.Binding{
		{RepoPath: "/src/b", IdentityID: 2},
		{RepoPath: "/src/a", IdentityID: 7},
	})

	out, err := executeCmd(t, dir, "bindings")
	if err != nil {
		t.Fatalf("bindings: %v", err)
	}
	if strings.Index(out, "/src/a") > strings.Index(out, "/src/b") {
		t.Errorf("bindings should be sorted by path:\n%s", out)
	}
	if !strings.Contains(out, "missing identity 7") {
		t.Errorf("dangling binding not flagged:\n%s", out)
	}
}

func TestExportImportCommands(t *testing.T) {
	src := seed(t, sampleIdentities(), nil)
	file := filepath.Join(t.TempDir(), "backup.json")

	out, err := executeCmd(t, src, "export", file)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(out, "Exported 2 identities") {
		t.Errorf("export output:\n%s", out)
	}

	dst := seed(t, []identity.Identity{{ID: 1, Type: "x", Name: "Carol", Username: "carol", Email: "carol@example.com"}},
		[]identity.Binding{{RepoPath: "/src/c", IdentityID: 1}})
	out, err = executeCmd(t, dst, "import", file)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.Contains(out, "Imported 2 identities") {
		t.Errorf("import output:\n%s", out)
	}

	s := store.New(dst)
	ids, _ := s.LoadIdentities()
	if len(ids) != 3 {
		t.Fatalf("ids after import = %d, want 3", len(ids))
	}
	seen := map[int]bool{}
	for _, id := range ids {
		if seen[id.ID] {
			t.Errorf("duplicate id %d after import", id.ID)
		}
		seen[id.ID] = true
		if id.IsActive() {
			t.Errorf("imported identity %d should be inactive", id.ID)
		}
	}
	if bindings, _ := s.LoadBindings(); len(bindings) != 0 {
		t.Errorf("bindings after import = %v, want none", bindings)
	}
}

func TestDoctorCommand(t *testing.T) {
	ids := sampleIdentities()
	ids[1].Activation = identity.ScopeLocal
	dir := seed(t, ids, []identity.Binding{{RepoPath: "/gone", IdentityID: 5}})

	out, err := executeCmd(t, dir, "doctor")
	if err == nil {
		t.Fatalf("doctor should report failures:\n%s", out)
	}
	if !strings.Contains(out, "single-active") || !strings.Contains(out, "doctor --fix") {
		t.Errorf("doctor output:\n%s", out)
	}

	if out, err := executeCmd(t, dir, "doctor", "--fix"); err != nil {
		t.Fatalf("doctor --fix: %v\n%s", err, out)
	}
	if out, err := executeCmd(t, dir, "doctor"); err != nil {
		t.Errorf("doctor after fix: %v\n%s", err, out)
	}
}

func TestConfigCommands(t *testing.T) {
	dir := t.TempDir()

	out, err := executeCmd(t, dir, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(out, dir) || !strings.Contains(out, "source: defaults") {
		t.Errorf("config show output:\n%s", out)
	}

	out, err = executeCmd(t, dir, "config", "path")
	if err != nil {
		t.Fatalf("config path: %v", err)
	}
	if !strings.HasSuffix(strings.TrimSpace(out), "none.toml") {
		t.Errorf("config path = %q", out)
	}

	if _, err := executeCmd(t, dir, "config"); err == nil {
		t.Error("config without a subcommand should fail")
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := executeCmd(t, t.TempDir(), "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if strings.TrimSpace(out) != "gitswitch "+Version {
		t.Errorf("version = %q", out)
	}
}

func TestActivateLocalRejectsNonRepository(t *testing.T) {
	dir := seed(t, sampleIdentities(), nil)

	_, err := executeCmd(t, dir, "activate", "2", "--local", "--repo", t.TempDir())
	if !errors.Is(err, prompt.ErrNotRepository) {
		t.Errorf("expected ErrNotRepository, got %v", err)
	}

	ids, _ := store.New(dir).LoadIdentities()
	if scope, _ := ids[0].Scope(); scope != identity.ScopeGlobal {
		t.Error("failed activation should not change the active identity")
	}
}

func TestMain(m *testing.M) {
	os.Unsetenv("GITSWITCH_DATA_DIR")
	os.Unsetenv("GITHUB_TOKEN")
	os.Exit(m.Run())
}
