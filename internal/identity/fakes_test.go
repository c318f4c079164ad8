package identity

import (
	"context"
	"errors"
	"slices"
	"testing"
)

type memStore struct {
	ids      []Identity
	bindings []Binding

	failIdentities bool
	failBindings   bool
	saves          int
}

var errDiskFull = errors.New("disk full")

func (s *memStore) LoadIdentities() ([]Identity, error) { return slices.Clone(s.ids), nil }
func (s *memStore) LoadBindings() ([]Binding, error)    { return slices.Clone(s.bindings), nil }

func (s *memStore) SaveIdentities(ids []Identity) error {
	if s.failIdentities {
		return errDiskFull
	}
	s.saves++
	s.ids = slices.Clone(ids)
	return nil
}

func (s *memStore) SaveBindings(b []Binding) error {
	if s.failBindings {
		return errDiskFull
	}
	s.saves++
	s.bindings = slices.Clone(b)
	return nil
}

type fakeResolver struct {
	avatars map[string]string
	calls   int
}

var errNoSuchUser = errors.New("no such user")

func (f *fakeResolver) Lookup(_ context.Context, username string) (Profile, error) {
	f.calls++
	url, ok := f.avatars[username]
	if !ok {
		return Profile{}, errNoSuchUser
	}
	return Profile{Username: username, AvatarURL: url}, nil
}

type applierCall struct {
	op       string
	name     string
	email    string
	scope    Scope
	repoPath string
}

type fakeApplier struct {
	calls []applierCall
	err   error
}

func (f *fakeApplier) Write(_ context.Context, name, email string, scope Scope, repoPath string) (string, error) {
	f.calls = append(f.calls, applierCall{op: "write", name: name, email: email, scope: scope, repoPath: repoPath})
	if f.err != nil {
		return "", f.err
	}
	return "configured " + name, nil
}

func (f *fakeApplier) Read(_ context.Context, scope Scope, repoPath string) (string, error) {
	f.calls = append(f.calls, applierCall{op: "read", scope: scope, repoPath: repoPath})
	if f.err != nil {
		return "", f.err
	}
	return "user.name=someone", nil
}

func (f *fakeApplier) Reset(_ context.Context, scope Scope, repoPath string) (string, error) {
	f.calls = append(f.calls, applierCall{op: "reset", scope: scope, repoPath: repoPath})
	if f.err != nil {
		return "", f.err
	}
	return "reset " + string(scope), nil
}

type staticPath struct {
	path string
	ok   bool
}

func (p staticPath) Select(context.Context) (string, bool, error) { return p.path, p.ok, nil }

type answer bool

func (a answer) Confirm(context.Context, string) (bool, error) { return bool(a), nil }

type memGateway struct {
	exported []Identity
	incoming []Identity
}

func (g *memGateway) ExportBytes(_ context.Context, ids []Identity) error {
	g.exported = ids
	return nil
}

func (g *memGateway) ImportBytes(context.Context) ([]Identity, error) {
	return g.incoming, nil
}

type fixture struct {
	store    *memStore
	resolver *fakeResolver
	applier  *fakeApplier
	reg      *Registry
}

func newFixture(t testing.TB, seed ...Identity) *fixture {
	t.Helper()

	f := &fixture{
		store: &memStore{ids: seed},
		resolver: &fakeResolver{avatars: map[string]string{
			"octocat": "url1",
			"alice":   "url-alice",
			"bob":     "url-bob",
			"carol":   "url-carol",
		}},
		applier: &fakeApplier{},
	}
	f.reg = NewRegistry(f.store, f.resolver, f.applier)
	if err := f.reg.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return f
}

func fields(username string) Fields {
	return Fields{
		Type:     "work",
		Name:     username + "-name",
		Username: username,
		Email:    username + "@example.com",
	}
}

func countActive(ids []Identity) int {
	n := 0
	for _, id := range ids {
		if id.IsActive() {
			n++
		}
	}
	return n
}
