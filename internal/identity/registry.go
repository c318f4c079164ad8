package identity

import (
	"cmp"
	"context"
	"fmt"
	"log"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// Registry owns the identity list and the repository bindings for the
// lifetime of the process. Every public method holds the lock until it
// returns, including while it waits on a collaborator, so operations never
// interleave.
//
// State changes follow the same order everywhere: compute the next state,
// save it, adopt it, then call out to git. A failed save of the identity
// list leaves memory untouched. A failed save of the bindings is adopted in
// memory and marked dirty so Flush can retry it.
type Registry struct {
	mu       sync.Mutex
	store    Store
	resolver Resolver
	applier  Applier

	loaded     bool
	dirty      bool
	identities []Identity
	bindings   []Binding
}

// NewRegistry creates a Registry. Call Init before using it.
func NewRegistry(store Store, resolver Resolver, applier Applier) *Registry {
	return &Registry{
		store:    store,
		resolver: resolver,
		applier:  applier,
	}
}

// Init loads the identities and bindings from the store. Only the first
// successful call reads the store; later calls are no-ops.
func (r *Registry) Init() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.loaded {
		return nil
	}
	return r.loadLocked()
}

// loadLocked replaces memory with the stored state (caller must hold the lock).
func (r *Registry) loadLocked() error {
	ids, err := r.store.LoadIdentities()
	if err != nil {
		return fmt.Errorf("loading identities: %w", err)
	}
	bindings, err := r.store.LoadBindings()
	if err != nil {
		return fmt.Errorf("loading repository bindings: %w", err)
	}

	r.identities = ids
	r.bindings = bindings
	r.loaded = true
	r.dirty = false
	log.Printf("[registry] loaded %d identities, %d bindings", len(ids), len(bindings))
	return nil
}

func (r *Registry) readyLocked() error {
	if !r.loaded {
		return ErrNotInitialized
	}
	return nil
}

// List returns a copy of all identities in insertion order.
func (r *Registry) List() ([]Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.readyLocked(); err != nil {
		return nil, err
	}
	return slices.Clone(r.identities), nil
}

// Get returns the identity with the given id.
func (r *Registry) Get(id int) (Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.readyLocked(); err != nil {
		return Identity{}, err
	}
	idx := r.indexLocked(id)
	if idx < 0 {
		return Identity{}, notFound(id)
	}
	return r.identities[idx], nil
}

// Active returns the active identity, if any.
func (r *Registry) Active() (Identity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range r.identities {
		if id.IsActive() {
			return id, true
		}
	}
	return Identity{}, false
}

// Create registers a new inactive identity. The username must resolve to a
// remote profile; its avatar is stored with the identity.
func (r *Registry) Create(ctx context.Context, f Fields) (Identity, error) {
	f = f.Normalize()
	if err := f.Validate(); err != nil {
		return Identity{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.readyLocked(); err != nil {
		return Identity{}, err
	}

	profile, err := r.resolver.Lookup(ctx, f.Username)
	if err != nil {
		return Identity{}, fmt.Errorf("%w for %q: %w", ErrResolution, f.Username, err)
	}

	created := Identity{
		ID:        nextID(r.identities),
		Type:      f.Type,
		Name:      f.Name,
		Username:  f.Username,
		Email:     f.Email,
		AvatarURL: profile.AvatarURL,
	}

	next := append(slices.Clone(r.identities), created)
	if err := r.saveIdentitiesLocked(next); err != nil {
		return Identity{}, err
	}

	log.Printf("[registry] created id=%d username=%s", created.ID, created.Username)
	return created, nil
}

// nextID returns one more than the highest id in use, or 1 when empty.
// Ids freed by removing the highest identity are handed out again.
func nextID(ids []Identity) int {
	highest := 0
	for _, id := range ids {
		highest = max(highest, id.ID)
	}
	return highest + 1
}

// Activate marks the identity active at scope, deactivates every other
// identity in the same step, saves, and then writes the git user config.
// repoPath is required for ScopeLocal.
//
// If the git write fails the activation is kept and an ErrApplier error is
// returned.
func (r *Registry) Activate(ctx context.Context, id int, scope Scope, repoPath string) (string, error) {
	repoPath, err := checkScope(scope, repoPath)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.readyLocked(); err != nil {
		return "", err
	}
	idx := r.indexLocked(id)
	if idx < 0 {
		return "", notFound(id)
	}

	next := make([]Identity, len(r.identities))
	for i, cur := range r.identities {
		cur.Activation = ""
		if i == idx {
			cur.Activation = scope
		}
		next[i] = cur
	}
	if err := r.saveIdentitiesLocked(next); err != nil {
		return "", err
	}
	log.Printf("[registry] activated id=%d scope=%s", id, scope)

	target := next[idx]
	msg, err := r.applier.Write(ctx, target.Name, target.Email, scope, repoPath)
	if err != nil {
		return "", applierError(err)
	}
	return msg, nil
}

// BindLocal asks paths for a repository, binds it to the identity and writes
// the identity into that repository's git config. It returns ("", nil) when
// no repository was selected.
//
// If the git write fails the binding is kept and an ErrApplier error is
// returned.
func (r *Registry) BindLocal(ctx context.Context, id int, paths PathProvider) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.readyLocked(); err != nil {
		return "", err
	}
	idx := r.indexLocked(id)
	if idx < 0 {
		return "", notFound(id)
	}
	target := r.identities[idx]

	repoPath, ok, err := paths.Select(ctx)
	if err != nil {
		return "", fmt.Errorf("selecting repository: %w", err)
	}
	if !ok || strings.TrimSpace(repoPath) == "" {
		return "", nil
	}
	repoPath = filepath.Clean(repoPath)

	next := slices.DeleteFunc(slices.Clone(r.bindings), func(b Binding) bool {
		return b.RepoPath == repoPath
	})
	next = append(next, Binding{RepoPath: repoPath, IdentityID: target.ID})
	if err := r.saveBindingsLocked(next); err != nil {
		return "", err
	}
	log.Printf("[registry] bound id=%d to %s", target.ID, repoPath)

	msg, err := r.applier.Write(ctx, target.Name, target.Email, ScopeLocal, repoPath)
	if err != nil {
		return "", applierError(err)
	}
	return msg, nil
}

// Remove deletes the identity and every binding that references it after
// confirm approves. It returns false when the user declined.
func (r *Registry) Remove(ctx context.Context, id int, confirm Confirmer) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.readyLocked(); err != nil {
		return false, err
	}
	idx := r.indexLocked(id)
	if idx < 0 {
		return false, notFound(id)
	}

	question := fmt.Sprintf("Remove identity %d (%s)?", id, r.identities[idx])
	ok, err := confirm.Confirm(ctx, question)
	if err != nil {
		return false, fmt.Errorf("confirming removal: %w", err)
	}
	if !ok {
		return false, nil
	}

	nextIDs := slices.DeleteFunc(slices.Clone(r.identities), func(i Identity) bool {
		return i.ID == id
	})
	if err := r.saveIdentitiesLocked(nextIDs); err != nil {
		return false, err
	}

	nextBindings := slices.DeleteFunc(slices.Clone(r.bindings), func(b Binding) bool {
		return b.IdentityID == id
	})
	if len(nextBindings) != len(r.bindings) {
		if err := r.saveBindingsLocked(nextBindings); err != nil {
			return true, err
		}
	}

	log.Printf("[registry] removed id=%d", id)
	return true, nil
}

// Update merges the supplied patch fields onto the identity. Changed fields
// are checked with the creation rules. Activation and avatar are not
// editable here.
func (r *Registry) Update(p Patch) (Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.readyLocked(); err != nil {
		return Identity{}, err
	}
	idx := r.indexLocked(p.ID)
	if idx < 0 {
		return Identity{}, notFound(p.ID)
	}

	updated, err := p.apply(r.identities[idx])
	if err != nil {
		return Identity{}, err
	}

	next := slices.Clone(r.identities)
	next[idx] = updated
	if err := r.saveIdentitiesLocked(next); err != nil {
		return Identity{}, err
	}

	log.Printf("[registry] updated id=%d", p.ID)
	return updated, nil
}

// Bindings returns the repository bindings sorted by path.
func (r *Registry) Bindings() ([]Binding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.readyLocked(); err != nil {
		return nil, err
	}
	out := slices.Clone(r.bindings)
	slices.SortFunc(out, func(a, b Binding) int {
		return cmp.Compare(a.RepoPath, b.RepoPath)
	})
	return out, nil
}

// BindingFor returns the identity bound to repoPath.
func (r *Registry) BindingFor(repoPath string) (Identity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	repoPath = filepath.Clean(repoPath)
	for _, b := range r.bindings {
		if b.RepoPath != repoPath {
			continue
		}
		if idx := r.indexLocked(b.IdentityID); idx >= 0 {
			return r.identities[idx], true
		}
	}
	return Identity{}, false
}

// ViewConfig returns the git user configuration at scope.
func (r *Registry) ViewConfig(ctx context.Context, scope Scope, repoPath string) (string, error) {
	repoPath, err := checkScope(scope, repoPath)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	out, err := r.applier.Read(ctx, scope, repoPath)
	if err != nil {
		return "", applierError(err)
	}
	return out, nil
}

// ResetConfig removes the git user configuration at scope. For ScopeLocal
// the repository's binding is dropped as well.
func (r *Registry) ResetConfig(ctx context.Context, scope Scope, repoPath string) (string, error) {
	repoPath, err := checkScope(scope, repoPath)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.readyLocked(); err != nil {
		return "", err
	}

	msg, err := r.applier.Reset(ctx, scope, repoPath)
	if err != nil {
		return "", applierError(err)
	}

	if scope == ScopeLocal {
		next := slices.DeleteFunc(slices.Clone(r.bindings), func(b Binding) bool {
			return b.RepoPath == repoPath
		})
		if len(next) != len(r.bindings) {
			if err := r.saveBindingsLocked(next); err != nil {
				return msg, err
			}
			log.Printf("[registry] unbound %s", repoPath)
		}
	}
	return msg, nil
}

// Flush saves the in-memory state again after an earlier ErrPersistence.
func (r *Registry) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.readyLocked(); err != nil {
		return err
	}
	if !r.dirty {
		return nil
	}
	if err := r.store.SaveIdentities(r.identities); err != nil {
		return persistenceError(err)
	}
	if err := r.store.SaveBindings(r.bindings); err != nil {
		return persistenceError(err)
	}
	r.dirty = false
	return nil
}

// Dirty reports whether memory holds changes the store has not accepted.
func (r *Registry) Dirty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dirty
}

func (r *Registry) indexLocked(id int) int {
	return slices.IndexFunc(r.identities, func(i Identity) bool {
		return i.ID == id
	})
}

// saveIdentitiesLocked adopts next only once the store accepted it.
func (r *Registry) saveIdentitiesLocked(next []Identity) error {
	if err := r.store.SaveIdentities(next); err != nil {
		return persistenceError(err)
	}
	r.identities = next
	return nil
}

// saveBindingsLocked adopts next even if the save fails, so memory never
// keeps a binding to an identity it already dropped.
func (r *Registry) saveBindingsLocked(next []Binding) error {
	r.bindings = next
	if err := r.store.SaveBindings(next); err != nil {
		r.dirty = true
		return persistenceError(err)
	}
	return nil
}

// checkScope validates scope and returns the cleaned repository path, which
// is empty for ScopeGlobal.
func checkScope(scope Scope, repoPath string) (string, error) {
	if !scope.Valid() {
		return "", &ValidationError{Field: "scope", Reason: fmt.Sprintf("must be %q or %q", ScopeLocal, ScopeGlobal)}
	}
	if scope == ScopeGlobal {
		return "", nil
	}
	repoPath = strings.TrimSpace(repoPath)
	if repoPath == "" {
		return "", &ValidationError{Field: "repository path", Reason: "required for local scope"}
	}
	return filepath.Clean(repoPath), nil
}
