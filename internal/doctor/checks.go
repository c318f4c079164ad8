package doctor

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/ksteinfeldt/gitswitch/internal/identity"
	"github.com/ksteinfeldt/gitswitch/internal/store"
)

// ActivationScopeCheck finds active identities stored with a scope other
// than local or global. They load as global; the fix writes that back.
type ActivationScopeCheck struct {
	FixableCheck
}

// NewActivationScopeCheck creates a new activation scope check.
func NewActivationScopeCheck() *ActivationScopeCheck {
	return &ActivationScopeCheck{
		FixableCheck: FixableCheck{
			BaseCheck: BaseCheck{
				CheckName:        "activation-scope",
				CheckDescription: "Verify active identities have a local or global scope",
			},
		},
	}
}

type rawActivation struct {
	ID       int    `json:"id"`
	IsActive bool   `json:"isActive"`
	Scope    string `json:"scope"`
}

func (c *ActivationScopeCheck) invalid(ctx *CheckContext) ([]string, error) {
	records, err := ctx.Store.LoadRaw(store.KeyIdentities)
	if err != nil {
		return nil, err
	}
	var bad []string
	for _, rec := range records {
		var a rawActivation
		if err := json.Unmarshal(rec, &a); err != nil {
			return nil, fmt.Errorf("%w: %v", store.ErrCorrupt, err)
		}
		if a.IsActive && !identity.Scope(a.Scope).Valid() {
			bad = append(bad, fmt.Sprintf("id %d: scope %q", a.ID, a.Scope))
		}
	}
	return bad, nil
}

// Run checks the stored scope of every active identity.
func (c *ActivationScopeCheck) Run(ctx *CheckContext) *CheckResult {
	bad, err := c.invalid(ctx)
	if err != nil {
		return loadFailed(c.Name(), err)
	}
	if len(bad) > 0 {
		return &CheckResult{
			Name:    c.Name(),
			Status:  StatusWarning,
			Message: fmt.Sprintf("%d active identity(ies) with an unknown scope", len(bad)),
			Details: bad,
			FixHint: "Run 'gitswitch doctor --fix' to store them as global",
		}
	}
	return &CheckResult{
		Name:    c.Name(),
		Status:  StatusOK,
		Message: "All activation scopes are valid",
	}
}

// Fix rewrites the identity list, which stores the normalized scope.
func (c *ActivationScopeCheck) Fix(ctx *CheckContext) error {
	ids, err := ctx.Store.LoadIdentities()
	if err != nil {
		return err
	}
	return ctx.Store.SaveIdentities(ids)
}

// MultipleActiveCheck verifies at most one identity is active.
type MultipleActiveCheck struct {
	FixableCheck
}

// NewMultipleActiveCheck creates a new multiple active check.
func NewMultipleActiveCheck() *MultipleActiveCheck {
	return &MultipleActiveCheck{
		FixableCheck: FixableCheck{
			BaseCheck: BaseCheck{
				CheckName:        "single-active",
				CheckDescription: "Verify at most one identity is active",
			},
		},
	}
}

// Run counts the active identities.
func (c *MultipleActiveCheck) Run(ctx *CheckContext) *CheckResult {
	ids, err := ctx.Store.LoadIdentities()
	if err != nil {
		return loadFailed(c.Name(), err)
	}

	var active []string
	for _, id := range ids {
		if scope, ok := id.Scope(); ok {
			active = append(active, fmt.Sprintf("id %d: %s (%s)", id.ID, id, scope))
		}
	}
	if len(active) > 1 {
		return &CheckResult{
			Name:    c.Name(),
			Status:  StatusError,
			Message: fmt.Sprintf("%d identities are active", len(active)),
			Details: active,
			FixHint: "Run 'gitswitch doctor --fix' to keep only the first, or activate one again",
		}
	}
	return &CheckResult{
		Name:    c.Name(),
		Status:  StatusOK,
		Message: "At most one identity is active",
	}
}

// Fix keeps the first active identity and deactivates the rest.
func (c *MultipleActiveCheck) Fix(ctx *CheckContext) error {
	ids, err := ctx.Store.LoadIdentities()
	if err != nil {
		return err
	}
	seen := false
	for i := range ids {
		if !ids[i].IsActive() {
			continue
		}
		if seen {
			ids[i].Activation = ""
		}
		seen = true
	}
	return ctx.Store.SaveIdentities(ids)
}

// DuplicateIDCheck verifies identity ids are positive and unique.
type DuplicateIDCheck struct {
	FixableCheck
}

// NewDuplicateIDCheck creates a new duplicate id check.
func NewDuplicateIDCheck() *DuplicateIDCheck {
	return &DuplicateIDCheck{
		FixableCheck: FixableCheck{
			BaseCheck: BaseCheck{
				CheckName:        "unique-ids",
				CheckDescription: "Verify identity ids are positive and unique",
			},
		},
	}
}

// Run looks for repeated or non-positive ids.
func (c *DuplicateIDCheck) Run(ctx *CheckContext) *CheckResult {
	ids, err := ctx.Store.LoadIdentities()
	if err != nil {
		return loadFailed(c.Name(), err)
	}

	var details []string
	seen := make(map[int]bool, len(ids))
	for _, id := range ids {
		switch {
		case id.ID <= 0:
			details = append(details, fmt.Sprintf("%s has id %d", id, id.ID))
		case seen[id.ID]:
			details = append(details, fmt.Sprintf("%s repeats id %d", id, id.ID))
		}
		seen[id.ID] = true
	}
	if len(details) > 0 {
		return &CheckResult{
			Name:    c.Name(),
			Status:  StatusError,
			Message: "Identity ids are not unique",
			Details: details,
			FixHint: "Run 'gitswitch doctor --fix' to renumber the later duplicates",
		}
	}
	return &CheckResult{
		Name:    c.Name(),
		Status:  StatusOK,
		Message: fmt.Sprintf("%d identities with unique ids", len(ids)),
	}
}

// Fix gives every repeated or non-positive id a fresh one above the current
// maximum. The first holder of an id keeps it, and with it any bindings.
func (c *DuplicateIDCheck) Fix(ctx *CheckContext) error {
	ids, err := ctx.Store.LoadIdentities()
	if err != nil {
		return err
	}

	next := 1
	for _, id := range ids {
		next = max(next, id.ID+1)
	}
	seen := make(map[int]bool, len(ids))
	for i := range ids {
		if ids[i].ID <= 0 || seen[ids[i].ID] {
			ids[i].ID = next
			next++
		}
		seen[ids[i].ID] = true
	}
	return ctx.Store.SaveIdentities(ids)
}

// DanglingBindingsCheck finds repository bindings to identities that no
// longer exist.
type DanglingBindingsCheck struct {
	FixableCheck
}

// NewDanglingBindingsCheck creates a new dangling bindings check.
func NewDanglingBindingsCheck() *DanglingBindingsCheck {
	return &DanglingBindingsCheck{
		FixableCheck: FixableCheck{
			BaseCheck: BaseCheck{
				CheckName:        "bindings",
				CheckDescription: "Verify repository bindings reference existing identities",
			},
		},
	}
}

func dangling(ctx *CheckContext) ([]identity.Binding, []identity.Binding, error) {
	ids, err := ctx.Store.LoadIdentities()
	if err != nil {
		return nil, nil, err
	}
	bindings, err := ctx.Store.LoadBindings()
	if err != nil {
		return nil, nil, err
	}

	var keep, drop []identity.Binding
	for _, b := range bindings {
		exists := slices.ContainsFunc(ids, func(i identity.Identity) bool {
			return i.ID == b.IdentityID
		})
		if exists {
			keep = append(keep, b)
		} else {
			drop = append(drop, b)
		}
	}
	return keep, drop, nil
}

// Run matches every binding against the identity list.
func (c *DanglingBindingsCheck) Run(ctx *CheckContext) *CheckResult {
	keep, drop, err := dangling(ctx)
	if err != nil {
		return loadFailed(c.Name(), err)
	}
	if len(drop) > 0 {
		details := make([]string, 0, len(drop))
		for _, b := range drop {
			details = append(details, fmt.Sprintf("%s -> missing id %d", b.RepoPath, b.IdentityID))
		}
		return &CheckResult{
			Name:    c.Name(),
			Status:  StatusWarning,
			Message: fmt.Sprintf("%d binding(s) reference missing identities", len(drop)),
			Details: details,
			FixHint: "Run 'gitswitch doctor --fix' to remove them",
		}
	}
	return &CheckResult{
		Name:    c.Name(),
		Status:  StatusOK,
		Message: fmt.Sprintf("%d binding(s), all valid", len(keep)),
	}
}

// Fix removes the dangling bindings.
func (c *DanglingBindingsCheck) Fix(ctx *CheckContext) error {
	keep, drop, err := dangling(ctx)
	if err != nil || len(drop) == 0 {
		return err
	}
	return ctx.Store.SaveBindings(keep)
}

func loadFailed(name string, err error) *CheckResult {
	return &CheckResult{
		Name:    name,
		Status:  StatusError,
		Message: "Could not read the stored data",
		Details: []string{err.Error()},
		FixHint: "Check the data directory with 'gitswitch config show'",
	}
}
