package identity

import (
	"context"
	"fmt"
	"log"
	"slices"
)

// ExportAll returns every identity with activation cleared.
func (r *Registry) ExportAll() ([]Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.readyLocked(); err != nil {
		return nil, err
	}
	return exportable(r.identities), nil
}

func exportable(ids []Identity) []Identity {
	out := make([]Identity, len(ids))
	for i, id := range ids {
		id.Activation = ""
		out[i] = id
	}
	return out
}

// Export hands ExportAll's result to the gateway.
func (r *Registry) Export(ctx context.Context, gw Gateway) (int, error) {
	ids, err := r.ExportAll()
	if err != nil {
		return 0, err
	}
	if err := gw.ExportBytes(ctx, ids); err != nil {
		return 0, fmt.Errorf("exporting identities: %w", err)
	}
	log.Printf("[registry] exported %d identities", len(ids))
	return len(ids), nil
}

// ImportAll appends incoming after the existing identities, keeping their
// order. Nothing is merged or deduplicated. Imported identities arrive
// inactive, and an incoming id that is already taken is replaced with a
// fresh one above every existing and incoming id. All repository bindings
// are dropped and the state is reloaded from the store.
func (r *Registry) ImportAll(incoming []Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.readyLocked(); err != nil {
		return err
	}

	next := mergeImported(r.identities, incoming)
	if err := r.saveIdentitiesLocked(next); err != nil {
		return err
	}
	if err := r.saveBindingsLocked(nil); err != nil {
		return err
	}
	log.Printf("[registry] imported %d identities, bindings cleared", len(incoming))

	return r.loadLocked()
}

// mergeImported returns existing followed by incoming with ids made unique.
func mergeImported(existing, incoming []Identity) []Identity {
	highest := nextID(existing) - 1
	for _, in := range incoming {
		highest = max(highest, in.ID)
	}

	used := make(map[int]bool, len(existing)+len(incoming))
	for _, id := range existing {
		used[id.ID] = true
	}

	next := slices.Grow(slices.Clone(existing), len(incoming))
	for _, in := range incoming {
		in.Activation = ""
		if in.ID <= 0 || used[in.ID] {
			highest++
			in.ID = highest
		}
		used[in.ID] = true
		next = append(next, in)
	}
	return next
}

// Import reads identities from the gateway and applies ImportAll.
func (r *Registry) Import(ctx context.Context, gw Gateway) (int, error) {
	incoming, err := gw.ImportBytes(ctx)
	if err != nil {
		return 0, fmt.Errorf("importing identities: %w", err)
	}
	if err := r.ImportAll(incoming); err != nil {
		return 0, err
	}
	return len(incoming), nil
}
