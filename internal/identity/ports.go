package identity

import "context"

// Store persists the identity list and the repository bindings as two
// independent records.
type Store interface {
	// LoadIdentities returns the saved list, or an empty list if nothing
	// was ever saved.
	LoadIdentities() ([]Identity, error)
	SaveIdentities(ids []Identity) error

	// LoadBindings returns the saved bindings, or none if nothing was saved.
	LoadBindings() ([]Binding, error)
	SaveBindings(bindings []Binding) error
}

// Resolver looks up the public profile for a username.
type Resolver interface {
	Lookup(ctx context.Context, username string) (Profile, error)
}

// Applier reads and writes the git user configuration. repoPath is only
// used for ScopeLocal.
type Applier interface {
	Write(ctx context.Context, userName, userEmail string, scope Scope, repoPath string) (string, error)
	Read(ctx context.Context, scope Scope, repoPath string) (string, error)
	Reset(ctx context.Context, scope Scope, repoPath string) (string, error)
}

// PathProvider picks a repository. ok is false when the user made no selection.
type PathProvider interface {
	Select(ctx context.Context) (path string, ok bool, err error)
}

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, question string) (bool, error)
}

// Gateway moves exported identities to and from backup storage.
type Gateway interface {
	ExportBytes(ctx context.Context, ids []Identity) error
	ImportBytes(ctx context.Context) ([]Identity, error)
}
