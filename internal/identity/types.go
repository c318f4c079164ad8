// Package identity provides the registry of git identities and the rules for
// switching which one is active at global or repository scope.
package identity

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Scope selects where an activated identity's git configuration applies.
type Scope string

const (
	// ScopeGlobal applies to the whole machine (git config --global).
	ScopeGlobal Scope = "global"

	// ScopeLocal applies to a single repository (git config --local).
	ScopeLocal Scope = "local"
)

// ParseScope converts user input into a Scope.
func ParseScope(s string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(s))) {
	case ScopeGlobal:
		return ScopeGlobal, nil
	case ScopeLocal:
		return ScopeLocal, nil
	}
	return "", &ValidationError{Field: "scope", Reason: fmt.Sprintf("must be %q or %q", ScopeLocal, ScopeGlobal)}
}

// Valid reports whether s is one of the known scopes.
func (s Scope) Valid() bool {
	return s == ScopeGlobal || s == ScopeLocal
}

// Identity is a stored name/email/username profile the user can activate.
//
// Activation is a single field: the zero Scope means inactive, any other
// value means active at that scope. A scope without activation cannot be
// represented.
type Identity struct {
	// ID is unique within the registry.
	ID int

	// Type is a free-form category label chosen by the user (e.g. "work").
	Type string

	// Name is written to user.name.
	Name string

	// Username is the remote account handle used for the profile lookup.
	Username string

	// Email is written to user.email.
	Email string

	// AvatarURL is resolved from the remote profile at creation time.
	AvatarURL string

	// Activation is empty while inactive.
	Activation Scope
}

// IsActive reports whether the identity is the active one.
func (i Identity) IsActive() bool {
	return i.Activation != ""
}

// Scope returns the activation scope and whether the identity is active.
func (i Identity) Scope() (Scope, bool) {
	return i.Activation, i.Activation != ""
}

// String renders the identity the way git shows an author.
func (i Identity) String() string {
	return fmt.Sprintf("%s <%s>", i.Name, i.Email)
}

// identityJSON is the persisted and exported layout.
type identityJSON struct {
	ID        int    `json:"id"`
	Type      string `json:"type"`
	Name      string `json:"name"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
	IsActive  bool   `json:"isActive"`
	Scope     Scope  `json:"scope,omitempty"`
}

// MarshalJSON writes the isActive/scope pair derived from Activation.
func (i Identity) MarshalJSON() ([]byte, error) {
	return json.Marshal(identityJSON{
		ID:        i.ID,
		Type:      i.Type,
		Name:      i.Name,
		Username:  i.Username,
		Email:     i.Email,
		AvatarURL: i.AvatarURL,
		IsActive:  i.IsActive(),
		Scope:     i.Activation,
	})
}

// UnmarshalJSON folds isActive/scope into Activation. A scope without
// isActive is dropped; isActive with a missing or unknown scope is read as
// global.
func (i *Identity) UnmarshalJSON(data []byte) error {
	var raw identityJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*i = Identity{
		ID:        raw.ID,
		Type:      raw.Type,
		Name:      raw.Name,
		Username:  raw.Username,
		Email:     raw.Email,
		AvatarURL: raw.AvatarURL,
	}
	if raw.IsActive {
		i.Activation = raw.Scope
		if !i.Activation.Valid() {
			i.Activation = ScopeGlobal
		}
	}
	return nil
}

// Binding records which identity is bound to a repository under local scope.
type Binding struct {
	// RepoPath is the repository location and the binding key.
	RepoPath string `json:"repoPath"`

	// IdentityID references Identity.ID.
	IdentityID int `json:"accountId"`
}

// Fields are the user-supplied values for a new identity.
type Fields struct {
	Type     string
	Name     string
	Username string
	Email    string
}

// Patch is a partial update. Nil fields keep their current value.
type Patch struct {
	ID       int
	Type     *string
	Name     *string
	Username *string
	Email    *string
}

// Profile is the public profile returned by a Resolver.
type Profile struct {
	Username  string
	AvatarURL string
}
