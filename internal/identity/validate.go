package identity

import (
	"regexp"
	"strings"
)

// emailPattern is the basic local@domain.tld shape.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether s has the local@domain.tld shape.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// Normalize trims surrounding whitespace from every field.
func (f Fields) Normalize() Fields {
	return Fields{
		Type:     strings.TrimSpace(f.Type),
		Name:     strings.TrimSpace(f.Name),
		Username: strings.TrimSpace(f.Username),
		Email:    strings.TrimSpace(f.Email),
	}
}

// Validate checks the fields in type, name, username, email order and
// returns a *ValidationError for the first one that fails.
func (f Fields) Validate() error {
	f = f.Normalize()
	checks := []struct {
		field string
		value string
	}{
		{"type", f.Type},
		{"name", f.Name},
		{"username", f.Username},
		{"email", f.Email},
	}
	for _, c := range checks {
		if c.value == "" {
			return &ValidationError{Field: c.field, Reason: "must not be empty"}
		}
	}
	if !ValidEmail(f.Email) {
		return &ValidationError{Field: "email", Reason: "must look like name@domain.tld"}
	}
	return nil
}

// apply merges the patch onto id and returns the result. Supplied fields are
// trimmed and checked with the same rules as creation.
func (p Patch) apply(id Identity) (Identity, error) {
	set := func(field string, dst *string, src *string) error {
		if src == nil {
			return nil
		}
		v := strings.TrimSpace(*src)
		if v == "" {
			return &ValidationError{Field: field, Reason: "must not be empty"}
		}
		*dst = v
		return nil
	}

	if err := set("type", &id.Type, p.Type); err != nil {
		return Identity{}, err
	}
	if err := set("name", &id.Name, p.Name); err != nil {
		return Identity{}, err
	}
	if err := set("username", &id.Username, p.Username); err != nil {
		return Identity{}, err
	}
	if err := set("email", &id.Email, p.Email); err != nil {
		return Identity{}, err
	}
	if p.Email != nil && !ValidEmail(id.Email) {
		return Identity{}, &ValidationError{Field: "email", Reason: "must look like name@domain.tld"}
	}
	return id, nil
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Type == nil && p.Name == nil && p.Username == nil && p.Email == nil
}
