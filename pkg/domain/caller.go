package domain

import "strings"

// Caller is the identity resolved from the session collaborator.
// It is read-only for the lifetime of a request.
type Caller struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Roles []string `json:"roles"`
}

// Anonymous returns the pseudo-caller used by routes that disable auth.
func Anonymous() *Caller {
	return &Caller{ID: AnonymousID}
}

// IsAnonymous reports whether c is missing or the anonymous pseudo-caller.
func (c *Caller) IsAnonymous() bool {
	return c == nil || c.ID == "" || c.ID == AnonymousID
}

// HasAnyRole reports whether the caller holds at least one of roles.
// Comparison is case-insensitive and ignores surrounding whitespace.
func (c *Caller) HasAnyRole(roles ...string) bool {
	if c == nil {
		return false
	}
	for _, want := range roles {
		want = normalizeRole(want)
		if want == "" {
			continue
		}
		for _, have := range c.Roles {
			if normalizeRole(have) == want {
				return true
			}
		}
	}
	return false
}

// WithRoles returns a copy of c carrying roles instead of its own.
func (c *Caller) WithRoles(roles []string) *Caller {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Roles = append([]string(nil), roles...)
	return &cp
}

func normalizeRole(r string) string {
	return strings.ToLower(strings.TrimSpace(r))
}
