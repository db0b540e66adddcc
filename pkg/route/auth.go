package route

import (
	"net/http"

	"github.com/morabah/posalpro-app-sub013/pkg/domain"
)

// authenticate resolves the caller and applies the role gate.
func (p *Pipeline) authenticate(r *http.Request, cfg Config) (*domain.Caller, error) {
	if !cfg.AuthRequired() {
		return domain.Anonymous(), nil
	}
	if p.sessions == nil {
		return nil, domain.Unauthorized("")
	}

	caller, err := p.sessions.Resolve(r)
	if err != nil {
		if _, ok := domain.AsError(err); ok {
			return nil, err
		}
		return nil, domain.Wrap(domain.CodeUnavailable, "Session lookup failed", err)
	}
	if caller.IsAnonymous() {
		return nil, domain.Unauthorized("")
	}

	if len(cfg.Roles) > 0 && !p.holdsRole(caller, cfg.Roles) {
		return nil, domain.Forbidden(cfg.Roles)
	}
	return caller, nil
}

func (p *Pipeline) holdsRole(c *domain.Caller, allowed []string) bool {
	if p.expander == nil {
		return c.HasAnyRole(allowed...)
	}
	return c.WithRoles(p.expander.Expand(c.Roles)).HasAnyRole(allowed...)
}
