package route

import (
	"net/http"

	"github.com/morabah/posalpro-app-sub013/pkg/domain"
)

const maxRequestIDLen = 128

// requestID propagates a sane inbound id or mints a new one.
func (p *Pipeline) requestID(r *http.Request) string {
	if id := r.Header.Get(domain.HeaderRequestID); validRequestID(id) {
		return id
	}
	return p.newID()
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}

// decorate sets the headers every response of the route carries.
func decorate(h http.Header, cfg Config, requestID string) {
	h.Set(domain.HeaderRequestID, requestID)
	h.Set(domain.HeaderAPIVersion, cfg.APIVersion)

	d := cfg.Deprecation
	if d == nil {
		return
	}
	h.Set(domain.HeaderDeprecation, "true")
	if d.Sunset != "" {
		h.Set(domain.HeaderSunset, d.Sunset)
	}
	if d.Link != "" {
		h.Set(domain.HeaderLink, "<"+d.Link+`>; rel="deprecation"`)
	}
	if d.Message != "" {
		h.Set(domain.HeaderDeprecationMessage, d.Message)
	}
}
