package route

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/morabah/posalpro-app-sub013/pkg/domain"
	"github.com/morabah/posalpro-app-sub013/pkg/schema"
)

// HandlerFunc is the business logic behind a route. A returned error goes
// to the error normalizer; *domain.Error values keep their status.
type HandlerFunc func(ctx context.Context, req *Request) (*Response, error)

// Request is what a handler sees once authentication and validation passed.
type Request struct {
	// Caller is never nil. Routes without auth get the anonymous caller.
	Caller *domain.Caller
	// Query is nil unless the route declares a query validator.
	Query map[string]any
	// Body is nil unless the route declares a body validator.
	Body map[string]any
	// RawBody holds the bytes read from mutating requests.
	RawBody   []byte
	RequestID string
	HTTP      *http.Request
}

// DecodeQuery copies the validated query into out, matching json tags.
func (r *Request) DecodeQuery(out any) error {
	return schema.Decode(r.Query, out)
}

// DecodeBody copies the validated body into out, matching json tags.
func (r *Request) DecodeBody(out any) error {
	return schema.Decode(r.Body, out)
}

// Response is returned by handlers. The pipeline adds decoration headers
// and writes it unchanged otherwise.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// JSON encodes v with the given status.
func JSON(status int, v any) (*Response, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, domain.Internal("", err)
	}
	h := make(http.Header)
	h.Set(domain.HeaderContentType, "application/json")
	return &Response{Status: status, Header: h, Body: body}, nil
}

// Text returns a plain text response.
func Text(status int, s string) *Response {
	h := make(http.Header)
	h.Set(domain.HeaderContentType, "text/plain; charset=utf-8")
	return &Response{Status: status, Header: h, Body: []byte(s)}
}

// NoContent returns an empty 204 response.
func NoContent() *Response {
	return &Response{Status: http.StatusNoContent, Header: make(http.Header)}
}

func (r *Response) write(w http.ResponseWriter) {
	dst := w.Header()
	for k, vs := range r.Header {
		dst[k] = append([]string(nil), vs...)
	}
	status := r.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if len(r.Body) > 0 && status != http.StatusNoContent && status != http.StatusNotModified {
		_, _ = w.Write(r.Body)
	}
}
