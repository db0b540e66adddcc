package route

import (
	"context"
	"fmt"

	"github.com/morabah/posalpro-app-sub013/pkg/domain"
)

// None is the payload type of a route without a query or body.
type None = struct{}

// TypedRequest carries the decoded query and body alongside the raw Request.
type TypedRequest[Q, B any] struct {
	*Request
	Params  Q
	Payload B
}

// Typed adapts a handler that works on concrete query and body types.
// Decoding runs after validation, so a failure here means the validator and
// the Go type disagree.
func Typed[Q, B any](fn func(ctx context.Context, req *TypedRequest[Q, B]) (*Response, error)) HandlerFunc {
	return func(ctx context.Context, req *Request) (*Response, error) {
		tr := &TypedRequest[Q, B]{Request: req}
		if req.Query != nil {
			if err := req.DecodeQuery(&tr.Params); err != nil {
				return nil, domain.Wrap(domain.CodeValidation, fmt.Sprintf("Invalid query parameters: %v", err), err)
			}
		}
		if req.Body != nil {
			if err := req.DecodeBody(&tr.Payload); err != nil {
				return nil, domain.Wrap(domain.CodeValidation, fmt.Sprintf("Invalid request body: %v", err), err)
			}
		}
		return fn(ctx, tr)
	}
}
