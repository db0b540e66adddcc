/*
Package route wraps business handlers in the request pipeline shared by every
API endpoint.

A Pipeline is built once with its collaborators (session resolver, idempotency
cache, logger, metrics observer) and turns a declarative Config plus a handler
into an http.Handler:

	p := route.NewPipeline(
	    route.WithSessionResolver(sessions),
	    route.WithCache(cache),
	    route.WithLogger(logger),
	)

	mux.Handle("POST /api/proposals", p.Route(route.Config{
	    Name:  "proposals.create",
	    Roles: []string{"sales", "admin"},
	    Body:  schema.Schema{"name": schema.NonEmptyString()},
	}, createProposal))

Each request runs the stages strictly in order:

	authenticate -> role gate -> validate -> idempotency check -> handler
	-> decorate -> idempotency store

A failure at any stage stops the request and goes to the error normalizer,
which maps structured *domain.Error values to their HTTP status, logs the
outcome once, and writes the bare message as the body. Success and error
responses carry the same request id, API version and deprecation headers.

Idempotent replay applies to POST, PUT, PATCH and DELETE requests carrying an
Idempotency-Key header. Records are keyed by caller (or a global sentinel),
method, path, client key and a hash of the body and query, so reusing a key
with a different payload runs the handler again. Two concurrent identical
requests may both run the handler unless WithLocker is configured.
*/
package route
