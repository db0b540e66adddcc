package domain

// Header names read or written by the route pipeline.
const (
	HeaderRequestID          = "X-Request-Id"
	HeaderAPIVersion         = "X-Api-Version"
	HeaderDeprecation        = "Deprecation"
	HeaderSunset             = "Sunset"
	HeaderLink               = "Link"
	HeaderDeprecationMessage = "X-Api-Deprecation-Message"
	HeaderIdempotencyKey     = "Idempotency-Key"
	HeaderIdempotentReplay   = "X-Idempotent-Replay"
	HeaderContentType        = "Content-Type"
	HeaderCacheControl       = "Cache-Control"
)

// SafelistedHeaders are the only response headers persisted with an
// idempotency record and replayed from it.
var SafelistedHeaders = []string{
	HeaderContentType,
	HeaderCacheControl,
	HeaderDeprecation,
	HeaderSunset,
	HeaderLink,
	HeaderAPIVersion,
	HeaderDeprecationMessage,
}

// AnonymousID is the caller id used when a route opts out of authentication.
const AnonymousID = "anonymous"
