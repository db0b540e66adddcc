/*
Package ports defines the driven ports (interfaces) of the route pipeline.

These interfaces decouple the pipeline from its external collaborators, so the same
route code runs against in-memory adapters in tests and Redis or Postgres in
production.

# Key Interfaces

  - Cache: TTL key-value store backing idempotent replay.
  - SessionStore: persistence for issued session tokens.
  - SessionResolver: resolves the calling identity from an inbound request.
  - DistributedLocker: optional serialisation of requests sharing an idempotency key.
*/
package ports
