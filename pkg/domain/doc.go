/*
Package domain contains the core models shared by the route pipeline and its adapters.

It is kept free of I/O and persistence so that the pipeline, the session layer and
the storage adapters can all depend on it without pulling each other in.

# Key Entities

  - Caller: the identity and role set resolved once per request.
  - Error: a structured failure carrying a Code that maps to an HTTP status.
  - FieldError: a single violated field reported by request validation.
*/
package domain
