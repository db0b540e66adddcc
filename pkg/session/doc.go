/*
Package session issues and resolves opaque session tokens.

A Manager sits on top of any ports.SessionStore (memory, Redis, Postgres) and
implements ports.SessionResolver, so it plugs straight into the route
pipeline. Tokens travel as "Authorization: Bearer <token>" or in the "sid"
cookie. Operations on one token are serialised in-process, and across
replicas when a distributed locker is configured.
*/
package session
