// Package redis implements the cache, session store and locker ports on
// top of go-redis, so several replicas share idempotency records and sessions.
package redis
