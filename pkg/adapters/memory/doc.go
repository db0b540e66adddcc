// Package memory provides in-process implementations of the ports: a TTL
// cache with an explicit janitor lifecycle, a session store and a keyed locker.
// They back tests and single-instance deployments.
package memory
