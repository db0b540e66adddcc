/*
Package observability exports route pipeline events as Prometheus metrics.

Metrics implements route.Observer; collectors are registered on the
registry passed to NewMetrics so tests and servers stay isolated from the
global default registry.
*/
package observability
