// Package kv abstracts the shared key-value service behind the result cache
// and the computation lock.
//
// The Backend contract is small: get, set-with-expiry, and the two atomic
// primitives the lock needs, set-if-absent-with-expiry and compare-and-delete.
// Three implementations ship: Redis for multi-host deployments, SQLite for a
// single host, and an in-process map for tests. Callers never depend on a
// concrete backend; Open selects one from configuration.
package kv
