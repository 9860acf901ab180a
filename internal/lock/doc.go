// Package lock implements the distributed computation lock: a named lease
// taken via atomic set-if-absent-with-expiry and released via token-checked
// compare-and-delete. It exists to avoid redundant concurrent computation of
// the same fingerprint across cooperating processes; when it cannot deliver
// (contention past the wait budget, backend trouble) callers compute anyway,
// trading duplicate work for liveness.
package lock
