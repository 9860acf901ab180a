// Package jobs holds the shared job model: the lifecycle status enum, the
// merged Result that callers receive and the cache stores, and context
// helpers that propagate job, stage, and fingerprint identifiers so log
// lines can be correlated across components.
package jobs
