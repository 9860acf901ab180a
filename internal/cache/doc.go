// Package cache provides the namespaced, TTL-based result cache keyed by
// content fingerprints. It layers namespace TTL policy, silent degradation,
// and hit/miss/set/delete counters over the kv backend; expiry bookkeeping
// is delegated entirely to the backend's native TTLs.
package cache
