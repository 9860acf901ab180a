// Package dispatch runs a chunk plan across a bounded pool of workers and
// reassembles the per-chunk outcomes in original input order, shifting
// segment timestamps back into full-input coordinates.
package dispatch
