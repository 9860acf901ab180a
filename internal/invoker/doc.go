// Package invoker runs the model call for a single chunk with a bounded
// retry budget. Failures are absorbed into a degraded ChunkResult instead of
// propagating, so a run over many chunks can finish with partial output.
package invoker
