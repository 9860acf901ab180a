// Package chunking plans how a long input is split for parallel model
// calls: a strict partition of the duration into bounded chunks, with
// interior boundaries nudged toward silence via a pluggable detector so a
// cut is less likely to land mid-word.
package chunking
