// Package engine ties the processing pipeline together. One Process call
// moves a job through cache check, lock acquisition, chunked compute, and
// cache write, absorbing per-chunk and per-cache-operation failures so the
// caller only ever sees a merged result or a single job-level error.
package engine
