// Package watch monitors the ingest directory for new media files and
// defers each one to a handler once its size stops changing, so half-copied
// files are never processed.
package watch
