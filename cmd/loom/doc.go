// Package main hosts the loom CLI entrypoint and command graph.
//
// The Cobra-based command tree surfaces one-shot processing, chunk plan
// inspection, backend health reporting, the ingest directory watcher, and
// configuration scaffolding. It centralizes configuration resolution and
// engine wiring so subcommands can focus on user experience.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
