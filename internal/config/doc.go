// Package config loads, validates, and defaults loom's TOML configuration.
//
// Load resolves the config path (explicit flag, then ~/.config/loom, then a
// project-local loom.toml), merges the file over Default(), expands ~ in
// path fields, and validates every section. Components receive the resolved
// *Config rather than re-reading files, so a value that passes Validate is
// safe to use anywhere in the process.
package config
