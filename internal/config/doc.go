// Package config loads, normalizes, and validates the TOML configuration for
// whiskproc.
package config
