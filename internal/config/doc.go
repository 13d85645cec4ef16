// Package config loads, normalizes, and validates the TOML configuration for
// subpipe. Paths are tilde-expanded and made absolute during load; defaults
// apply whether or not a config file exists on disk.
package config
