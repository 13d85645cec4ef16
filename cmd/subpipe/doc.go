// Package main hosts the subpipe CLI entrypoint and command graph.
//
// The Cobra-based command tree surfaces the caching subsystem to operators:
// fingerprinting media files, inspecting and clearing the artifact cache,
// auditing journaled cache decisions, and checking external tool health. It
// centralizes configuration resolution and logger setup so subcommands stay
// declarative; the heavy lifting lives in the internal packages.
package main
