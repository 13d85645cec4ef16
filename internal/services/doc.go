// Package services defines shared utilities consumed by the caching subsystem
// and the external tool integrations it wraps.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, and media fingerprints
//     for logging.
//   - Structured error markers plus the Wrap helper that keep failure
//     classification (external tool vs validation vs not-found) uniform.
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay consistent across the pipeline.
package services
