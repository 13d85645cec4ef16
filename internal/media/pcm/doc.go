// Package pcm decodes media audio to a canonical raw format: mono, 16 kHz,
// signed 16-bit little-endian samples. Fingerprinting hashes these decoded
// bytes rather than container bytes, which makes media identity invariant to
// re-encoding, metadata edits, and renames.
package pcm
