// Package identity derives stable content fingerprints for media files.
//
// A media id is the SHA-256 of decoded-audio sample digests, not of container
// bytes, so the same audio keeps the same id through renames, remuxes, and
// re-encodes. Long media is sampled at three fixed windows (head, middle,
// tail) to bound fingerprinting cost; short or unprobeable media is hashed in
// full. The package also hashes glossary files by raw content, where a
// missing glossary addresses the well-known empty digest.
package identity
