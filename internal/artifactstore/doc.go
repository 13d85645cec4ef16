// Package artifactstore persists expensive pipeline artifacts keyed by
// media fingerprint.
//
// Layout:
//
//	<root>/media/<media_id>/baseline/   audio copy, segments, alignment, VAD, metadata
//	<root>/media/<media_id>/glossary/<glossary_hash>/  applied segments, quality metrics
//
// Reads never fail hard: anything missing or corrupt is a cache miss.
// Writes go through temp-then-rename and finish with the metadata file, so
// interrupted stores read as absent entries. Store and clear operations on
// the same media id serialize through an advisory file lock.
package artifactstore
