// Package contenthash provides streaming SHA-256 digests over files and raw
// byte buffers. File hashing never fails: unreadable files hash to a fixed
// sentinel so callers can fold missing inputs into cache checksums.
package contenthash
