package contenthash

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
)

// MissingSentinel is substituted for the digest of a file that cannot be
// read. It keeps checksum computation total: a deleted input yields a
// deterministic value that differs from any real digest, which forces the
// consuming stage to rerun.
const MissingSentinel = "MISSING"

// HashBytes returns the hex-encoded SHA-256 digest of data.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashReader streams r through SHA-256 and returns the hex digest.
func HashReader(r io.Reader) (string, error) {
	hasher := sha256.New()
	if _, err := io.Copy(hasher, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// HashFile returns the hex-encoded SHA-256 digest of the file at path, or
// MissingSentinel when the file cannot be opened or read.
func HashFile(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return MissingSentinel
	}
	defer f.Close()

	digest, err := HashReader(f)
	if err != nil {
		return MissingSentinel
	}
	return digest
}
