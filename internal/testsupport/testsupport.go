// Package testsupport holds helpers shared by package tests.
package testsupport

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile creates path (and its parents) with content, failing the test
// on error, and returns the path.
func WriteFile(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// FileDecoder is a PCM decoder stand-in that treats a media file's raw
// bytes as its decoded stream. With Seconds zero the duration reads as
// unknown, which drives fingerprinting down the full-stream path, so two
// files with identical bytes fingerprint identically regardless of name.
type FileDecoder struct {
	Seconds float64
}

func (d FileDecoder) Duration(_ context.Context, _ string) (float64, bool, error) {
	return d.Seconds, d.Seconds > 0, nil
}

func (d FileDecoder) Decode(_ context.Context, path string, _, _ float64) ([]byte, error) {
	return os.ReadFile(path)
}
