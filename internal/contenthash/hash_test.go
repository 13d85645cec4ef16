package contenthash

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestHashFileDeterministic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.bin")
	if err := os.WriteFile(path, []byte("hello world"), 0o644); err != nil {
		t.Fatalf("write sample: %v", err)
	}

	first := HashFile(path)
	second := HashFile(path)
	if first != second {
		t.Fatalf("digest not stable: %q vs %q", first, second)
	}
	if len(first) != 64 {
		t.Errorf("digest should be 64 hex chars, got %d", len(first))
	}
	if strings.ToLower(first) != first {
		t.Errorf("digest should be lowercase hex: %q", first)
	}
}

func TestHashFileMissingReturnsSentinel(t *testing.T) {
	if got := HashFile(filepath.Join("does", "not", "exist")); got != MissingSentinel {
		t.Fatalf("missing file should hash to sentinel, got %q", got)
	}
}

func TestHashBytesMatchesHashFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "payload")
	payload := []byte("same bytes either way")
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("write payload: %v", err)
	}

	if HashBytes(payload) != HashFile(path) {
		t.Error("buffer digest and file digest should agree")
	}
}

func TestHashReader(t *testing.T) {
	digest, err := HashReader(strings.NewReader("abc"))
	if err != nil {
		t.Fatalf("HashReader failed: %v", err)
	}
	// Known SHA-256 of "abc".
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if digest != want {
		t.Errorf("digest mismatch: got %q, want %q", digest, want)
	}
}

func TestHashBytesEmptyBuffer(t *testing.T) {
	// Known SHA-256 of the empty string; the glossary hash of "no glossary".
	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := HashBytes(nil); got != want {
		t.Errorf("empty digest mismatch: got %q, want %q", got, want)
	}
}
