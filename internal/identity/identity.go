package identity

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"subpipe/internal/contenthash"
	"subpipe/internal/logging"
	"subpipe/internal/media/pcm"
	"subpipe/internal/services"
)

// DefaultSampleSeconds is the length of each PCM sampling window.
const DefaultSampleSeconds = 30

// Identifier computes content-derived media fingerprints. The fingerprint is
// a pure function of decoded audio, so the same underlying audio yields the
// same id across renames, containers, and codecs.
type Identifier struct {
	decoder pcm.Decoder
	logger  *slog.Logger
}

// New builds an Identifier around the given decoder.
func New(decoder pcm.Decoder, logger *slog.Logger) *Identifier {
	return &Identifier{
		decoder: decoder,
		logger:  logging.NewComponentLogger(logger, "identity"),
	}
}

// ComputeMediaID fingerprints the media file at path. sampleSeconds <= 0
// falls back to DefaultSampleSeconds.
//
// Short or unknown-duration media is hashed in full; otherwise three windows
// are sampled (head, middle, tail), each hashed separately, and the id is the
// digest of the concatenated window digests. Sampling bounds the cost for
// long media while staying sensitive to edits anywhere in the timeline.
func (i *Identifier) ComputeMediaID(ctx context.Context, path string, sampleSeconds int) (string, error) {
	if sampleSeconds <= 0 {
		sampleSeconds = DefaultSampleSeconds
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", services.Wrap(services.ErrNotFound, "identity", "compute", fmt.Sprintf("media file %q", path), err)
	}
	if info.IsDir() {
		return "", services.Wrap(services.ErrNotFound, "identity", "compute", fmt.Sprintf("%q is a directory", path), nil)
	}

	duration, known, err := i.decoder.Duration(ctx, path)
	if err != nil {
		// An unprobeable container is still decodable in many cases; fall
		// back to hashing the full stream.
		i.logger.Warn("duration probe failed; hashing full stream",
			logging.String(logging.FieldEventType, "identity_probe_failed"),
			logging.String("source_file", path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "fingerprinting reads the entire file"))
		known = false
	}

	sample := float64(sampleSeconds)
	if !known || duration < sample {
		data, err := i.decoder.Decode(ctx, path, 0, -1)
		if err != nil {
			return "", err
		}
		return contenthash.HashBytes(data), nil
	}

	windows := sampleWindows(duration, sample)
	var combined strings.Builder
	for _, offset := range windows {
		data, err := i.decoder.Decode(ctx, path, offset, sample)
		if err != nil {
			return "", err
		}
		combined.WriteString(contenthash.HashBytes(data))
	}
	return contenthash.HashBytes([]byte(combined.String())), nil
}

// sampleWindows returns the start offsets of the head, middle, and tail
// sampling windows.
func sampleWindows(duration, sample float64) []float64 {
	middle := duration/2 - sample/2
	if middle < 0 {
		middle = 0
	}
	tail := duration - sample
	if tail < 0 {
		tail = 0
	}
	return []float64{0, middle, tail}
}

// GlossaryHash hashes the raw bytes of the glossary file at path. A missing
// file hashes to the digest of an empty buffer: "no glossary" is a valid,
// addressable cache key.
func GlossaryHash(path string) string {
	if strings.TrimSpace(path) == "" {
		return contenthash.HashBytes(nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return contenthash.HashBytes(nil)
	}
	return contenthash.HashBytes(data)
}

// VerifyStability recomputes the media id n times and confirms every run
// produces the same value. Returns the stable id.
func (i *Identifier) VerifyStability(ctx context.Context, path string, sampleSeconds, n int) (string, error) {
	if n < 2 {
		n = 2
	}
	first, err := i.ComputeMediaID(ctx, path, sampleSeconds)
	if err != nil {
		return "", err
	}
	for attempt := 1; attempt < n; attempt++ {
		next, err := i.ComputeMediaID(ctx, path, sampleSeconds)
		if err != nil {
			return "", err
		}
		if next != first {
			return "", services.Wrap(services.ErrValidation, "identity", "verify",
				fmt.Sprintf("fingerprint unstable: run %d produced %s, expected %s", attempt+1, next, first), nil)
		}
	}
	return first, nil
}
