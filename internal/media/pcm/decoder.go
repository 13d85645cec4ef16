package pcm

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"subpipe/internal/media/ffprobe"
	"subpipe/internal/services"
)

// Sample format constants for the canonical decode target.
const (
	SampleRate = 16000
	Channels   = 1
)

// Decoder decodes media audio to raw mono 16 kHz signed 16-bit PCM and
// reports container duration. Implementations shell out to external tools.
type Decoder interface {
	// Duration returns the total duration in seconds. known is false when the
	// container does not report a usable duration.
	Duration(ctx context.Context, path string) (seconds float64, known bool, err error)
	// Decode returns raw PCM bytes for the window starting at offset seconds
	// with the given length in seconds. A negative length decodes to the end
	// of the stream.
	Decode(ctx context.Context, path string, offset, length float64) ([]byte, error)
}

// FFmpegDecoder implements Decoder using ffmpeg and ffprobe binaries.
type FFmpegDecoder struct {
	FFmpegBinary  string
	FFprobeBinary string
}

// NewFFmpegDecoder builds a decoder around the given binaries; empty values
// fall back to PATH lookup of "ffmpeg"/"ffprobe".
func NewFFmpegDecoder(ffmpegBinary, ffprobeBinary string) *FFmpegDecoder {
	if strings.TrimSpace(ffmpegBinary) == "" {
		ffmpegBinary = "ffmpeg"
	}
	if strings.TrimSpace(ffprobeBinary) == "" {
		ffprobeBinary = "ffprobe"
	}
	return &FFmpegDecoder{FFmpegBinary: ffmpegBinary, FFprobeBinary: ffprobeBinary}
}

// Duration probes the container via ffprobe.
func (d *FFmpegDecoder) Duration(ctx context.Context, path string) (float64, bool, error) {
	result, err := ffprobe.Inspect(ctx, d.FFprobeBinary, path)
	if err != nil {
		return 0, false, services.Wrap(services.ErrExternalTool, "pcm", "probe", "", err)
	}
	seconds, known := result.DurationSeconds()
	return seconds, known, nil
}

// Decode extracts raw mono 16 kHz s16le PCM from the source. The decode is
// format- and codec-independent; only the decoded samples reach the caller.
func (d *FFmpegDecoder) Decode(ctx context.Context, path string, offset, length float64) ([]byte, error) {
	args := buildDecodeArgs(path, offset, length)

	cmd := exec.CommandContext(ctx, d.FFmpegBinary, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		return nil, services.Wrap(services.ErrExternalTool, "pcm", "decode", detail, err)
	}
	return stdout.Bytes(), nil
}

// ExtractWAV writes the full audio stream of source to dest as a mono 16 kHz
// WAV file. Used when rehydrating or demuxing the store-owned audio copy.
func (d *FFmpegDecoder) ExtractWAV(ctx context.Context, source, dest string) error {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-nostdin",
		"-i", source,
		"-vn",
		"-sn",
		"-dn",
		"-ac", strconv.Itoa(Channels),
		"-ar", strconv.Itoa(SampleRate),
		"-c:a", "pcm_s16le",
		dest,
	}
	cmd := exec.CommandContext(ctx, d.FFmpegBinary, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		detail := strings.TrimSpace(string(output))
		return services.Wrap(services.ErrExternalTool, "pcm", "extract", detail, err)
	}
	return nil
}

func buildDecodeArgs(path string, offset, length float64) []string {
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-nostdin",
	}
	if offset > 0 {
		args = append(args, "-ss", formatSeconds(offset))
	}
	if length >= 0 {
		args = append(args, "-t", formatSeconds(length))
	}
	return append(args,
		"-i", path,
		"-vn",
		"-sn",
		"-dn",
		"-ac", strconv.Itoa(Channels),
		"-ar", strconv.Itoa(SampleRate),
		"-f", "s16le",
		"-",
	)
}

func formatSeconds(value float64) string {
	return strconv.FormatFloat(value, 'f', 3, 64)
}

var _ Decoder = (*FFmpegDecoder)(nil)

// String describes the decoder configuration for diagnostics.
func (d *FFmpegDecoder) String() string {
	return fmt.Sprintf("ffmpeg=%s ffprobe=%s", d.FFmpegBinary, d.FFprobeBinary)
}
