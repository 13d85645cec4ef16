package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"subpipe/internal/media/pcm"
)

func newExtractAudioCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "extract-audio <media-file>",
		Short: "Extract a media file's audio as mono 16 kHz WAV",
		Long: "Extracts the audio stream in the pipeline's demux format. Useful for\n" +
			"priming a job directory by hand or inspecting what the fingerprinting\n" +
			"stage actually hashes.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			source := args[0]
			dest := strings.TrimSpace(output)
			if dest == "" {
				base := filepath.Base(source)
				dest = strings.TrimSuffix(base, filepath.Ext(base)) + ".wav"
			}
			if err := os.MkdirAll(filepath.Dir(filepath.Clean(dest)), 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}

			decoder := pcm.NewFFmpegDecoder(cfg.Tools.FFmpeg, cfg.Tools.FFprobe)
			if err := decoder.ExtractWAV(cmd.Context(), source, dest); err != nil {
				return fmt.Errorf("extract audio from %s: %w", source, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", dest)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination WAV path (defaults to <media>.wav in the current directory)")
	return cmd
}
