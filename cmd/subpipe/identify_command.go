package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"subpipe/internal/identity"
)

func newIdentifyCommand(ctx *commandContext) *cobra.Command {
	var verifyRuns int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "identify <media-file>",
		Short: "Compute a media file's content fingerprint",
		Long: "Computes the content-based media id used to key the artifact cache.\n" +
			"The id depends only on sampled audio content, so renames and container\n" +
			"changes keep the same id while re-encodes change it.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}
			identifier, err := ctx.newIdentifier(logger)
			if err != nil {
				return err
			}

			mediaFile := args[0]
			var mediaID string
			if verifyRuns > 1 {
				mediaID, err = identifier.VerifyStability(cmd.Context(), mediaFile, cfg.Identity.SampleSeconds, verifyRuns)
			} else {
				mediaID, err = identifier.ComputeMediaID(cmd.Context(), mediaFile, cfg.Identity.SampleSeconds)
			}
			if err != nil {
				return fmt.Errorf("identify %s: %w", mediaFile, err)
			}

			if jsonOut {
				return writeJSON(cmd, map[string]any{
					"media_file":     mediaFile,
					"media_id":       mediaID,
					"sample_seconds": cfg.Identity.SampleSeconds,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), mediaID)
			return nil
		},
	}

	cmd.Flags().IntVar(&verifyRuns, "verify", 1, "Recompute the id N times and fail if any run differs")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit machine-readable JSON")
	return cmd
}

func newGlossaryHashCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "glossary-hash <glossary-file>",
		Short:       "Compute the content hash used to key glossary results",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		Args:        cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), identity.GlossaryHash(args[0]))
			return nil
		},
	}
}
