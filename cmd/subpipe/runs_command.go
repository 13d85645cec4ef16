package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var mediaID string
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show recent cache decisions from the run journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.Journal.Enabled {
				fmt.Fprintln(cmd.OutOrStdout(), "Run journal is disabled (set enabled = true under [journal] in config.toml)")
				return nil
			}
			jrnl, err := ctx.openJournal()
			if err != nil {
				return err
			}
			defer jrnl.Close()

			events, err := jrnl.List(cmd.Context(), strings.TrimSpace(mediaID), limit)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, events)
			}
			if len(events) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No journaled cache events")
				return nil
			}

			rows := make([][]string, 0, len(events))
			for _, event := range events {
				rows = append(rows, []string{
					humanize.Time(event.CreatedAt),
					shortID(event.MediaID),
					event.Kind,
					event.Detail,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"WHEN", "MEDIA ID", "EVENT", "DETAIL"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&mediaID, "media", "", "Only show events for this media id")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum events to show (0 for all)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit machine-readable JSON")
	return cmd
}
