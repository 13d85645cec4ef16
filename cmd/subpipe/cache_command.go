package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the baseline artifact cache",
	}

	cacheCmd.AddCommand(newCacheStatusCommand(ctx))
	cacheCmd.AddCommand(newCacheListCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))
	cacheCmd.AddCommand(newCacheInvalidateCommand(ctx))

	return cacheCmd
}

func newCacheStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show cache usage and disk headroom",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, warn, err := ctx.openStore(nil)
			if warn != "" {
				fmt.Fprintln(cmd.OutOrStdout(), warn)
			}
			if err != nil || store == nil {
				return err
			}

			stats, err := store.Stats()
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, stats)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Cache root: %s\n", store.Root())
			fmt.Fprintf(out, "Entries:    %d (%d baselines, %d glossary results)\n",
				stats.Entries, stats.BaselineCount, stats.GlossaryCount)
			fmt.Fprintf(out, "Size:       %s\n", humanize.IBytes(uint64(stats.TotalSizeBytes)))
			fmt.Fprintf(out, "Disk:       %s free of %s\n",
				humanize.IBytes(stats.FreeSpaceBytes), humanize.IBytes(stats.DiskTotalBytes))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit machine-readable JSON")
	return cmd
}

func newCacheListCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached media entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, warn, err := ctx.openStore(nil)
			if warn != "" {
				fmt.Fprintln(cmd.OutOrStdout(), warn)
			}
			if err != nil || store == nil {
				return err
			}

			entries, err := store.List()
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Cache is empty")
				return nil
			}

			const stampLayout = "2006-01-02 15:04"
			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				created := ""
				if !entry.Metadata.CreatedAt.IsZero() {
					created = entry.Metadata.CreatedAt.Local().Format(stampLayout)
				}
				rows = append(rows, []string{
					shortID(entry.MediaID),
					yesNo(entry.HasBaseline),
					fmt.Sprintf("%d", entry.Metadata.SegmentCount),
					fmt.Sprintf("%d", entry.GlossaryCount),
					humanize.IBytes(uint64(entry.SizeBytes)),
					created,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"MEDIA ID", "BASELINE", "SEGMENTS", "GLOSSARY", "SIZE", "CREATED"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit machine-readable JSON")
	return cmd
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "clear [media-id]",
		Short: "Remove cached entries",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, warn, err := ctx.openStore(nil)
			if warn != "" {
				fmt.Fprintln(cmd.OutOrStdout(), warn)
			}
			if err != nil || store == nil {
				return err
			}

			switch {
			case all:
				if !store.ClearAll(cmd.Context()) {
					return fmt.Errorf("clear cache at %s", store.Root())
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared")
			case len(args) == 1:
				mediaID := strings.TrimSpace(args[0])
				if mediaID == "" {
					return fmt.Errorf("media id must not be empty")
				}
				if !store.ClearBaseline(cmd.Context(), mediaID) || !store.ClearGlossary(cmd.Context(), mediaID, "") {
					return fmt.Errorf("clear entry %s", mediaID)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", mediaID)
			default:
				return fmt.Errorf("pass a media id or --all")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Remove every cached entry")
	return cmd
}

func newCacheInvalidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "invalidate <media-file>",
		Short: "Recompute a file's fingerprint and drop its cached baseline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}
			jrnl, err := ctx.openJournal()
			if err != nil {
				return err
			}
			defer jrnl.Close()

			orch, warn, err := ctx.newOrchestrator(logger, jrnl)
			if warn != "" {
				fmt.Fprintln(cmd.OutOrStdout(), warn)
			}
			if err != nil {
				return err
			}
			if !orch.Enabled() {
				return nil
			}

			if !orch.Invalidate(cmd.Context(), args[0]) {
				return fmt.Errorf("invalidate cache entry for %s", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Invalidated cached baseline for %s\n", args[0])
			return nil
		},
	}
}

func shortID(id string) string {
	if len(id) > 16 {
		return id[:16] + "…"
	}
	return id
}
