package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"subpipe/internal/deps"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check external tool availability and configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			statuses := deps.CheckBinaries(deps.ForConfig(cfg))
			rows := make([][]string, 0, len(statuses))
			for _, status := range statuses {
				state := "ok"
				if !status.Available {
					state = "missing"
				}
				rows = append(rows, []string{status.Name, status.Command, state, status.Detail})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"TOOL", "COMMAND", "STATUS", "DETAIL"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
			))

			fmt.Fprintf(out, "Cache enabled:   %s (%s)\n", yesNo(cfg.Cache.Enabled), cfg.Paths.CacheDir)
			fmt.Fprintf(out, "Journal enabled: %s\n", yesNo(cfg.Journal.Enabled))
			fmt.Fprintf(out, "Sample window:   %ds\n", cfg.Identity.SampleSeconds)

			if missing := deps.MissingRequired(statuses); len(missing) > 0 {
				return fmt.Errorf("missing required tools: %s", strings.Join(missing, ", "))
			}
			fmt.Fprintln(out, "All required tools available")
			return nil
		},
	}
}
