package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"whiskproc/internal/deps"
	"whiskproc/internal/report"
)

func newCheckCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the external tools are available",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			statuses := deps.CheckBinaries(deps.Requirements(cfg))
			fmt.Fprint(cmd.OutOrStdout(), report.RenderDeps(statuses, report.Colorize(os.Stdout)))
			if missing := deps.MissingRequired(statuses); len(missing) > 0 {
				return fmt.Errorf("missing required tools: %s", strings.Join(missing, ", "))
			}
			return nil
		},
	}
}
