package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"whiskproc/internal/config"
	"whiskproc/internal/manifest"
)

func newStatusCommand(cmdCtx *commandContext) *cobra.Command {
	var outputFlag string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show which stages an output directory can resume from",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}

			outDir := outputFlag
			if outDir == "" {
				outDir = cfg.Paths.OutputDir
			}
			if outDir == "" {
				return fmt.Errorf("no output directory configured; pass --output")
			}
			outDir, err = config.ExpandPath(outDir)
			if err != nil {
				return err
			}

			store, err := manifest.Open(filepath.Join(outDir, "whiskproc-manifest.db"))
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "no completed stages recorded in %s\n", outDir)
				return nil
			}

			tw := table.NewWriter()
			tw.SetStyle(table.StyleRounded)
			tw.AppendHeader(table.Row{"channel", "stage", "artifact", "completed"})
			for _, entry := range entries {
				tw.AppendRow(table.Row{
					entry.Channel,
					entry.Stage,
					filepath.Base(entry.ArtifactPath),
					entry.CompletedAt.Local().Format(time.RFC3339),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), tw.Render())
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Output directory to inspect")
	return cmd
}
