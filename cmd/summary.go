package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/signalnine/tuneloop/internal/report"
)

var flagSummaryFormat string

func newSummaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary [run-dir]",
		Short: "Summarize the evaluations of a driver run",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			runDir := filepath.Join(cfg.Results.Dir, "latest")
			if len(args) > 0 {
				runDir = args[0]
			}
			resolved, err := filepath.EvalSymlinks(runDir)
			if err != nil {
				return fmt.Errorf("resolving run dir: %w", err)
			}
			return report.GenerateRun(resolved, flagSummaryFormat, os.Stdout)
		},
	}
	cmd.Flags().StringVar(&flagSummaryFormat, "format", "table", "output format (table, markdown, json)")
	return cmd
}
