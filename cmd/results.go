package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/signalnine/tuneloop/internal/config"
	"github.com/signalnine/tuneloop/internal/objective"
	"github.com/signalnine/tuneloop/internal/report"
)

var (
	flagFormat string
	flagTop    int
)

func newResultsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "results",
		Short: "Show completed evaluations ranked by score",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return writeResults(cfg, flagFormat, flagTop)
		},
	}
	cmd.Flags().StringVar(&flagFormat, "format", "table", "output format (table, markdown, json)")
	cmd.Flags().IntVar(&flagTop, "top", 0, "show only the best N rows (0 shows all)")
	return cmd
}

func writeResults(cfg *config.Config, format string, top int) error {
	svc := newService(cfg)
	params, scores, err := svc.Extract()
	if err != nil {
		return err
	}
	st, err := svc.Status()
	if err != nil {
		return err
	}
	s := report.Build(params, scores, st, objective.ParamNames(cfg.Parameters), top)
	return report.Write(s, format, os.Stdout)
}
