package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/signalnine/tuneloop/internal/record"
)

func newReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report <score> <param>...",
		Short: "Record the score of one evaluated configuration",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkReportArgs(args); err != nil {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			svc := newService(cfg)
			before, err := svc.Status()
			if err != nil {
				return err
			}
			if err := svc.ReportOne(args[1:], args[0]); err != nil {
				return err
			}
			after, err := svc.Status()
			if err != nil {
				return err
			}
			if after.Completed == before.Completed {
				return fmt.Errorf("no pending row matches %q", strings.Join(args[1:], " "))
			}
			fmt.Printf("Recorded %s for %s\n", args[0], strings.Join(args[1:], " "))
			return nil
		},
	}
}

// checkReportArgs rejects values that would corrupt the space-separated row.
func checkReportArgs(args []string) error {
	if err := record.CheckNumber(args[0]); err != nil {
		return fmt.Errorf("score: %w", err)
	}
	for _, a := range args[1:] {
		if a == "" || strings.ContainsAny(a, " \t\r\n") {
			return fmt.Errorf("parameter %q must be a single non-empty token", a)
		}
	}
	return nil
}
