package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/signalnine/tuneloop/internal/runner"
)

func newNextCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "next",
		Short: "Print the next pending configuration",
		Long:  "Print one pending parameter vector, asking the optimizer for suggestions first when the results file has none. Claims are held in memory, so separate invocations may print the same vector.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			d := &runner.Driver{
				Service:        newService(cfg),
				Signal:         newChannel(cfg),
				MaxEmptyRounds: cfg.Driver.MaxEmptyRounds,
				RetryInterval:  cfg.Signal.PollInterval,
			}
			params, err := d.Claim(context.Background())
			if err != nil {
				return err
			}
			fmt.Println(strings.Join(params, " "))
			return nil
		},
	}
}
