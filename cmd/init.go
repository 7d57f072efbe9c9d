package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/signalnine/tuneloop/internal/workspace"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the workspace and write the optimizer config",
		Long:  "Create the workspace directory, write the optimizer's config.json from the parameters section and create an empty results file if there is none.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := workspace.Init(cfg); err != nil {
				return err
			}
			fmt.Printf("Workspace:        %s\n", cfg.Workspace.Dir)
			fmt.Printf("Optimizer config: %s\n", cfg.OptimizerConfigPath())
			fmt.Printf("Results file:     %s\n", cfg.ResultsPath())
			return nil
		},
	}
}
