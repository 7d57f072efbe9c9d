package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Remove the optimizer's scratch directories from the workspace",
		Long:  "Remove every subdirectory of the workspace. The results file, the optimizer config and the marker are left alone.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := newService(cfg).Reset(cfg.Workspace.Dir); err != nil {
				return err
			}
			fmt.Printf("Cleared scratch directories under %s\n", cfg.Workspace.Dir)
			return nil
		},
	}
}
