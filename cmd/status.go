package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/signalnine/tuneloop/internal/objective"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the state of the results file and the marker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			st, err := newService(cfg).Status()
			if err != nil {
				return err
			}
			fmt.Printf("Results file: %s\n", cfg.ResultsPath())
			fmt.Printf("  completed: %d\n", st.Completed)
			fmt.Printf("  pending:   %d\n", st.Pending)
			if newChannel(cfg).Pending() {
				fmt.Printf("Suggestion request outstanding: %s\n", cfg.SignalPath())
			}
			fmt.Println("\nParameters:")
			for _, p := range cfg.Parameters {
				fmt.Printf("  - %s (%s, size %d)\n", p.Name, p.Type, p.Size)
			}
			fmt.Printf("\nObjective columns: %v\n", objective.ParamNames(cfg.Parameters))
			return nil
		},
	}
}
