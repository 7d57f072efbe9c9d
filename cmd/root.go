package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/signalnine/tuneloop/internal/config"
	"github.com/signalnine/tuneloop/internal/coord"
	"github.com/signalnine/tuneloop/internal/logging"
	"github.com/signalnine/tuneloop/internal/result"
	"github.com/signalnine/tuneloop/internal/signal"
)

var cfgFile string

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "tuneloop",
		Short:        "Drive an external hyperparameter optimizer through its results file",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "tuneloop.yaml", "config file path")
	root.AddCommand(newInitCmd())
	root.AddCommand(newRunCmd())
	root.AddCommand(newNextCmd())
	root.AddCommand(newReportCmd())
	root.AddCommand(newResultsCmd())
	root.AddCommand(newSummaryCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(newResetCmd())
	return root
}

// loadConfig reads the config file and configures logging from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	logging.Configure(cfg.Logging, os.Stderr)
	return cfg, nil
}

func newService(cfg *config.Config) *coord.Service {
	return coord.NewService(result.NewStore(cfg.ResultsPath()), nil, coord.WithDuration(cfg.Driver.Duration))
}

func newChannel(cfg *config.Config) *signal.Channel {
	return signal.New(cfg.SignalPath(), signal.Options{
		PollInterval: cfg.Signal.PollInterval,
		Timeout:      cfg.Signal.Timeout,
		NoWatch:      cfg.Signal.NoWatch,
	})
}
