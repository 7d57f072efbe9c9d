package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	ossignal "os/signal"
	"path/filepath"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/signalnine/tuneloop/internal/config"
	"github.com/signalnine/tuneloop/internal/docker"
	"github.com/signalnine/tuneloop/internal/objective"
	"github.com/signalnine/tuneloop/internal/report"
	"github.com/signalnine/tuneloop/internal/result"
	"github.com/signalnine/tuneloop/internal/runner"
	"github.com/signalnine/tuneloop/internal/workspace"
)

var (
	flagIterations    int
	flagParallel      int
	flagWithOptimizer bool
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate configurations suggested by the optimizer",
		RunE:  runLoop,
	}
	cmd.Flags().IntVar(&flagIterations, "iterations", 0, "override driver.iterations (0 keeps the config value)")
	cmd.Flags().IntVar(&flagParallel, "parallel", 0, "override driver.parallel")
	cmd.Flags().BoolVar(&flagWithOptimizer, "with-optimizer", false, "start the optimizer container from the optimizer section")
	return cmd
}

func runLoop(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyRunOverrides(cfg, flagIterations, flagParallel)

	if err := workspace.Init(cfg); err != nil {
		return err
	}
	runDir, err := result.CreateRunDir(cfg.Results.Dir)
	if err != nil {
		return err
	}
	fmt.Printf("Run directory: %s\n", runDir)

	ctx, stop := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if flagWithOptimizer {
		opts, err := optimizerOpts(cfg, fmt.Sprintf("%d:%d", os.Getuid(), os.Getgid()))
		if err != nil {
			return err
		}
		ctr, err := docker.Start(ctx, opts)
		if err != nil {
			return fmt.Errorf("starting optimizer: %w", err)
		}
		defer ctr.Stop()

		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(ctx)
		defer cancel()
		go watchOptimizer(ctx, ctr, cancel)
	}

	d := &runner.Driver{
		Service:        newService(cfg),
		Signal:         newChannel(cfg),
		Evaluator:      objective.NewEvaluator(cfg.Objective, cfg.Parameters),
		RunDir:         runDir,
		Parallel:       cfg.Driver.Parallel,
		MaxEmptyRounds: cfg.Driver.MaxEmptyRounds,
		RetryInterval:  cfg.Signal.PollInterval,
	}
	summary, runErr := d.Run(ctx, cfg.Driver.Iterations)
	if summary != nil {
		fmt.Printf("\n%d evaluations: %d reported, %d failed\n", summary.Evaluations, summary.Completed, summary.Failed)
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		fmt.Printf("  ERROR: %v\n", runErr)
	}

	fmt.Println("\n--- Evaluations ---")
	if err := report.GenerateRun(runDir, "table", os.Stdout); err != nil {
		return err
	}
	fmt.Println("\n--- Results ---")
	if err := writeResults(cfg, "table", 10); err != nil {
		return err
	}
	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}

// watchOptimizer cancels the run when the optimizer container exits, since no
// further suggestion request could be answered.
func watchOptimizer(ctx context.Context, ctr *docker.Container, cancel context.CancelFunc) {
	res, err := ctr.Wait(ctx)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		logrus.WithError(err).Warn("Lost track of the optimizer container.")
		cancel()
		return
	}
	logs, _ := ctr.Logs("20")
	logrus.WithFields(logrus.Fields{
		"exit_code": res.ExitCode,
		"duration":  res.Duration,
	}).Warnf("Optimizer container exited; stopping the run.\n%s", logs)
	cancel()
}

func applyRunOverrides(cfg *config.Config, iterations, parallel int) {
	if iterations > 0 {
		cfg.Driver.Iterations = iterations
	}
	if parallel > 0 {
		cfg.Driver.Parallel = parallel
	}
}

// optimizerOpts maps the optimizer section onto a container that sees the
// workspace at docker.WorkspaceMount. The file names are passed in the
// environment so the optimizer does not need its own copy of the config.
func optimizerOpts(cfg *config.Config, userID string) (*docker.RunOpts, error) {
	dir, err := filepath.Abs(cfg.Workspace.Dir)
	if err != nil {
		return nil, fmt.Errorf("resolving workspace: %w", err)
	}
	env := map[string]string{
		"TUNELOOP_WORKSPACE":        docker.WorkspaceMount,
		"TUNELOOP_RESULTS_FILE":     filepath.Join(docker.WorkspaceMount, cfg.Workspace.ResultsFile),
		"TUNELOOP_SIGNAL_FILE":      filepath.Join(docker.WorkspaceMount, cfg.Workspace.SignalFile),
		"TUNELOOP_OPTIMIZER_CONFIG": filepath.Join(docker.WorkspaceMount, cfg.Workspace.OptimizerConfig),
	}
	for k, v := range cfg.Optimizer.Env {
		env[k] = v
	}
	return &docker.RunOpts{
		Image:        cfg.Optimizer.Image,
		Command:      cfg.Optimizer.Command,
		WorkspaceDir: dir,
		Env:          env,
		CPULimit:     cfg.Optimizer.CPULimit,
		MemoryLimit:  cfg.Optimizer.MemoryLimit,
		UserID:       userID,
	}, nil
}
