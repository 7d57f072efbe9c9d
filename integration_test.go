//go:build integration

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/signalnine/tuneloop/internal/config"
	"github.com/signalnine/tuneloop/internal/coord"
	"github.com/signalnine/tuneloop/internal/docker"
	"github.com/signalnine/tuneloop/internal/objective"
	"github.com/signalnine/tuneloop/internal/result"
	"github.com/signalnine/tuneloop/internal/runner"
	"github.com/signalnine/tuneloop/internal/signal"
	"github.com/signalnine/tuneloop/internal/workspace"
)

// fakeOptimizer answers each suggestion request with one pending row.
const fakeOptimizer = `i=0
while true; do
  if [ -f /workspace/.suggest ]; then
    i=$((i+1))
    echo "P P $i" >> /workspace/results.dat
    rm -f /workspace/.suggest
  fi
  sleep 0.1
done`

func TestIntegrationContainerOptimizer(t *testing.T) {
	if os.Getenv("TUNELOOP_DOCKER_TESTS") == "" {
		t.Skip("set TUNELOOP_DOCKER_TESTS=1 to run")
	}

	dir := t.TempDir()
	cfg := &config.Config{
		Workspace: config.Workspace{
			Dir:             filepath.Join(dir, "ws"),
			ResultsFile:     "results.dat",
			SignalFile:      ".suggest",
			OptimizerConfig: "config.json",
		},
		Parameters: []config.Parameter{{Name: "X", Type: "int", Min: 1, Max: 100, Size: 1}},
		Objective: config.Objective{
			Command: []string{"sh", "-c", `echo "$1"`, "objective"},
			Timeout: time.Minute,
		},
	}
	if err := workspace.Init(cfg); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ctr, err := docker.Start(ctx, &docker.RunOpts{
		Image:        "busybox:latest",
		Command:      []string{"sh", "-c", fakeOptimizer},
		WorkspaceDir: cfg.Workspace.Dir,
		UserID:       fmt.Sprintf("%d:%d", os.Getuid(), os.Getgid()),
	})
	if err != nil {
		t.Fatalf("starting optimizer: %v", err)
	}
	defer ctr.Stop()

	runDir, err := result.CreateRunDir(filepath.Join(dir, "results"))
	if err != nil {
		t.Fatal(err)
	}
	svc := coord.NewService(result.NewStore(cfg.ResultsPath()), nil)
	d := &runner.Driver{
		Service:        svc,
		Signal:         signal.New(cfg.SignalPath(), signal.Options{Timeout: 30 * time.Second}),
		Evaluator:      objective.NewEvaluator(cfg.Objective, cfg.Parameters),
		RunDir:         runDir,
		Parallel:       2,
		MaxEmptyRounds: 3,
	}
	sum, err := d.Run(ctx, 4)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.Completed != 4 {
		t.Errorf("completed = %d, want 4", sum.Completed)
	}

	params, scores, err := svc.Extract()
	if err != nil {
		t.Fatal(err)
	}
	if len(scores) != 4 {
		t.Fatalf("extracted %d rows, want 4", len(scores))
	}
	for i := range scores {
		if scores[i] != strings.Join(params[i], " ") {
			t.Errorf("row %d: score %q for params %v", i, scores[i], params[i])
		}
	}
}
