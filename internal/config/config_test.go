package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalnine/tuneloop/internal/config"
)

func TestLoadMinimal(t *testing.T) {
	cfg, err := config.Load("../../testdata/minimal.yaml")
	require.NoError(t, err)

	assert.Equal(t, "results.dat", cfg.Workspace.ResultsFile)
	assert.Equal(t, ".suggest", cfg.Workspace.SignalFile)
	assert.Equal(t, "config.json", cfg.Workspace.OptimizerConfig)
	assert.Equal(t, 100*time.Millisecond, cfg.Signal.PollInterval)
	assert.Zero(t, cfg.Signal.Timeout)
	require.Len(t, cfg.Parameters, 1)
	assert.Equal(t, "int", cfg.Parameters[0].Type)
	assert.Equal(t, 1, cfg.Parameters[0].Size)
	assert.Equal(t, 1, cfg.Driver.Parallel)
	assert.Equal(t, 3, cfg.Driver.MaxEmptyRounds)
	assert.Equal(t, "1", cfg.Driver.Duration)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, filepath.Join("spearmint", "results.dat"), cfg.ResultsPath())
	assert.Equal(t, filepath.Join("spearmint", ".suggest"), cfg.SignalPath())
	assert.Equal(t, filepath.Join("spearmint", "config.json"), cfg.OptimizerConfigPath())
}

func TestLoadFull(t *testing.T) {
	cfg, err := config.Load("../../testdata/full.yaml")
	require.NoError(t, err)

	assert.Equal(t, 250*time.Millisecond, cfg.Signal.PollInterval)
	assert.Equal(t, 15*time.Minute, cfg.Signal.Timeout)
	require.Len(t, cfg.Parameters, 3)
	assert.Equal(t, []string{"relu", "tanh", "sigmoid"}, cfg.Parameters[2].Options)
	assert.Equal(t, []string{"python3", "train.py"}, cfg.Objective.Command)
	assert.Equal(t, 20*time.Minute, cfg.Objective.Timeout)
	assert.Equal(t, "spearmint-lite:latest", cfg.Optimizer.Image)
	assert.Equal(t, int64(2147483648), cfg.Optimizer.MemoryLimit)
	assert.Equal(t, 4, cfg.Driver.Parallel)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadMissing(t *testing.T) {
	_, err := config.Load("nonexistent.yaml")
	assert.Error(t, err)
}

func TestLoadInvalid(t *testing.T) {
	_, err := config.Load("../../testdata/invalid.yaml")
	assert.Error(t, err)
}

func TestLoadBadBounds(t *testing.T) {
	_, err := config.Load("../../testdata/bad_bounds.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min")
}

const params = `
parameters:
  - name: X
    type: int
    min: 1
    max: 10
`

func loadInline(t *testing.T, body string) (*config.Config, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tuneloop.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body+params), 0o644))
	return config.Load(path)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	tests := []struct {
		name     string
		duration string
	}{
		{"placeholder", `"P"`},
		{"two tokens", `"1 9"`},
		{"not a number", `fast`},
		{"nan", `"NaN"`},
		{"hex float", `"0x1p-2"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadInline(t, "workspace:\n  dir: ws\ndriver:\n  duration: "+tt.duration+"\n")
			require.Error(t, err)
			assert.Contains(t, err.Error(), "driver.duration")
		})
	}
}

func TestLoadAcceptsNumericDuration(t *testing.T) {
	cfg, err := loadInline(t, "workspace:\n  dir: ws\ndriver:\n  duration: \"2.5\"\n")
	require.NoError(t, err)
	assert.Equal(t, "2.5", cfg.Driver.Duration)
}

func TestLoadRejectsResultsInsideWorkspace(t *testing.T) {
	tests := []struct {
		name string
		body string
		ok   bool
	}{
		{"results below workspace", "workspace:\n  dir: ws\nresults:\n  dir: ws/runs\n", false},
		{"results equal to workspace", "workspace:\n  dir: ws\nresults:\n  dir: ./ws\n", false},
		{"workspace is the current directory", "workspace:\n  dir: .\n", false},
		{"sibling directories", "workspace:\n  dir: ws\nresults:\n  dir: runs\n", true},
		{"name sharing a prefix", "workspace:\n  dir: ws\nresults:\n  dir: ws-runs\n", true},
		{"workspace below results", "workspace:\n  dir: runs/ws\nresults:\n  dir: runs\n", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadInline(t, tt.body)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), "results.dir")
		})
	}
}
