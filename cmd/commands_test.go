package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	ws := filepath.Join(dir, "ws")
	cfg := "workspace:\n  dir: " + ws + "\n" +
		"parameters:\n  - name: X\n    type: int\n    min: 1\n    max: 10\n" +
		"objective:\n  command: [\"sh\", \"-c\", \"echo $1\", \"objective\"]\n" +
		"results:\n  dir: " + filepath.Join(dir, "results") + "\n"
	path := filepath.Join(dir, "tuneloop.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path, ws
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	root := NewRootCmd()
	root.SetArgs(args)
	return root.Execute()
}

func TestInitReportResetCommands(t *testing.T) {
	cfgPath, ws := writeConfig(t)

	require.NoError(t, execute(t, "--config", cfgPath, "init"))
	assert.FileExists(t, filepath.Join(ws, "config.json"))
	assert.FileExists(t, filepath.Join(ws, "results.dat"))

	require.NoError(t, os.WriteFile(filepath.Join(ws, "results.dat"), []byte("P P 4\n"), 0o644))
	require.NoError(t, execute(t, "--config", cfgPath, "report", "0.5", "4"))
	data, err := os.ReadFile(filepath.Join(ws, "results.dat"))
	require.NoError(t, err)
	assert.Equal(t, "0.5 1 4\n", string(data))

	assert.Error(t, execute(t, "--config", cfgPath, "report", "0.5", "9"))

	require.NoError(t, os.MkdirAll(filepath.Join(ws, "scratch"), 0o755))
	require.NoError(t, execute(t, "--config", cfgPath, "reset"))
	assert.NoDirExists(t, filepath.Join(ws, "scratch"))
	assert.FileExists(t, filepath.Join(ws, "results.dat"))

	require.NoError(t, execute(t, "--config", cfgPath, "results", "--format", "json"))
	require.NoError(t, execute(t, "--config", cfgPath, "status"))
}

func TestNextCommandUsesExistingRow(t *testing.T) {
	cfgPath, ws := writeConfig(t)
	require.NoError(t, execute(t, "--config", cfgPath, "init"))
	require.NoError(t, os.WriteFile(filepath.Join(ws, "results.dat"), []byte("P P 3\n"), 0o644))
	require.NoError(t, execute(t, "--config", cfgPath, "next"))
	assert.NoFileExists(t, filepath.Join(ws, ".suggest"))
}

func TestReportCommandRejectsUnreadableScores(t *testing.T) {
	cfgPath, ws := writeConfig(t)
	require.NoError(t, execute(t, "--config", cfgPath, "init"))
	results := filepath.Join(ws, "results.dat")
	require.NoError(t, os.WriteFile(results, []byte("P P 4\n"), 0o644))

	for _, score := range []string{"NaN", "-Inf", "0x1p-2"} {
		assert.Error(t, execute(t, "--config", cfgPath, "report", "--", score, "4"), score)
	}
	data, err := os.ReadFile(results)
	require.NoError(t, err)
	assert.Equal(t, "P P 4\n", string(data))
}
