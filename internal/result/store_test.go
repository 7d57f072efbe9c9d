package result_test

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalnine/tuneloop/internal/result"
)

func writeResults(t *testing.T, content string) *result.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "results.dat")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return result.NewStore(path)
}

func TestReadAllPreservesOrderAndSkipsNoise(t *testing.T) {
	store := writeResults(t, "P P 1 2 3\n\n0.87 1 4 5 6\nP\nP P 7 8 9")

	recs, err := store.ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 3)

	assert.Equal(t, []string{"1", "2", "3"}, recs[0].Params)
	assert.Equal(t, "P P 1 2 3\n", recs[0].Raw)
	assert.Equal(t, "0.87", recs[1].Score)
	assert.Equal(t, []string{"7", "8", "9"}, recs[2].Params)
	assert.Equal(t, "P P 7 8 9", recs[2].Raw)
}

func TestReadAllEmptyFile(t *testing.T) {
	store := writeResults(t, "")
	recs, err := store.ReadAll()
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestReadAllMissingFile(t *testing.T) {
	store := result.NewStore(filepath.Join(t.TempDir(), "results.dat"))
	_, err := store.ReadAll()
	require.Error(t, err)
	assert.True(t, errors.Is(err, result.ErrIO))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestReplaceAll(t *testing.T) {
	store := writeResults(t, "P P 1 2 3\nP P 4 5 6\n")

	require.NoError(t, store.ReplaceAll([]string{"0.87 1 1 2 3\n", "P P 4 5 6\n"}))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Equal(t, "0.87 1 1 2 3\nP P 4 5 6\n", string(data))

	entries, err := os.ReadDir(filepath.Dir(store.Path()))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")
}

func TestReplaceAllEmpty(t *testing.T) {
	store := writeResults(t, "P P 1\n")
	require.NoError(t, store.ReplaceAll(nil))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestReplaceAllMissingDir(t *testing.T) {
	store := result.NewStore(filepath.Join(t.TempDir(), "gone", "results.dat"))
	err := store.ReplaceAll([]string{"P P 1\n"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, result.ErrIO))
}
