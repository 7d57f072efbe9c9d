package signal_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalnine/tuneloop/internal/signal"
)

// fakeOptimizer removes the marker once it appears, after delay.
func fakeOptimizer(t *testing.T, path string, delay time.Duration, sizes chan<- int64) {
	t.Helper()
	go func() {
		for i := 0; i < 500; i++ {
			if info, err := os.Stat(path); err == nil {
				if sizes != nil {
					sizes <- info.Size()
				}
				time.Sleep(delay)
				os.Remove(path)
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
	}()
}

func TestRequestAndAwaitReturnsAfterRemoval(t *testing.T) {
	for _, noWatch := range []bool{false, true} {
		t.Run(map[bool]string{false: "watch", true: "poll"}[noWatch], func(t *testing.T) {
			path := filepath.Join(t.TempDir(), ".suggest")
			ch := signal.New(path, signal.Options{PollInterval: 10 * time.Millisecond, Timeout: 5 * time.Second, NoWatch: noWatch})

			fakeOptimizer(t, path, 50*time.Millisecond, nil)

			start := time.Now()
			require.NoError(t, ch.RequestAndAwait(context.Background()))
			assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
			assert.False(t, ch.Pending())
		})
	}
}

func TestRequestAndAwaitTruncatesMarker(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".suggest")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))
	ch := signal.New(path, signal.Options{PollInterval: 10 * time.Millisecond, Timeout: 5 * time.Second})

	sizes := make(chan int64, 1)
	fakeOptimizer(t, path, 0, sizes)

	require.NoError(t, ch.RequestAndAwait(context.Background()))
	assert.Equal(t, int64(0), <-sizes)
}

func TestRequestAndAwaitTimeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".suggest")
	ch := signal.New(path, signal.Options{PollInterval: 10 * time.Millisecond, Timeout: 100 * time.Millisecond})

	err := ch.RequestAndAwait(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, signal.ErrTimeout))
	assert.True(t, ch.Pending(), "marker must stay for the optimizer")
}

func TestRequestAndAwaitCanceled(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".suggest")
	ch := signal.New(path, signal.Options{PollInterval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	err := ch.RequestAndAwait(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRequestAndAwaitMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gone", ".suggest")
	ch := signal.New(path, signal.Options{})

	err := ch.RequestAndAwait(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, signal.ErrTimeout))
}

func TestAwaitWithoutMarkerReturnsImmediately(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".suggest")
	ch := signal.New(path, signal.Options{Timeout: time.Second})
	assert.NoError(t, ch.Await(context.Background()))
}

func TestDefaultPollInterval(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".suggest")
	ch := signal.New(path, signal.Options{})
	assert.Equal(t, path, ch.Path())
	assert.False(t, ch.Pending())
}
