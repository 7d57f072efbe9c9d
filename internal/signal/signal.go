// Package signal implements the marker-file handshake with the optimizer.
//
// The driver creates an empty marker file to ask for new suggestions. The
// optimizer deletes it once it has written its new pending rows. Only the
// existence of the file carries meaning, so at most one request can be
// outstanding at a time.
package signal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// DefaultPollInterval is used when Options leaves PollInterval unset.
const DefaultPollInterval = 100 * time.Millisecond

// ErrTimeout is returned when the optimizer does not remove the marker in time.
var ErrTimeout = errors.New("timed out waiting for optimizer")

var logger = logrus.WithFields(logrus.Fields{
	"app":       "tuneloop",
	"component": "signal",
})

type Options struct {
	// PollInterval is the time between existence checks of the marker.
	PollInterval time.Duration
	// Timeout bounds the wait. Zero waits until the context is done.
	Timeout time.Duration
	// NoWatch disables the fsnotify watcher and relies on polling alone, for
	// filesystems where change notification does not work (NFS, some FUSE mounts).
	NoWatch bool
}

// Channel is the driver end of the handshake for one marker path.
type Channel struct {
	path string
	opts Options
}

func New(path string, opts Options) *Channel {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	return &Channel{path: path, opts: opts}
}

func (c *Channel) Path() string {
	return c.path
}

// Pending reports whether a request is outstanding.
func (c *Channel) Pending() bool {
	return exists(c.path)
}

// RequestAndAwait creates the marker file, truncating an existing one, and
// blocks until the optimizer has removed it.
func (c *Channel) RequestAndAwait(ctx context.Context) error {
	f, err := os.Create(c.path)
	if err != nil {
		return fmt.Errorf("creating signal file %s: %w", c.path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing signal file %s: %w", c.path, err)
	}
	logger.WithField("path", c.path).Debug("Requested new suggestions.")
	return c.Await(ctx)
}

// Await blocks until the marker file no longer exists. The file is checked
// every PollInterval; filesystem events only make the next check happen sooner.
// On timeout or cancellation the marker is left in place for the optimizer.
func (c *Channel) Await(ctx context.Context) error {
	start := time.Now()

	var (
		events <-chan fsnotify.Event
		errs   <-chan error
	)
	if !c.opts.NoWatch {
		if w, err := c.watch(); err != nil {
			logger.WithError(err).Debug("Falling back to polling for signal file.")
		} else {
			defer w.Close()
			events, errs = w.Events, w.Errors
		}
	}

	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	var deadline <-chan time.Time
	if c.opts.Timeout > 0 {
		timer := time.NewTimer(c.opts.Timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		if !exists(c.path) {
			logger.WithFields(logrus.Fields{
				"path":   c.path,
				"waited": time.Since(start).String(),
			}).Debug("Optimizer removed signal file.")
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return fmt.Errorf("%w: %s still present after %s", ErrTimeout, c.path, c.opts.Timeout)
		case <-ticker.C:
		case _, ok := <-events:
			if !ok {
				events = nil
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.WithError(err).Debug("Signal file watcher error.")
		}
	}
}

func (c *Channel) watch() (*fsnotify.Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(c.path)); err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, os.ErrNotExist)
}
