package result

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/signalnine/tuneloop/internal/record"
)

// ErrIO marks failures to read or write the results file. A missing file means
// the workspace was never initialized and is reported the same way.
var ErrIO = errors.New("results file i/o")

// Store owns the results file shared with the optimizer.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string {
	return s.path
}

// ReadAll parses every line of the results file in file order. Lines with too
// few tokens, including a partially written trailing line, are skipped.
func (s *Store) ReadAll() ([]record.Record, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %w", ErrIO, s.path, err)
	}
	defer f.Close()

	var records []record.Record
	r := bufio.NewReader(f)
	for {
		line, err := r.ReadString('\n')
		if line != "" {
			if rec, ok := record.Parse(line); ok {
				records = append(records, rec)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %w", ErrIO, s.path, err)
		}
	}
	return records, nil
}

// ReplaceAll writes lines, in order, as the complete new content of the results
// file. The content goes to a temp file in the same directory first and is
// renamed over the original, so readers see either the old or the new file.
func (s *Store) ReplaceAll(lines []string) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: creating temp file: %w", ErrIO, err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpPath)
	}

	w := bufio.NewWriter(tmp)
	for _, line := range lines {
		if _, err := w.WriteString(line); err != nil {
			cleanup()
			return fmt.Errorf("%w: writing %s: %w", ErrIO, tmpPath, err)
		}
	}
	if err := w.Flush(); err != nil {
		cleanup()
		return fmt.Errorf("%w: writing %s: %w", ErrIO, tmpPath, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		cleanup()
		return fmt.Errorf("%w: chmod %s: %w", ErrIO, tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: closing %s: %w", ErrIO, tmpPath, err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: replacing %s: %w", ErrIO, s.path, err)
	}
	return nil
}
