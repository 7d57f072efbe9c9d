// Package coord implements the driver side of the results-file protocol: it
// claims pending rows written by the optimizer, reports scores back into the
// same file and extracts finished evaluations.
package coord

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/signalnine/tuneloop/internal/record"
	"github.com/signalnine/tuneloop/internal/result"
)

// DefaultDuration is written into the duration column of reported rows. Real
// evaluation time is not fed back to the optimizer.
const DefaultDuration = "1"

var logger = logrus.WithFields(logrus.Fields{
	"app":       "tuneloop",
	"component": "coord",
})

// Service coordinates one workspace. Calls are serialized; there is no lock
// against the optimizer process.
type Service struct {
	mu       sync.Mutex
	store    *result.Store
	tracker  *DirtyTracker
	duration string
}

type Option func(*Service)

// WithDuration overrides the duration token written for reported rows. A
// value that is not a single finite number would shift columns or keep the row
// pending, so it is ignored and the default stays in effect.
func WithDuration(d string) Option {
	return func(s *Service) {
		if d == "" {
			return
		}
		if err := record.CheckNumber(d); err != nil {
			logger.WithError(err).Warn("Ignoring invalid duration.")
			return
		}
		s.duration = d
	}
}

func NewService(store *result.Store, tracker *DirtyTracker, opts ...Option) *Service {
	if tracker == nil {
		tracker = NewDirtyTracker()
	}
	s := &Service{store: store, tracker: tracker, duration: DefaultDuration}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) Tracker() *DirtyTracker {
	return s.tracker
}

// Next claims the first pending row, in file order, that has not been handed
// out yet. ok is false when every pending row is already claimed.
func (s *Service) Next() (params []string, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.store.ReadAll()
	if err != nil {
		return nil, false, err
	}
	for _, r := range recs {
		if !r.Pending() || s.tracker.Has(r.Params) {
			continue
		}
		s.tracker.Mark(r.Params)
		logger.WithField("params", r.Params).Debug("Claimed pending configuration.")
		return r.Params, true, nil
	}
	return nil, false, nil
}

type scored struct {
	score  string
	params []string
}

// invert turns score -> params into params -> score. Entries are applied in
// ascending score order, so when two scores carry the same params the greater
// score wins.
func invert(resultsByScore map[string][]string) map[string]scored {
	scores := make([]string, 0, len(resultsByScore))
	for score := range resultsByScore {
		scores = append(scores, score)
	}
	sort.Strings(scores)

	byParams := make(map[string]scored, len(scores))
	for _, score := range scores {
		params := resultsByScore[score]
		byParams[record.Key(params)] = scored{score: score, params: params}
	}
	return byParams
}

// Report writes scores into the pending rows whose params match. Every other
// row is written back exactly as it was read.
func (s *Service) Report(resultsByScore map[string][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byParams := invert(resultsByScore)

	recs, err := s.store.ReadAll()
	if err != nil {
		return err
	}

	lines := make([]string, 0, len(recs))
	updated := 0
	for _, r := range recs {
		if hit, ok := byParams[r.Key()]; ok && r.Pending() {
			lines = append(lines, record.Format(r.Params, hit.score, s.duration))
			updated++
			continue
		}
		lines = append(lines, r.Raw)
	}
	if err := s.store.ReplaceAll(lines); err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"reported": len(resultsByScore),
		"updated":  updated,
	}).Debug("Rewrote results file.")
	return nil
}

// ReportOne records a single score.
func (s *Service) ReportOne(params []string, score string) error {
	return s.Report(map[string][]string{score: params})
}

// Extract returns every completed row in file order as parallel slices.
func (s *Service) Extract() (params [][]string, scores []string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.store.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	for _, r := range recs {
		if r.Pending() {
			continue
		}
		params = append(params, r.Params)
		scores = append(scores, r.Score)
	}
	return params, scores, nil
}

// Reset forgets all claims and removes the scratch directories directly under
// dir. Removal is best effort and a missing dir is not an error.
func (s *Service) Reset(dir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tracker.Reset()

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("listing workspace %s: %w", dir, err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if err := os.RemoveAll(path); err != nil {
			logger.WithError(err).WithField("path", path).Warn("Could not remove scratch directory.")
		}
	}
	return nil
}

// Status summarizes the results file as the driver sees it.
type Status struct {
	Pending   int `json:"pending"`
	Claimed   int `json:"claimed"`
	Completed int `json:"completed"`
}

func (s *Service) Status() (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.store.ReadAll()
	if err != nil {
		return Status{}, err
	}
	var st Status
	for _, r := range recs {
		switch {
		case !r.Pending():
			st.Completed++
		case s.tracker.Has(r.Params):
			st.Claimed++
		default:
			st.Pending++
		}
	}
	return st, nil
}
