package result

import "time"

// EvaluationMeta is what the driver records about one objective run, next to
// the results file row it resolved.
type EvaluationMeta struct {
	ID         string    `json:"id"`
	Params     []string  `json:"params"`
	Names      []string  `json:"names,omitempty"`
	Score      string    `json:"score,omitempty"`
	DurationS  float64   `json:"duration_s"`
	ExitCode   int       `json:"exit_code"`
	ExitReason string    `json:"exit_reason"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	Reported   bool      `json:"reported"`
}

// Completed reports whether the evaluation produced a score.
func (m *EvaluationMeta) Completed() bool {
	return m.ExitReason == ExitCompleted && m.Score != ""
}

const (
	ExitCompleted = "completed"
	ExitFailed    = "failed"
	ExitTimeout   = "timeout"
	ExitNoScore   = "no_score"
)
