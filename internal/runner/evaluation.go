package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/signalnine/tuneloop/internal/coord"
	"github.com/signalnine/tuneloop/internal/objective"
	"github.com/signalnine/tuneloop/internal/result"
)

type EvaluationOpts struct {
	Evaluator *objective.Evaluator
	Service   *coord.Service
	Params    []string
	RunDir    string
}

// RunEvaluation evaluates one claimed vector and, when the objective produced a
// score, reports it into the results file. A failed objective is recorded in
// the returned meta; err is reserved for problems with the driver itself.
func RunEvaluation(ctx context.Context, opts *EvaluationOpts) (*result.EvaluationMeta, error) {
	id := uuid.NewString()
	evalDir := result.EvaluationDir(opts.RunDir, id)
	workDir := filepath.Join(evalDir, "work")
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating evaluation dir: %w", err)
	}

	log := logger.WithFields(logrus.Fields{
		"evaluation": id,
		"params":     opts.Params,
	})

	meta := &result.EvaluationMeta{
		ID:        id,
		Params:    opts.Params,
		Names:     opts.Evaluator.Names,
		StartedAt: time.Now().UTC(),
	}
	out, evalErr := opts.Evaluator.Evaluate(ctx, opts.Params, workDir)
	meta.ExitReason = objective.ExitReason(out, evalErr)
	if out != nil {
		meta.Score = out.Score
		meta.ExitCode = out.ExitCode
		meta.DurationS = out.Duration.Seconds()
		writeOutput(evalDir, out, log)
	}
	if evalErr != nil {
		meta.Error = evalErr.Error()
	}
	if out == nil && evalErr != nil && !errors.Is(evalErr, objective.ErrNoScore) {
		result.WriteEvaluationMeta(evalDir, meta)
		return meta, evalErr
	}

	if meta.Completed() {
		if err := opts.Service.ReportOne(opts.Params, meta.Score); err != nil {
			meta.Error = err.Error()
			result.WriteEvaluationMeta(evalDir, meta)
			return meta, fmt.Errorf("reporting score: %w", err)
		}
		meta.Reported = true
		log.WithField("score", meta.Score).Info("Evaluation completed.")
	} else {
		log.WithFields(logrus.Fields{
			"exit_reason": meta.ExitReason,
			"exit_code":   meta.ExitCode,
		}).Warn("Evaluation produced no score; vector stays claimed.")
	}

	if err := result.WriteEvaluationMeta(evalDir, meta); err != nil {
		return meta, fmt.Errorf("writing meta: %w", err)
	}
	return meta, nil
}

func writeOutput(evalDir string, out *objective.Outcome, log *logrus.Entry) {
	for name, data := range map[string]string{
		"stdout.log": out.Stdout,
		"stderr.log": out.Stderr,
	} {
		if err := os.WriteFile(filepath.Join(evalDir, name), []byte(data), 0o644); err != nil {
			log.WithError(err).Warn("Could not write objective output.")
		}
	}
}
