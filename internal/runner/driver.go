// Package runner drives the optimization loop: it claims pending vectors from
// the results file, evaluates them with a bounded pool of workers, reports the
// scores and asks the optimizer for new suggestions when it runs dry.
package runner

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/sirupsen/logrus"

	"github.com/signalnine/tuneloop/internal/coord"
	"github.com/signalnine/tuneloop/internal/objective"
	"github.com/signalnine/tuneloop/internal/result"
	"github.com/signalnine/tuneloop/internal/signal"
)

// ErrNoSuggestions is returned when the optimizer answered every request
// without leaving a claimable pending row.
var ErrNoSuggestions = errors.New("optimizer produced no claimable configuration")

var logger = logrus.WithFields(logrus.Fields{
	"app":       "tuneloop",
	"component": "runner",
})

type Driver struct {
	Service   *coord.Service
	Signal    *signal.Channel
	Evaluator *objective.Evaluator
	RunDir    string
	Parallel  int
	// MaxEmptyRounds bounds how many suggestion round trips may come back
	// without a claimable row before giving up.
	MaxEmptyRounds int
	// RetryInterval is the first delay between empty rounds.
	RetryInterval time.Duration
}

type Summary struct {
	Evaluations int                      `json:"evaluations"`
	Completed   int                      `json:"completed"`
	Failed      int                      `json:"failed"`
	Metas       []*result.EvaluationMeta `json:"-"`
}

// Claim returns the next unclaimed pending vector, asking the optimizer for
// suggestions when the results file has none.
func (d *Driver) Claim(ctx context.Context) ([]string, error) {
	params, ok, err := d.Service.Next()
	if err != nil {
		return nil, err
	}
	if ok {
		return params, nil
	}
	return d.requestSuggestions(ctx)
}

func (d *Driver) requestSuggestions(ctx context.Context) ([]string, error) {
	rounds := d.MaxEmptyRounds
	if rounds < 1 {
		rounds = 1
	}
	b := backoff.NewExponentialBackOff()
	if d.RetryInterval > 0 {
		b.InitialInterval = d.RetryInterval
	}
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(rounds-1)), ctx)

	var (
		params []string
		round  int
	)
	err := backoff.Retry(func() error {
		round++
		if err := d.Signal.RequestAndAwait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		p, ok, err := d.Service.Next()
		if err != nil {
			return backoff.Permanent(err)
		}
		if !ok {
			logger.WithField("round", round).Warn("Optimizer answered without a claimable configuration.")
			return ErrNoSuggestions
		}
		params = p
		return nil
	}, policy)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	return params, nil
}

// claimBatch claims up to n vectors. It only asks the optimizer for more when
// nothing at all could be claimed from the file.
func (d *Driver) claimBatch(ctx context.Context, n int) ([][]string, error) {
	var batch [][]string
	for len(batch) < n {
		params, ok, err := d.Service.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			if len(batch) > 0 {
				break
			}
			params, err = d.requestSuggestions(ctx)
			if err != nil {
				return nil, err
			}
		}
		batch = append(batch, params)
	}
	return batch, nil
}

// Run evaluates vectors until iterations evaluations have finished, or until
// ctx is done when iterations is zero.
func (d *Driver) Run(ctx context.Context, iterations int) (*Summary, error) {
	parallel := d.Parallel
	if parallel < 1 {
		parallel = 1
	}
	sum := &Summary{}

	for iterations <= 0 || sum.Evaluations < iterations {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		want := parallel
		if iterations > 0 && iterations-sum.Evaluations < want {
			want = iterations - sum.Evaluations
		}
		batch, err := d.claimBatch(ctx, want)
		if err != nil {
			return sum, err
		}

		var mu sync.Mutex
		jobs := make([]Job, len(batch))
		for i, params := range batch {
			params := params
			jobs[i] = func(ctx context.Context) error {
				meta, err := RunEvaluation(ctx, &EvaluationOpts{
					Evaluator: d.Evaluator,
					Service:   d.Service,
					Params:    params,
					RunDir:    d.RunDir,
				})
				mu.Lock()
				defer mu.Unlock()
				if meta != nil {
					sum.Metas = append(sum.Metas, meta)
					sum.Evaluations++
					if meta.Reported {
						sum.Completed++
					} else {
						sum.Failed++
					}
				}
				return err
			}
		}
		if errs := RunPool(ctx, parallel, jobs); len(errs) > 0 {
			return sum, errors.Join(errs...)
		}
	}
	return sum, nil
}
