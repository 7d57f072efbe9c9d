// Package objective runs the user's objective command for one parameter vector
// and reads the score it prints.
package objective

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/signalnine/tuneloop/internal/config"
	"github.com/signalnine/tuneloop/internal/record"
	"github.com/signalnine/tuneloop/internal/result"
)

// ErrNoScore means the command exited cleanly but printed nothing parseable.
var ErrNoScore = errors.New("objective printed no score")

type Evaluator struct {
	Command []string
	Env     map[string]string
	Names   []string
	Timeout time.Duration
}

type Outcome struct {
	Score    string
	Stdout   string
	Stderr   string
	ExitCode int
	TimedOut bool
	Duration time.Duration
}

// NewEvaluator builds an evaluator from the objective section and the
// parameter list, whose names become environment variables.
func NewEvaluator(obj config.Objective, params []config.Parameter) *Evaluator {
	return &Evaluator{
		Command: obj.Command,
		Env:     obj.Env,
		Names:   ParamNames(params),
		Timeout: obj.Timeout,
	}
}

// ParamNames expands the parameter list into one name per results-file column.
// A parameter of size n > 1 becomes NAME_1 .. NAME_n.
func ParamNames(params []config.Parameter) []string {
	var names []string
	for _, p := range params {
		size := p.Size
		if size < 1 {
			size = 1
		}
		if size == 1 {
			names = append(names, p.Name)
			continue
		}
		for i := 1; i <= size; i++ {
			names = append(names, fmt.Sprintf("%s_%d", p.Name, i))
		}
	}
	return names
}

// BuildCommand appends the parameter values to the configured command.
func (e *Evaluator) BuildCommand(params []string) []string {
	cmd := make([]string, 0, len(e.Command)+len(params))
	cmd = append(cmd, e.Command...)
	return append(cmd, params...)
}

// BuildEnv exposes the vector as TUNELOOP_PARAMS and, when the column names are
// known, as one PARAM_<NAME> variable per value.
func (e *Evaluator) BuildEnv(params []string) []string {
	env := os.Environ()
	for k, v := range e.Env {
		env = append(env, k+"="+v)
	}
	env = append(env, "TUNELOOP_PARAMS="+strings.Join(params, " "))
	if len(e.Names) == len(params) {
		for i, name := range e.Names {
			env = append(env, "PARAM_"+envName(name)+"="+params[i])
		}
	}
	return env
}

// Evaluate runs the command in workDir. A non-zero exit or a timeout is
// reported in the Outcome, not as an error; err is set only when the command
// could not be started or printed no score.
func (e *Evaluator) Evaluate(ctx context.Context, params []string, workDir string) (*Outcome, error) {
	if len(e.Command) == 0 {
		return nil, fmt.Errorf("objective command is not configured")
	}
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	argv := e.BuildCommand(params)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = workDir
	cmd.Env = e.BuildEnv(params)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Grandchildren holding the pipes open must not outlive the timeout.
	cmd.WaitDelay = 5 * time.Second

	start := time.Now()
	err := cmd.Run()
	out := &Outcome{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("running objective: %w", err)
		}
		out.ExitCode = exitErr.ExitCode()
		out.TimedOut = errors.Is(ctx.Err(), context.DeadlineExceeded)
		return out, nil
	}

	score, err := ParseScore(out.Stdout)
	if err != nil {
		return out, err
	}
	out.Score = score
	return out, nil
}

// ParseScore returns the last line of output that is a single number. The
// token is returned as printed so no precision is lost on the way to the
// results file. A last number the optimizer could not read back (NaN, an
// infinity, a hex float) counts as no score.
func ParseScore(output string) (string, error) {
	lines := strings.Split(output, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if _, err := strconv.ParseFloat(line, 64); err != nil && !errors.Is(err, strconv.ErrRange) {
			continue
		}
		if err := record.CheckNumber(line); err != nil {
			return "", fmt.Errorf("%w: %w", ErrNoScore, err)
		}
		return line, nil
	}
	return "", ErrNoScore
}

// ExitReason classifies an outcome the way evaluation metadata records it.
func ExitReason(out *Outcome, err error) string {
	switch {
	case out == nil:
		return result.ExitFailed
	case out.TimedOut:
		return result.ExitTimeout
	case out.ExitCode != 0:
		return result.ExitFailed
	case errors.Is(err, ErrNoScore):
		return result.ExitNoScore
	case err != nil:
		return result.ExitFailed
	default:
		return result.ExitCompleted
	}
}

func envName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
