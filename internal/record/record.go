// Package record parses and formats single lines of the optimizer results file.
//
// A line has the shape "<score> <duration> <param1> ... <paramN>". The literal
// token "P" in the duration column marks a row the optimizer has suggested but
// nobody has evaluated yet.
package record

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Placeholder fills the score and duration columns of a row with no result yet.
const Placeholder = "P"

// minFields is score + duration + at least one parameter.
const minFields = 3

// Record is one parsed line of the results file.
type Record struct {
	Score    string
	Duration string
	Params   []string
	// Raw is the line exactly as it was read, used to pass untouched rows through
	// a rewrite byte for byte.
	Raw string
}

// Pending reports whether the row is still waiting for an evaluation. Only the
// duration column decides this.
func (r Record) Pending() bool {
	return r.Duration == Placeholder
}

// Key returns a string that identifies the parameter vector positionally.
func (r Record) Key() string {
	return Key(r.Params)
}

func (r Record) String() string {
	return strings.TrimSuffix(Format(r.Params, r.Score, r.Duration), "\n")
}

// Parse splits a results line on whitespace. ok is false for lines with fewer
// than three tokens, which callers skip as noise.
func Parse(line string) (Record, bool) {
	fields := strings.Fields(line)
	if len(fields) < minFields {
		return Record{}, false
	}
	return Record{
		Score:    fields[0],
		Duration: fields[1],
		Params:   fields[2:],
		Raw:      line,
	}, true
}

// Format renders a row with the mutable columns first, as the optimizer expects.
func Format(params []string, score, duration string) string {
	var b strings.Builder
	b.WriteString(score)
	b.WriteByte(' ')
	b.WriteString(duration)
	for _, p := range params {
		b.WriteByte(' ')
		b.WriteString(p)
	}
	b.WriteByte('\n')
	return b.String()
}

// Key joins params with a byte that cannot appear inside a whitespace-split token.
func Key(params []string) string {
	return strings.Join(params, "\x00")
}

// ErrNotNumber is returned by CheckNumber.
var ErrNotNumber = errors.New("not a finite decimal number")

// CheckNumber accepts a single token written as a plain decimal or exponent
// number. Hex floats, underscores, NaN and infinities are refused because the
// optimizer parses the score and duration columns with its own float parser.
func CheckNumber(tok string) error {
	if tok == "" || strings.Trim(tok, "0123456789+-.eE") != "" {
		return fmt.Errorf("%w: %q", ErrNotNumber, tok)
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %q", ErrNotNumber, tok)
	}
	return nil
}
