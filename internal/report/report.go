// Package report renders what the results file and the driver's evaluation
// records say about a search.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/signalnine/tuneloop/internal/coord"
	"github.com/signalnine/tuneloop/internal/result"
)

type Row struct {
	Rank   int      `json:"rank"`
	Score  string   `json:"score"`
	Params []string `json:"params"`
}

type Summary struct {
	Names     []string `json:"names,omitempty"`
	Completed int      `json:"completed"`
	Pending   int      `json:"pending"`
	Claimed   int      `json:"claimed"`
	Best      *Row     `json:"best,omitempty"`
	Rows      []Row    `json:"rows"`
}

// Build ranks completed rows by ascending numeric score, the direction the
// optimizer minimizes. Scores that do not parse sort last in file order.
// top limits the rows kept; zero keeps all.
func Build(params [][]string, scores []string, status coord.Status, names []string, top int) *Summary {
	rows := make([]Row, len(scores))
	for i := range scores {
		rows[i] = Row{Score: scores[i], Params: params[i]}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return scoreValue(rows[i].Score) < scoreValue(rows[j].Score)
	})
	for i := range rows {
		rows[i].Rank = i + 1
	}

	s := &Summary{
		Names:     names,
		Completed: len(rows),
		Pending:   status.Pending,
		Claimed:   status.Claimed,
	}
	if len(rows) > 0 {
		best := rows[0]
		s.Best = &best
	}
	if top > 0 && len(rows) > top {
		rows = rows[:top]
	}
	s.Rows = rows
	return s
}

func scoreValue(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return math.Inf(1)
	}
	return v
}

func Write(s *Summary, format string, w io.Writer) error {
	switch format {
	case "markdown":
		return writeMarkdown(s, w)
	case "json":
		return writeJSON(s, w)
	default:
		return writeTable(s, w)
	}
}

func header(s *Summary) []string {
	cols := []string{"RANK", "SCORE"}
	if len(s.Rows) > 0 && len(s.Names) == len(s.Rows[0].Params) {
		return append(cols, s.Names...)
	}
	return append(cols, "PARAMS")
}

func cells(s *Summary, r Row) []string {
	c := []string{strconv.Itoa(r.Rank), r.Score}
	if len(s.Names) == len(r.Params) {
		return append(c, r.Params...)
	}
	return append(c, strings.Join(r.Params, " "))
}

func writeTable(s *Summary, w io.Writer) error {
	fmt.Fprintf(w, "Completed: %d  Pending: %d  Claimed: %d\n", s.Completed, s.Pending, s.Claimed)
	if len(s.Rows) == 0 {
		fmt.Fprintln(w, "No completed evaluations.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header(s), "\t"))
	fmt.Fprintln(tw, strings.Repeat("-", 60))
	for _, r := range s.Rows {
		fmt.Fprintln(tw, strings.Join(cells(s, r), "\t"))
	}
	return tw.Flush()
}

func writeMarkdown(s *Summary, w io.Writer) error {
	fmt.Fprintf(w, "Completed: %d, pending: %d, claimed: %d\n\n", s.Completed, s.Pending, s.Claimed)
	h := header(s)
	fmt.Fprintf(w, "| %s |\n", strings.Join(h, " | "))
	fmt.Fprintf(w, "|%s\n", strings.Repeat("---|", len(h)))
	for _, r := range s.Rows {
		fmt.Fprintf(w, "| %s |\n", strings.Join(cells(s, r), " | "))
	}
	return nil
}

func writeJSON(s *Summary, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// RunSummary aggregates the evaluation records of one driver run.
type RunSummary struct {
	Evaluations   int            `json:"evaluations"`
	Reported      int            `json:"reported"`
	ByExitReason  map[string]int `json:"by_exit_reason"`
	MeanDurationS float64        `json:"mean_duration_s"`
}

func Aggregate(metas []*result.EvaluationMeta) RunSummary {
	rs := RunSummary{ByExitReason: map[string]int{}}
	var total float64
	for _, m := range metas {
		rs.Evaluations++
		rs.ByExitReason[m.ExitReason]++
		total += m.DurationS
		if m.Reported {
			rs.Reported++
		}
	}
	if rs.Evaluations > 0 {
		rs.MeanDurationS = total / float64(rs.Evaluations)
	}
	return rs
}

// GenerateRun reads every evaluation record under runDir and writes the aggregate.
func GenerateRun(runDir, format string, w io.Writer) error {
	metas, err := result.CollectEvaluationMetas(runDir)
	if err != nil {
		return err
	}
	rs := Aggregate(metas)

	reasons := make([]string, 0, len(rs.ByExitReason))
	for k := range rs.ByExitReason {
		reasons = append(reasons, k)
	}
	sort.Strings(reasons)

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rs)
	case "markdown":
		fmt.Fprintln(w, "| Exit reason | Evaluations |")
		fmt.Fprintln(w, "|---|---|")
		for _, k := range reasons {
			fmt.Fprintf(w, "| %s | %d |\n", k, rs.ByExitReason[k])
		}
		fmt.Fprintf(w, "\n%d evaluations, %d reported, mean duration %.1fs\n", rs.Evaluations, rs.Reported, rs.MeanDurationS)
		return nil
	default:
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "EXIT REASON\tEVALUATIONS")
		for _, k := range reasons {
			fmt.Fprintf(tw, "%s\t%d\n", k, rs.ByExitReason[k])
		}
		fmt.Fprintf(tw, "TOTAL\t%d (reported %d, mean %.1fs)\n", rs.Evaluations, rs.Reported, rs.MeanDurationS)
		return tw.Flush()
	}
}
