// Package report renders simulation summaries as terminal tables.
package report

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/okian/champsim/internal/adapters/repository"
	"github.com/okian/champsim/internal/domain/champion"
	"github.com/okian/champsim/internal/domain/scoring"
	"github.com/okian/champsim/internal/domain/ties"
	"github.com/okian/champsim/internal/domain/types"
)

var criterionLabels = map[types.Criterion]string{
	types.ByPoints:  "By points",
	types.ByWins:    "By wins",
	types.BySeconds: "By second places",
	types.ByThirds:  "By third places",
	types.FullyTied: "Fully tied",
}

// CriterionLabel returns the human label for c.
func CriterionLabel(c types.Criterion) string {
	if l, ok := criterionLabels[c]; ok {
		return l
	}
	return c.String()
}

// PositionLabel renders a finishing position, e.g. "1st" or "Did not score".
func PositionLabel(pos int) string {
	if pos == scoring.Sentinel {
		return "Did not score"
	}
	suffix := "th"
	switch {
	case pos%100 >= 11 && pos%100 <= 13:
	case pos%10 == 1:
		suffix = "st"
	case pos%10 == 2:
		suffix = "nd"
	case pos%10 == 3:
		suffix = "rd"
	}
	return strconv.Itoa(pos) + suffix
}

// Grouped formats n with comma thousands separators.
func Grouped[T ~int | ~int64 | ~uint64](n T) string {
	s := fmt.Sprintf("%d", n)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

func newWriter(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle(title)
	return t
}

func rightAligned(columns ...int) []table.ColumnConfig {
	out := make([]table.ColumnConfig, len(columns))
	for i, n := range columns {
		out[i] = table.ColumnConfig{Number: n, Align: text.AlignRight, AlignFooter: text.AlignRight}
	}
	return out
}

// Summary writes the champion, criterion and cross tabulation tables.
func Summary(w io.Writer, sum repository.Summary) {
	t := newWriter(w, "Title chances")
	t.AppendHeader(table.Row{"Champion", "States", "Combinations", "Chance"})
	for _, c := range sum.ByChampion {
		t.AppendRow(table.Row{c.Champion.DisplayName(), Grouped(c.States), Grouped(c.Combinations), fmt.Sprintf("%.2f%%", c.ChancePct)})
	}
	t.AppendFooter(table.Row{"Total", Grouped(sum.States), Grouped(sum.Combinations), ""})
	t.SetColumnConfigs(rightAligned(2, 3, 4))
	t.Render()

	t = newWriter(w, "Deciding criterion")
	t.AppendHeader(table.Row{"Criterion", "Combinations", "Share"})
	for _, c := range sum.ByCriterion {
		t.AppendRow(table.Row{CriterionLabel(c.Criterion), Grouped(c.Combinations), fmt.Sprintf("%.2f%%", c.Pct)})
	}
	t.SetColumnConfigs(rightAligned(2, 3))
	t.Render()

	t = newWriter(w, "Champion by criterion")
	t.AppendHeader(table.Row{"Champion", "Criterion", "Combinations", "Share"})
	for _, c := range sum.Cross {
		t.AppendRow(table.Row{c.Champion.DisplayName(), CriterionLabel(c.Criterion), Grouped(c.Combinations), fmt.Sprintf("%.4f%%", c.Pct)})
	}
	t.SetColumnConfigs(rightAligned(3, 4))
	t.Render()
}

// Ties writes the tie-scenario summary table.
func Ties(w io.Writer, sum ties.Summary) {
	t := newWriter(w, "Points ties at the top")
	t.AppendHeader(table.Row{"Tie", "Scenarios"})
	pairs := make([]string, 0, len(sum.ByPair))
	for p := range sum.ByPair {
		pairs = append(pairs, p)
	}
	slices.Sort(pairs)
	for _, p := range pairs {
		t.AppendRow(table.Row{"Double: " + p, Grouped(sum.ByPair[p])})
	}
	t.AppendRow(table.Row{"Triple", Grouped(sum.Triples)})
	t.AppendFooter(table.Row{"Total", Grouped(sum.Total)})
	t.SetColumnConfigs(rightAligned(2))
	t.Render()

	if sum.Total > 0 {
		fmt.Fprintf(w, "Tie points range: %d to %d\n", sum.MinPoints, sum.MaxPoints)
	}
}

// Run writes one line describing a population run.
func Run(w io.Writer, run repository.Run, computed bool) {
	if !computed {
		fmt.Fprintf(w, "%s already populated, nothing recomputed\n", run.Table)
		return
	}
	fmt.Fprintf(w, "%s populated: %s states, %s combinations in %s (run %s)\n",
		run.Table, Grouped(run.States), Grouped(run.Combinations), run.Duration.Round(time.Millisecond), run.ID)
}

// Projection writes the final ranking produced by champion.Project.
func Projection(w io.Writer, p champion.Projection) {
	t := newWriter(w, "Projected standings")
	t.AppendHeader(table.Row{"#", "Driver", "Points", "Gained", "Wins", "Seconds", "Thirds"})
	for i, d := range p.Order {
		s := p.Final[d]
		t.AppendRow(table.Row{i + 1, d.DisplayName(), s.Points, "+" + strconv.Itoa(p.Gains[d].Points), s.Wins, s.Seconds, s.Thirds})
	}
	t.SetColumnConfigs(rightAligned(3, 4, 5, 6, 7))
	t.Render()
	fmt.Fprintf(w, "Champion: %s (%s)\n", p.Champion.DisplayName(), CriterionLabel(p.Criterion))
}
