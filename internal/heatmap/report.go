package heatmap

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	service "github.com/okian/scholardash/internal/app"
	"github.com/olekukonko/tablewriter"
	"github.com/volatiletech/null/v8"
)

var (
	heading = color.New(color.FgYellow, color.Bold)
	warn    = color.New(color.FgRed)
)

// Report writes the tier matrix, the per-axis correlations and the per-tier
// improvement statistics as console tables.
func Report(w io.Writer, hm service.Heatmap) {
	if !hm.Available {
		_, _ = warn.Fprintf(w, "Heat map not available: %s\n", hm.Reason)
		return
	}

	_, _ = heading.Fprintf(w, "\nStudents improving by more than %g points (%d)\n", hm.Above, len(hm.Rows))
	matrix := newTable(w, append(append([]string{"Student"}, hm.Axes...), "Improvement"))
	for _, r := range hm.Rows {
		row := make([]string, 0, len(r.Tiers)+2)
		row = append(row, strconv.FormatInt(int64(r.StudentID), 10))
		for _, t := range r.Tiers {
			row = append(row, tierCell(t))
		}
		row = append(row, strconv.FormatFloat(r.Improvement, 'f', -1, 64))
		matrix.Append(row)
	}
	matrix.Render()

	_, _ = heading.Fprintln(w, "\nCorrelation with improvement")
	corr := newTable(w, []string{"Tier set", "N", "r"})
	for _, c := range hm.Correlations {
		corr.Append([]string{c.Metric, strconv.Itoa(c.N), number(c.R)})
	}
	corr.Render()

	for _, a := range hm.ByTier {
		_, _ = heading.Fprintf(w, "\nImprovement by %s\n", a.Axis)
		t := newTable(w, []string{"Tier", "N", "Mean", "Std"})
		for _, s := range a.Tiers {
			t.Append([]string{s.Label, strconv.Itoa(s.N), number(s.Mean), number(s.Std)})
		}
		t.Render()
	}

	if hm.MalformedTiers > 0 {
		_, _ = warn.Fprintf(w, "\n%d tier labels could not be read and were left blank\n", hm.MalformedTiers)
	}
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetHeader(header)
	t.SetAutoFormatHeaders(false)
	t.SetAlignment(tablewriter.ALIGN_RIGHT)
	return t
}

func tierCell(code int) string {
	if code == 0 {
		return "-"
	}
	return strconv.Itoa(code)
}

func number(v null.Float64) string {
	if !v.Valid {
		return "n/a"
	}
	return fmt.Sprintf("%.3f", v.Float64)
}
