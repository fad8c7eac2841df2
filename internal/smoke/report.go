package smoke

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

// Report prints one row per route and a colored verdict.
func Report(w io.Writer, stats *Stats) {
	t := tablewriter.NewWriter(w)
	t.SetHeader([]string{"Route", "Requests", "OK", "Unavailable", "Failed", "Mean", "Reason"})
	t.SetAutoFormatHeaders(false)
	for _, r := range stats.Results {
		t.Append([]string{
			r.Path,
			strconv.Itoa(r.Requests),
			strconv.Itoa(r.OK),
			strconv.Itoa(r.Unavailable),
			strconv.Itoa(r.Failed),
			r.Mean().String(),
			r.Reason,
		})
	}
	t.Render()

	summary := fmt.Sprintf("%d requests in %s, %d failed", stats.Requests, stats.Duration.Round(time.Millisecond), stats.Failed)
	if stats.Failed > 0 {
		_, _ = color.New(color.FgRed, color.Bold).Fprintln(w, summary)
		return
	}
	_, _ = color.New(color.FgGreen, color.Bold).Fprintln(w, summary)
}
