// Package heatmap renders the tier heat map of the most improved students as
// a PNG and as console tables.
package heatmap

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"

	service "github.com/okian/scholardash/internal/app"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// ErrNoRows is returned when there is nothing to draw.
var ErrNoRows = errors.New("heat map has no rows")

const (
	cellWidth  = 1.2 * vg.Centimeter
	cellHeight = 0.45 * vg.Centimeter
	margin     = 4 * vg.Centimeter
)

// grid adapts heat map rows to plotter.GridXYZ: columns are tier axes, rows
// are students.
type grid struct {
	rows []service.HeatRow
	axes int
}

func (g grid) Dims() (c, r int) { return g.axes, len(g.rows) }

func (g grid) Z(c, r int) float64 { return float64(g.rows[r].Tiers[c]) }

func (g grid) X(c int) float64 { return float64(c) }

func (g grid) Y(r int) float64 { return float64(r) }

// Plot builds the heat map plot. Cells hold the tier code, 0 for undefined.
func Plot(hm service.Heatmap) (*plot.Plot, error) {
	if len(hm.Rows) == 0 {
		return nil, ErrNoRows
	}
	g := grid{rows: hm.Rows, axes: len(hm.Axes)}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Tiers of students improving by more than %g points (0 = no tier)", hm.Above)
	p.X.Label.Text = "Tier set"
	p.Y.Label.Text = "Student"

	pal := palette.Heat(4, 1)
	h := plotter.NewHeatMap(g, pal)
	h.Min, h.Max = 0, 3
	h.NaN = color.Transparent
	p.Add(h)

	xt := make([]plot.Tick, len(hm.Axes))
	for i, a := range hm.Axes {
		xt[i] = plot.Tick{Value: float64(i), Label: a}
	}
	p.X.Tick.Marker = plot.ConstantTicks(xt)

	yt := make([]plot.Tick, len(hm.Rows))
	for i, r := range hm.Rows {
		yt[i] = plot.Tick{Value: float64(i), Label: strconv.FormatInt(int64(r.StudentID), 10)}
	}
	p.Y.Tick.Marker = plot.ConstantTicks(yt)

	legend := plot.NewLegend()
	for code := 0; code < len(pal.Colors()); code++ {
		label := "No tier"
		if code > 0 {
			label = "Tier " + strconv.Itoa(code)
		}
		legend.Add(label, swatch{c: pal.Colors()[code]})
	}
	p.Legend = legend
	p.Legend.Top = true
	return p, nil
}

// Save writes the heat map to path. The format follows the extension.
func Save(hm service.Heatmap, path string) error {
	p, err := Plot(hm)
	if err != nil {
		return err
	}
	w := margin + cellWidth*vg.Length(len(hm.Axes))
	h := margin + cellHeight*vg.Length(len(hm.Rows))
	if err := p.Save(w, h, path); err != nil {
		return fmt.Errorf("heatmap.save: %w", err)
	}
	return nil
}
