package stats

import (
	"math"

	"github.com/volatiletech/null/v8"
	"gonum.org/v1/gonum/stat"
)

// Pearson returns the correlation of x and y. It is undefined with fewer than
// two pairs or when either side has zero variance.
func Pearson(x, y []float64) null.Float64 {
	if len(x) != len(y) || len(x) < 2 {
		return null.Float64{}
	}
	if stat.Variance(x, nil) == 0 || stat.Variance(y, nil) == 0 {
		return null.Float64{}
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) {
		return null.Float64{}
	}
	return null.Float64From(r)
}

// Fit is an ordinary least squares line y = Intercept + Slope*x.
type Fit struct {
	Intercept null.Float64 `json:"intercept"`
	Slope     null.Float64 `json:"slope"`
	R2        null.Float64 `json:"r2"`
}

// At evaluates the line at x.
func (f Fit) At(x float64) null.Float64 {
	if !f.Intercept.Valid || !f.Slope.Valid {
		return null.Float64{}
	}
	return null.Float64From(f.Intercept.Float64 + f.Slope.Float64*x)
}

// LinearFit fits an OLS trend line. It is undefined when x has no spread.
func LinearFit(x, y []float64) Fit {
	if len(x) != len(y) || len(x) < 2 || stat.Variance(x, nil) == 0 {
		return Fit{}
	}
	alpha, beta := stat.LinearRegression(x, y, nil, false)
	f := Fit{Intercept: null.Float64From(alpha), Slope: null.Float64From(beta)}
	if stat.Variance(y, nil) > 0 {
		f.R2 = null.Float64From(stat.RSquared(x, y, nil, alpha, beta))
	}
	return f
}
