// Package stats computes the descriptive statistics, cohort comparisons and
// correlations behind every analysis.
//
// Undefined results are null values, never NaN formatted as a number.
package stats

import (
	"math"
	"sort"

	"github.com/volatiletech/null/v8"
	"gonum.org/v1/gonum/stat"
)

// Summary describes one sample.
type Summary struct {
	N      int          `json:"n"`
	Mean   null.Float64 `json:"mean"`
	Median null.Float64 `json:"median"`
	Std    null.Float64 `json:"std"`
	Min    null.Float64 `json:"min"`
	Max    null.Float64 `json:"max"`
	Q1     null.Float64 `json:"q1"`
	Q3     null.Float64 `json:"q3"`
}

// Describe summarizes xs. The sample standard deviation needs two values.
func Describe(xs []float64) Summary {
	s := Summary{N: len(xs)}
	if len(xs) == 0 {
		return s
	}
	sorted := sortedCopy(xs)
	s.Mean = null.Float64From(stat.Mean(sorted, nil))
	s.Median = null.Float64From(Quantile(sorted, 0.5))
	s.Q1 = null.Float64From(Quantile(sorted, 0.25))
	s.Q3 = null.Float64From(Quantile(sorted, 0.75))
	s.Min = null.Float64From(sorted[0])
	s.Max = null.Float64From(sorted[len(sorted)-1])
	if len(sorted) > 1 {
		s.Std = null.Float64From(stat.StdDev(sorted, nil))
	}
	return s
}

// Mean returns the arithmetic mean, null for an empty sample.
func Mean(xs []float64) null.Float64 {
	if len(xs) == 0 {
		return null.Float64{}
	}
	return null.Float64From(stat.Mean(xs, nil))
}

// Quantile returns the p-quantile of an ascending sample by linear
// interpolation between closest ranks: h = (n-1)p.
func Quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 || p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}
	h := float64(n-1) * p
	lo := int(math.Floor(h))
	if lo+1 >= n {
		return sorted[n-1]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[lo+1]-sorted[lo])
}

// Share returns part/total*100, null when total is zero.
func Share(part, total int) null.Float64 {
	if total == 0 {
		return null.Float64{}
	}
	return null.Float64From(float64(part) / float64(total) * 100)
}

// Diff subtracts two nullable values.
func Diff(a, b null.Float64) null.Float64 {
	if !a.Valid || !b.Valid {
		return null.Float64{}
	}
	return null.Float64From(a.Float64 - b.Float64)
}

// Bin is one histogram bucket [Lo, Hi).
type Bin struct {
	Lo    float64 `json:"lo"`
	Hi    float64 `json:"hi"`
	Count int     `json:"count"`
}

// IntegerHistogram buckets xs with one bin per integer in [lo, hi]. Values
// outside the range are ignored.
func IntegerHistogram(xs []float64, lo, hi int) []Bin {
	if hi < lo {
		return nil
	}
	dividers := make([]float64, 0, hi-lo+2)
	for k := lo; k <= hi+1; k++ {
		dividers = append(dividers, float64(k)-0.5)
	}
	inRange := make([]float64, 0, len(xs))
	for _, x := range xs {
		if x >= dividers[0] && x < dividers[len(dividers)-1] {
			inRange = append(inRange, x)
		}
	}
	sort.Float64s(inRange)

	counts := stat.Histogram(nil, dividers, inRange, nil)
	bins := make([]Bin, len(counts))
	for i, c := range counts {
		bins[i] = Bin{Lo: dividers[i], Hi: dividers[i+1], Count: int(c)}
	}
	return bins
}

func sortedCopy(xs []float64) []float64 {
	out := make([]float64, len(xs))
	copy(out, xs)
	sort.Float64s(out)
	return out
}
