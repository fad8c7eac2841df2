package stats

import (
	"math"

	"github.com/okian/scholardash/internal/domain/model"
	"github.com/volatiletech/null/v8"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Method names the t-test variant used.
type Method string

const (
	Pooled Method = "pooled"
	Welch  Method = "welch"
)

const defaultAlpha = 0.05

// Options configures Compare.
type Options struct {
	Alpha         float64
	EqualVariance bool
}

// DefaultOptions is a pooled test at p < 0.05.
func DefaultOptions() Options {
	return Options{Alpha: defaultAlpha, EqualVariance: true}
}

// Sample is a named cohort projected onto one metric.
type Sample struct {
	Name   string
	Values []float64
}

// Comparison contrasts two samples on one metric.
type Comparison struct {
	Metric      string       `json:"metric"`
	A           Group        `json:"a"`
	B           Group        `json:"b"`
	MeanDiff    null.Float64 `json:"mean_diff"`
	MedianDiff  null.Float64 `json:"median_diff"`
	Method      Method       `json:"method"`
	TStat       null.Float64 `json:"t_stat"`
	PValue      null.Float64 `json:"p_value"`
	DF          null.Float64 `json:"df"`
	Alpha       float64      `json:"alpha"`
	Significant bool         `json:"significant"`
	Available   bool         `json:"available"`
	Reason      string       `json:"reason,omitempty"`
}

// Group is one side of a comparison.
type Group struct {
	Name string `json:"name"`
	Summary
}

// Compare runs the descriptive contrast and an independent two-sample
// t-test of a against b. Differences are a minus b. An empty side yields an
// unavailable result with no statistic.
func Compare(metric string, a, b Sample, opts Options) Comparison {
	if opts.Alpha <= 0 || opts.Alpha >= 1 {
		opts.Alpha = defaultAlpha
	}
	c := Comparison{
		Metric: metric,
		A:      Group{Name: a.Name, Summary: Describe(a.Values)},
		B:      Group{Name: b.Name, Summary: Describe(b.Values)},
		Method: Welch,
		Alpha:  opts.Alpha,
	}
	if opts.EqualVariance {
		c.Method = Pooled
	}
	if len(a.Values) == 0 || len(b.Values) == 0 {
		c.Reason = model.ErrEmptyCohort.Error()
		return c
	}

	c.Available = true
	c.MeanDiff = Diff(c.A.Mean, c.B.Mean)
	c.MedianDiff = Diff(c.A.Median, c.B.Median)

	t, df, ok := tStatistic(a.Values, b.Values, c.Method)
	if !ok {
		c.Reason = "t-test undefined for these samples"
		return c
	}
	st := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p := 2 * st.Survival(math.Abs(t))
	c.TStat = null.Float64From(t)
	c.DF = null.Float64From(df)
	c.PValue = null.Float64From(p)
	c.Significant = p < c.Alpha
	return c
}

// tStatistic returns the t statistic and degrees of freedom. ok is false when
// the test is undefined: too few values or zero spread.
func tStatistic(a, b []float64, m Method) (t, df float64, ok bool) {
	n1, n2 := float64(len(a)), float64(len(b))
	mean1, mean2 := stat.Mean(a, nil), stat.Mean(b, nil)
	ss1, ss2 := sumSquares(a, mean1), sumSquares(b, mean2)

	var se float64
	switch m {
	case Pooled:
		df = n1 + n2 - 2
		if df <= 0 {
			return 0, 0, false
		}
		pooledVar := (ss1 + ss2) / df
		se = math.Sqrt(pooledVar * (1/n1 + 1/n2))
	case Welch:
		if n1 < 2 || n2 < 2 {
			return 0, 0, false
		}
		v1, v2 := ss1/(n1-1)/n1, ss2/(n2-1)/n2
		se = math.Sqrt(v1 + v2)
		den := v1*v1/(n1-1) + v2*v2/(n2-1)
		if den == 0 {
			return 0, 0, false
		}
		df = (v1 + v2) * (v1 + v2) / den
	}
	if se == 0 || math.IsNaN(se) {
		return 0, 0, false
	}
	return (mean1 - mean2) / se, df, true
}

func sumSquares(xs []float64, mean float64) float64 {
	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return ss
}
