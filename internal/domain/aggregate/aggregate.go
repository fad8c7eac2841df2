// Package aggregate collapses per-period observations into one summary row
// per student.
package aggregate

import (
	"sort"

	"github.com/okian/scholardash/internal/domain/model"
	"github.com/volatiletech/null/v8"
)

// Kind selects how a metric is collapsed across a student's periods.
type Kind int

const (
	// Sum adds every defined value. All-null yields null.
	Sum Kind = iota
	// Mean averages the defined values. All-null yields null.
	Mean
	// PositiveShare is the percentage of defined values that are > 0.
	PositiveShare
)

// Metric declares one output metric read from an observation column.
type Metric struct {
	Name   string
	Column string
	Kind   Kind
}

// Ratio is derived after summation: Numerator / Denominator * Scale.
// Both operands must be output metric names.
type Ratio struct {
	Name        string
	Numerator   string
	Denominator string
	Scale       float64
}

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithMetric declares an output metric.
func WithMetric(name, column string, kind Kind) Option {
	return func(a *Aggregator) {
		a.metrics = append(a.metrics, Metric{Name: name, Column: column, Kind: kind})
	}
}

// WithRatio declares a derived rate.
func WithRatio(name, numerator, denominator string, scale float64) Option {
	return func(a *Aggregator) {
		if scale == 0 {
			scale = 1
		}
		a.ratios = append(a.ratios, Ratio{Name: name, Numerator: numerator, Denominator: denominator, Scale: scale})
	}
}

// WithTiers declares the tier axes to carry into the summary.
func WithTiers(axes ...string) Option {
	return func(a *Aggregator) {
		a.tiers = append(a.tiers, axes...)
	}
}

// Aggregator is a declarative per-metric aggregation plan.
type Aggregator struct {
	metrics []Metric
	ratios  []Ratio
	tiers   []string
}

// New creates an aggregator from opts.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate produces one summary per distinct student, ordered by id. The
// result does not depend on the order of obs.
func (a *Aggregator) Aggregate(obs []model.Observation) []model.StudentSummary {
	groups := make(map[model.StudentID][]model.Observation)
	for _, o := range obs {
		groups[o.StudentID] = append(groups[o.StudentID], o)
	}

	ids := make([]model.StudentID, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]model.StudentSummary, 0, len(ids))
	for _, id := range ids {
		out = append(out, a.summarize(id, groups[id]))
	}
	return out
}

func (a *Aggregator) summarize(id model.StudentID, rows []model.Observation) model.StudentSummary {
	s := model.StudentSummary{
		StudentID: id,
		Periods:   len(rows),
		Metrics:   make(map[string]null.Float64, len(a.metrics)+len(a.ratios)),
		Tiers:     make(map[string]null.String, len(a.tiers)),
	}

	for _, m := range a.metrics {
		values := defined(rows, m.Column)
		switch m.Kind {
		case Sum:
			s.Metrics[m.Name] = sum(values)
		case Mean:
			s.Metrics[m.Name] = mean(values)
		case PositiveShare:
			s.Metrics[m.Name] = positiveShare(values)
		}
	}

	for _, r := range a.ratios {
		s.Metrics[r.Name] = Rate(s.Metrics[r.Numerator], s.Metrics[r.Denominator], r.Scale)
	}

	for _, axis := range a.tiers {
		s.Tiers[axis] = FirstTier(rows, axis)
	}
	return s
}

// Rate divides after summation. A null operand or a zero denominator yields
// null: undefined is distinct from 0%.
func Rate(numerator, denominator null.Float64, scale float64) null.Float64 {
	if !numerator.Valid || !denominator.Valid || denominator.Float64 == 0 {
		return null.Float64{}
	}
	return null.Float64From(numerator.Float64 / denominator.Float64 * scale)
}

// FirstTier returns the tier label of the earliest period that has one.
// Labels observed in the same period are tie-broken lexically.
func FirstTier(rows []model.Observation, axis string) null.String {
	var (
		best   null.String
		period int
	)
	for _, r := range rows {
		v, ok := r.Tiers[axis]
		if !ok || !v.Valid {
			continue
		}
		if !best.Valid || r.Period < period || (r.Period == period && v.String < best.String) {
			best, period = v, r.Period
		}
	}
	return best
}

// defined collects the non-null values of column, sorted so sums are
// independent of row order.
func defined(rows []model.Observation, column string) []float64 {
	values := make([]float64, 0, len(rows))
	for _, r := range rows {
		if v, ok := r.Metrics[column]; ok && v.Valid {
			values = append(values, v.Float64)
		}
	}
	sort.Float64s(values)
	return values
}

func sum(values []float64) null.Float64 {
	if len(values) == 0 {
		return null.Float64{}
	}
	var total float64
	for _, v := range values {
		total += v
	}
	return null.Float64From(total)
}

func mean(values []float64) null.Float64 {
	total := sum(values)
	if !total.Valid {
		return total
	}
	return null.Float64From(total.Float64 / float64(len(values)))
}

func positiveShare(values []float64) null.Float64 {
	if len(values) == 0 {
		return null.Float64{}
	}
	var n int
	for _, v := range values {
		if v > 0 {
			n++
		}
	}
	return null.Float64From(float64(n) / float64(len(values)) * 100)
}
