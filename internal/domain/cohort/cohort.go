// Package cohort partitions a population into named, possibly overlapping
// groups by predicate.
package cohort

import "github.com/volatiletech/null/v8"

// Predicate evaluates a row. known is false when a field the predicate needs
// is missing; such rows are excluded rather than counted as non-members.
type Predicate[T any] func(row T) (match, known bool)

// Field reads one nullable metric from a row.
type Field[T any] func(row T) null.Float64

// Cohort is a named subset of a population. It is recomputed per query.
type Cohort[T any] struct {
	Name     string `json:"name"`
	Members  []T    `json:"members"`
	Excluded int    `json:"excluded"`
}

// Size returns the number of members.
func (c Cohort[T]) Size() int { return len(c.Members) }

// Empty reports whether the cohort has no members.
func (c Cohort[T]) Empty() bool { return len(c.Members) == 0 }

// Values projects a field over the members, dropping undefined values.
func (c Cohort[T]) Values(f Field[T]) []float64 {
	return Values(c.Members, f)
}

// Select returns the rows of population that satisfy p, in input order.
func Select[T any](name string, population []T, p Predicate[T]) Cohort[T] {
	c := Cohort[T]{Name: name, Members: make([]T, 0)}
	for _, row := range population {
		match, known := p(row)
		switch {
		case !known:
			c.Excluded++
		case match:
			c.Members = append(c.Members, row)
		}
	}
	return c
}

// Values projects f over rows, dropping undefined values.
func Values[T any](rows []T, f Field[T]) []float64 {
	out := make([]float64, 0, len(rows))
	for _, r := range rows {
		if v := f(r); v.Valid {
			out = append(out, v.Float64)
		}
	}
	return out
}

func compare[T any](f Field[T], ok func(v float64) bool) Predicate[T] {
	return func(row T) (bool, bool) {
		v := f(row)
		if !v.Valid {
			return false, false
		}
		return ok(v.Float64), true
	}
}

// Above matches f > threshold.
func Above[T any](f Field[T], threshold float64) Predicate[T] {
	return compare(f, func(v float64) bool { return v > threshold })
}

// AtLeast matches f >= threshold.
func AtLeast[T any](f Field[T], threshold float64) Predicate[T] {
	return compare(f, func(v float64) bool { return v >= threshold })
}

// Below matches f < threshold.
func Below[T any](f Field[T], threshold float64) Predicate[T] {
	return compare(f, func(v float64) bool { return v < threshold })
}

// AtMost matches f <= threshold.
func AtMost[T any](f Field[T], threshold float64) Predicate[T] {
	return compare(f, func(v float64) bool { return v <= threshold })
}

// Equal matches f == value.
func Equal[T any](f Field[T], value float64) Predicate[T] {
	return compare(f, func(v float64) bool { return v == value })
}

// Between matches lo <= f <= hi.
func Between[T any](f Field[T], lo, hi float64) Predicate[T] {
	return compare(f, func(v float64) bool { return v >= lo && v <= hi })
}

// Defined matches rows where f is defined. It is always known.
func Defined[T any](f Field[T]) Predicate[T] {
	return func(row T) (bool, bool) { return f(row).Valid, true }
}

// Or matches when any branch with known inputs matches. It is unknown only
// when every branch is unknown.
func Or[T any](ps ...Predicate[T]) Predicate[T] {
	return func(row T) (bool, bool) {
		var known bool
		for _, p := range ps {
			m, k := p(row)
			if !k {
				continue
			}
			known = true
			if m {
				return true, true
			}
		}
		return false, known
	}
}

// And matches when every branch matches. A branch known to be false makes the
// whole predicate known and false even if others are unknown.
func And[T any](ps ...Predicate[T]) Predicate[T] {
	return func(row T) (bool, bool) {
		known := true
		for _, p := range ps {
			m, k := p(row)
			if k && !m {
				return false, true
			}
			if !k {
				known = false
			}
		}
		return known, known
	}
}

// Not inverts a known result.
func Not[T any](p Predicate[T]) Predicate[T] {
	return func(row T) (bool, bool) {
		m, k := p(row)
		return !m && k, k
	}
}
