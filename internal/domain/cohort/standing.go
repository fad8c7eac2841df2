package cohort

import "github.com/volatiletech/null/v8"

// Scored is a row carrying a score change and an absolute outcome score.
type Scored interface {
	ScoreChange() null.Float64
	OutcomeScore() null.Float64
}

// ScoreChange reads the score difference of any Scored row.
func ScoreChange[T Scored](row T) null.Float64 { return row.ScoreChange() }

// OutcomeScore reads the absolute outcome score of any Scored row.
func OutcomeScore[T Scored](row T) null.Float64 { return row.OutcomeScore() }

// Improved matches a strictly positive score change.
func Improved[T Scored]() Predicate[T] {
	return Above[T](ScoreChange[T], 0)
}

// Declined matches a strictly negative score change.
func Declined[T Scored]() Predicate[T] {
	return Below[T](ScoreChange[T], 0)
}

// Unchanged matches a zero score change.
func Unchanged[T Scored]() Predicate[T] {
	return Equal[T](ScoreChange[T], 0)
}

// ImprovementAbove matches a score change strictly above threshold. Each
// analysis passes its own threshold.
func ImprovementAbove[T Scored](threshold float64) Predicate[T] {
	return Above[T](ScoreChange[T], threshold)
}

// ImprovementBelow matches a score change strictly below threshold.
func ImprovementBelow[T Scored](threshold float64) Predicate[T] {
	return Below[T](ScoreChange[T], threshold)
}

// PerformerRule holds the two disjunctive cutoffs of a performer cohort.
type PerformerRule struct {
	Diff  float64
	Score float64
}

// HighPerformer matches (change > rule.Diff) OR (score > rule.Score).
func HighPerformer[T Scored](rule PerformerRule) Predicate[T] {
	return Or(
		Above[T](ScoreChange[T], rule.Diff),
		Above[T](OutcomeScore[T], rule.Score),
	)
}

// LowPerformer matches (change <= rule.Diff) OR (score < rule.Score). It is
// not the complement of HighPerformer and the two may overlap.
func LowPerformer[T Scored](rule PerformerRule) Predicate[T] {
	return Or(
		AtMost[T](ScoreChange[T], rule.Diff),
		Below[T](OutcomeScore[T], rule.Score),
	)
}

// Overlap counts rows present in both cohorts by key.
func Overlap[T any, K comparable](a, b Cohort[T], key func(T) K) int {
	seen := make(map[K]struct{}, len(a.Members))
	for _, m := range a.Members {
		seen[key(m)] = struct{}{}
	}
	var n int
	for _, m := range b.Members {
		if _, ok := seen[key(m)]; ok {
			n++
		}
	}
	return n
}
