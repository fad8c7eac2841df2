package service

import (
	"sort"

	"github.com/okian/scholardash/internal/domain/aggregate"
	"github.com/okian/scholardash/internal/domain/cohort"
	"github.com/okian/scholardash/internal/domain/model"
	"github.com/okian/scholardash/internal/domain/stats"
	"github.com/okian/scholardash/internal/domain/tier"
	"github.com/volatiletech/null/v8"
)

// StudentOutcome is an engagement summary joined with the student's outcome.
type StudentOutcome struct {
	model.StudentSummary
	Outcome model.OutcomeRecord `json:"outcome"`
}

// ScoreChange returns the outcome score difference.
func (j StudentOutcome) ScoreChange() null.Float64 { return j.Outcome.ScoreDifference }

// OutcomeScore returns the actual exam score.
func (j StudentOutcome) OutcomeScore() null.Float64 { return j.Outcome.ActualScore }

// firstOutcomes keeps the first outcome row of each student.
func firstOutcomes(rows []model.OutcomeRecord) map[model.StudentID]model.OutcomeRecord {
	out := make(map[model.StudentID]model.OutcomeRecord, len(rows))
	for _, r := range rows {
		if _, seen := out[r.StudentID]; !seen {
			out[r.StudentID] = r
		}
	}
	return out
}

// join aggregates engagement rows per student and inner joins the outcomes.
// The result is ordered by student id.
func join(engagement []model.EngagementRecord, outcomes []model.OutcomeRecord) []StudentOutcome {
	summaries := aggregate.Engagement().Aggregate(aggregate.Observations(engagement))
	byID := firstOutcomes(outcomes)
	out := make([]StudentOutcome, 0, len(summaries))
	for _, s := range summaries {
		if o, ok := byID[s.StudentID]; ok {
			out = append(out, StudentOutcome{StudentSummary: s, Outcome: o})
		}
	}
	return out
}

// summaryMetric reads an aggregated metric of a joined row.
func summaryMetric(name string) cohort.Field[StudentOutcome] {
	return func(j StudentOutcome) null.Float64 { return j.Metric(name) }
}

func baseline(j StudentOutcome) null.Float64 { return j.Outcome.Baseline }

// parseTier reads a tier label. malformed is true for labels outside the
// known tiers; such rows are left out of tier grouping.
func parseTier(label null.String) (t tier.Tier, malformed bool) {
	t, err := tier.Parse(label)
	if err != nil {
		return tier.Undefined, true
	}
	return t, false
}

// byTier groups values of rows by their tier on axis. It returns the values
// per tier label and the number of malformed labels.
func byTier[T any](rows []T, label func(T) null.String, value cohort.Field[T]) (map[string][]float64, int) {
	out := make(map[string][]float64, len(tier.All))
	var malformed int
	for _, r := range rows {
		t, bad := parseTier(label(r))
		if bad {
			malformed++
			continue
		}
		if !t.Valid() {
			continue
		}
		if v := value(r); v.Valid {
			out[t.String()] = append(out[t.String()], v.Float64)
		}
	}
	return out, malformed
}

func tierOrder() []string {
	out := make([]string, len(tier.All))
	for i, t := range tier.All {
		out[i] = t.String()
	}
	return out
}

// share returns the share of members among rows whose predicate is known.
func share[T any](c cohort.Cohort[T], population int) null.Float64 {
	return stats.Share(c.Size(), population-c.Excluded)
}

// Correlation is a Pearson correlation of one metric with score change.
type Correlation struct {
	Metric string       `json:"metric"`
	N      int          `json:"n"`
	R      null.Float64 `json:"r"`
}

// correlate pairs x with y over rows where both are defined.
func correlate[T any](metric string, rows []T, x, y cohort.Field[T]) Correlation {
	xs, ys := pairs(rows, x, y)
	return Correlation{Metric: metric, N: len(xs), R: stats.Pearson(xs, ys)}
}

func pairs[T any](rows []T, x, y cohort.Field[T]) ([]float64, []float64) {
	xs := make([]float64, 0, len(rows))
	ys := make([]float64, 0, len(rows))
	for _, r := range rows {
		xv, yv := x(r), y(r)
		if xv.Valid && yv.Valid {
			xs = append(xs, xv.Float64)
			ys = append(ys, yv.Float64)
		}
	}
	return xs, ys
}

func sortedIDs[T any](rows []T, id func(T) model.StudentID) []model.StudentID {
	seen := make(map[model.StudentID]struct{}, len(rows))
	out := make([]model.StudentID, 0, len(rows))
	for _, r := range rows {
		k := id(r)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
