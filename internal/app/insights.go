package service

import (
	"context"
	"time"

	"github.com/okian/scholardash/internal/domain/cohort"
	"github.com/okian/scholardash/internal/domain/model"
	"github.com/okian/scholardash/internal/domain/stats"
	"github.com/okian/scholardash/internal/domain/tier"
	"github.com/volatiletech/null/v8"
)

// TierRate is the share of high improvers in one tier.
type TierRate struct {
	Tier          tier.Tier    `json:"tier"`
	Students      int          `json:"students"`
	HighImprovers int          `json:"high_improvers"`
	Rate          null.Float64 `json:"rate"`
}

// TierSuccess lists the success rate per tier of one axis.
type TierSuccess struct {
	Axis  string     `json:"axis"`
	Rates []TierRate `json:"rates"`
}

// Insights is the key insights analysis.
type Insights struct {
	Meta
	Students       int              `json:"students"`
	Threshold      float64          `json:"high_improvement_above"`
	HighImprovers  int              `json:"high_improvers"`
	HighShare      null.Float64     `json:"high_share"`
	Improved       int              `json:"improved"`
	ImprovedShare  null.Float64     `json:"improved_share"`
	MeanChange     null.Float64     `json:"mean_change"`
	TierSuccess    []TierSuccess    `json:"tier_success"`
	MalformedTiers int              `json:"malformed_tiers"`
	QuestionBank   stats.Comparison `json:"question_bank"`
	Correlations   []Correlation    `json:"correlations"`
}

// Insights joins tiered engagement with outcomes and contrasts high
// improvers with everyone else.
func (s *Service) Insights(ctx context.Context) Insights {
	start := time.Now()
	out := Insights{Threshold: s.analysis.Insights.HighImprovementAbove}
	defer func() { s.observe(ctx, "insights", start, out.Meta) }()

	t := s.tablesOrDefault()
	eng, err := t.TieredEngagement(ctx)
	if err != nil {
		out.Meta = unavailable(err)
		return out
	}
	outcomes, err := t.Outcomes(ctx)
	if err != nil {
		out.Meta = unavailable(err)
		return out
	}

	rows := join(eng.Rows, outcomes.Rows)
	out.Students = len(rows)
	if len(rows) == 0 {
		out.Meta = insufficient()
		return out
	}

	highPred := cohort.ImprovementAbove[StudentOutcome](out.Threshold)
	high := cohort.Select("high improvement", rows, highPred)
	rest := cohort.Select("other", rows, cohort.Not(highPred))
	improved := cohort.Select("improved", rows, cohort.Improved[StudentOutcome]())
	s.cohortSizes(ctx, "insights", map[string]int{"high": high.Size(), "other": rest.Size(), "improved": improved.Size()})

	out.HighImprovers = high.Size()
	out.HighShare = share(high, len(rows))
	out.Improved = improved.Size()
	out.ImprovedShare = share(improved, len(rows))
	out.MeanChange = stats.Mean(cohort.Values(rows, cohort.ScoreChange[StudentOutcome]))

	for _, axis := range []string{model.TierSmallGroup, model.TierClassParticipation} {
		ts, malformed := tierSuccess(rows, axis, highPred)
		out.TierSuccess = append(out.TierSuccess, ts)
		out.MalformedTiers += malformed
	}

	sets := summaryMetric(model.MetricCompletedSets)
	out.QuestionBank = stats.Compare(model.MetricCompletedSets,
		stats.Sample{Name: high.Name, Values: high.Values(sets)},
		stats.Sample{Name: rest.Name, Values: rest.Values(sets)},
		s.compareOptions())

	change := cohort.ScoreChange[StudentOutcome]
	out.Correlations = []Correlation{
		correlate(model.MetricCompletedSets, rows, sets, change),
		correlate(model.MetricClassAccuracy, rows, summaryMetric(model.MetricClassAccuracy), change),
		correlate(model.MetricLargeAttendanceRate, rows, summaryMetric(model.MetricLargeAttendanceRate), change),
		correlate(model.MetricSmallAttendanceRate, rows, summaryMetric(model.MetricSmallAttendanceRate), change),
		correlate(model.MetricParticipationShare, rows, summaryMetric(model.MetricParticipationShare), change),
	}
	out.Meta = available()
	return out
}

// tierSuccess computes the share of high improvers per tier of axis.
// Students whose score change is unknown are left out.
func tierSuccess(rows []StudentOutcome, axis string, high cohort.Predicate[StudentOutcome]) (TierSuccess, int) {
	counts := make(map[tier.Tier]*TierRate, len(tier.All))
	for _, t := range tier.All {
		counts[t] = &TierRate{Tier: t}
	}
	var malformed int
	for _, r := range rows {
		t, bad := parseTier(r.Tier(axis))
		if bad {
			malformed++
			continue
		}
		if !t.Valid() {
			continue
		}
		match, known := high(r)
		if !known {
			continue
		}
		counts[t].Students++
		if match {
			counts[t].HighImprovers++
		}
	}
	ts := TierSuccess{Axis: axis, Rates: make([]TierRate, 0, len(tier.All))}
	for _, t := range tier.All {
		c := counts[t]
		c.Rate = stats.Share(c.HighImprovers, c.Students)
		ts.Rates = append(ts.Rates, *c)
	}
	return ts, malformed
}
