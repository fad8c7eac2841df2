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

// Profile describes one performer cohort.
type Profile struct {
	Students          int          `json:"students"`
	MeanChange        null.Float64 `json:"mean_change"`
	MeanBaseline      null.Float64 `json:"mean_baseline"`
	MeanActual        null.Float64 `json:"mean_actual"`
	MeanClassAccuracy null.Float64 `json:"mean_class_accuracy"`
	MeanCompletedSets null.Float64 `json:"mean_completed_sets"`
	SmallGroupTop     null.Float64 `json:"small_group_top_share"`
}

// Performer contrasts high and low performers. The two cohorts are
// disjunctive and may overlap.
type Performer struct {
	Meta
	Students          int              `json:"students"`
	ImprovementRate   null.Float64     `json:"improvement_rate"`
	HighPerformerRate null.Float64     `json:"high_performer_rate"`
	High              Profile          `json:"high"`
	Low               Profile          `json:"low"`
	TierRatio         null.Float64     `json:"tier_ratio"`
	LowBaselineAlerts int              `json:"low_baseline_alerts"`
	Overlap           int              `json:"overlap"`
	Comparison        stats.Comparison `json:"comparison"`
}

// Performers profiles the high and low performer cohorts.
func (s *Service) Performers(ctx context.Context) Performer {
	start := time.Now()
	var out Performer
	defer func() { s.observe(ctx, "performers", start, out.Meta) }()

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
	cfg := s.analysis.Performer

	high := cohort.Select("high performer", rows, cohort.HighPerformer[StudentOutcome](cohort.PerformerRule{
		Diff: cfg.HighDiffAbove, Score: cfg.HighScoreAbove,
	}))
	low := cohort.Select("low performer", rows, cohort.LowPerformer[StudentOutcome](cohort.PerformerRule{
		Diff: cfg.LowDiffAtMost, Score: cfg.LowScoreBelow,
	}))
	improved := cohort.Select("improved", rows, cohort.Improved[StudentOutcome]())
	alerts := cohort.Select("low baseline", low.Members, cohort.Below(baseline, cfg.LowBaselineBelow))

	out.ImprovementRate = share(improved, len(rows))
	out.HighPerformerRate = share(high, len(rows))
	out.High = profile(high)
	out.Low = profile(low)
	if out.High.SmallGroupTop.Valid && out.Low.SmallGroupTop.Valid && out.Low.SmallGroupTop.Float64 > 0 {
		out.TierRatio = null.Float64From(out.High.SmallGroupTop.Float64 / out.Low.SmallGroupTop.Float64)
	}
	out.LowBaselineAlerts = alerts.Size()
	out.Overlap = cohort.Overlap(high, low, func(j StudentOutcome) model.StudentID { return j.StudentID })

	change := cohort.ScoreChange[StudentOutcome]
	out.Comparison = stats.Compare("score_difference",
		stats.Sample{Name: high.Name, Values: high.Values(change)},
		stats.Sample{Name: low.Name, Values: low.Values(change)},
		s.compareOptions())

	s.cohortSizes(ctx, "performers", map[string]int{
		"high":    high.Size(),
		"low":     low.Size(),
		"overlap": out.Overlap,
		"alerts":  alerts.Size(),
	})
	out.Meta = available()
	return out
}

func profile(c cohort.Cohort[StudentOutcome]) Profile {
	p := Profile{
		Students:          c.Size(),
		MeanChange:        stats.Mean(c.Values(cohort.ScoreChange[StudentOutcome])),
		MeanBaseline:      stats.Mean(c.Values(baseline)),
		MeanActual:        stats.Mean(c.Values(cohort.OutcomeScore[StudentOutcome])),
		MeanClassAccuracy: stats.Mean(c.Values(summaryMetric(model.MetricClassAccuracy))),
		MeanCompletedSets: stats.Mean(c.Values(summaryMetric(model.MetricCompletedSets))),
	}
	var top, known int
	for _, m := range c.Members {
		t, bad := parseTier(m.Tier(model.TierSmallGroup))
		if bad || !t.Valid() {
			continue
		}
		known++
		if t == tier.Tier1 || t == tier.Tier2 {
			top++
		}
	}
	p.SmallGroupTop = stats.Share(top, known)
	return p
}
