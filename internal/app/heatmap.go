package service

import (
	"context"
	"sort"
	"time"

	"github.com/okian/scholardash/internal/domain/cohort"
	"github.com/okian/scholardash/internal/domain/model"
	"github.com/okian/scholardash/internal/domain/stats"
	"github.com/volatiletech/null/v8"
)

// HeatRow is one student of the tier heat map. Tiers are encoded per axis,
// 0 meaning undefined.
type HeatRow struct {
	StudentID   model.StudentID `json:"student_id"`
	Tiers       []int           `json:"tiers"`
	Improvement float64         `json:"improvement"`
}

// AxisStats holds improvement statistics per tier of one axis.
type AxisStats struct {
	Axis  string            `json:"axis"`
	Tiers []stats.LabelStat `json:"tiers"`
}

// Heatmap is the tier matrix of the most improved students.
type Heatmap struct {
	Meta
	Above          float64       `json:"above"`
	Axes           []string      `json:"axes"`
	Rows           []HeatRow     `json:"rows"`
	Correlations   []Correlation `json:"correlations"`
	ByTier         []AxisStats   `json:"by_tier"`
	MalformedTiers int           `json:"malformed_tiers"`
}

// Heatmap selects rows whose score difference exceeds the configured cutoff,
// keeps the first such row per student, and encodes their tiers.
func (s *Service) Heatmap(ctx context.Context) Heatmap {
	start := time.Now()
	cfg := s.analysis.Heatmap
	out := Heatmap{Above: cfg.ImprovementAbove, Axes: model.TierAxes}
	defer func() { s.observe(ctx, "heatmap", start, out.Meta) }()

	tbl, err := s.tablesOrDefault().TieredEngagement(ctx)
	if err != nil {
		out.Meta = unavailable(err)
		return out
	}

	// Rows are filtered before the first row per student is kept, so a
	// student whose early weeks lack a score difference still qualifies.
	seen := make(map[model.StudentID]struct{})
	picked := make([]model.EngagementRecord, 0)
	for _, r := range tbl.Rows {
		if !r.ScoreDifference.Valid || r.ScoreDifference.Float64 <= cfg.ImprovementAbove {
			continue
		}
		if _, ok := seen[r.StudentID]; ok {
			continue
		}
		seen[r.StudentID] = struct{}{}
		picked = append(picked, r)
	}
	sort.Slice(picked, func(i, j int) bool { return picked[i].StudentID < picked[j].StudentID })
	if len(picked) > cfg.MaxStudents {
		picked = picked[:cfg.MaxStudents]
	}
	if len(picked) == 0 {
		out.Meta = insufficient()
		return out
	}

	improvement := func(r model.EngagementRecord) null.Float64 { return r.ScoreDifference }
	out.Rows = make([]HeatRow, len(picked))
	for i, r := range picked {
		row := HeatRow{StudentID: r.StudentID, Improvement: r.ScoreDifference.Float64, Tiers: make([]int, len(model.TierAxes))}
		for k, axis := range model.TierAxes {
			t, bad := parseTier(r.Tiers.Get(axis))
			if bad {
				out.MalformedTiers++
			}
			row.Tiers[k] = t.Encode()
		}
		out.Rows[i] = row
	}

	for k, axis := range model.TierAxes {
		code := func(r HeatRow) null.Float64 {
			if r.Tiers[k] == 0 {
				return null.Float64{}
			}
			return null.Float64From(float64(r.Tiers[k]))
		}
		imp := func(r HeatRow) null.Float64 { return null.Float64From(r.Improvement) }
		out.Correlations = append(out.Correlations, correlate(axis, out.Rows, code, imp))

		label := func(r model.EngagementRecord) null.String { return r.Tiers.Get(axis) }
		values, _ := byTier(picked, label, cohort.Field[model.EngagementRecord](improvement))
		out.ByTier = append(out.ByTier, AxisStats{Axis: axis, Tiers: stats.ByLabel(tierOrder(), values)})
	}
	out.Meta = available()
	return out
}
