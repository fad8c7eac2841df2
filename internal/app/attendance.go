package service

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/scholardash/internal/config"
	"github.com/okian/scholardash/internal/domain/cohort"
	"github.com/okian/scholardash/internal/domain/model"
	"github.com/okian/scholardash/internal/domain/stats"
	"github.com/okian/scholardash/internal/domain/tier"
	"github.com/volatiletech/null/v8"
)

// baselineRanges are the baseline score bins of the attendance pivot. The
// last bin includes its upper bound.
var baselineRanges = []float64{480, 490, 500, 510, 520} //nolint:gochecknoglobals // pivot bins

// AttendanceRow is one student's attendance and assigned tiers.
type AttendanceRow struct {
	StudentID     model.StudentID `json:"student_id"`
	LargeRate     null.Float64    `json:"large_attendance_rate"`
	SmallRate     null.Float64    `json:"small_attendance_rate"`
	LargeTier     null.String     `json:"large_group_tier"`
	SmallTier     null.String     `json:"small_group_tier"`
	LargeComputed tier.Tier       `json:"large_computed_tier"`
	SmallComputed tier.Tier       `json:"small_computed_tier"`
	Baseline      null.Float64    `json:"baseline"`
	Change        null.Float64    `json:"change"`
}

// PivotRow counts students of one tier per baseline range.
type PivotRow struct {
	Tier   string `json:"tier"`
	Counts []int  `json:"counts"`
}

// Pivot is a tier by baseline range count table.
type Pivot struct {
	Axis   string     `json:"axis"`
	Ranges []string   `json:"ranges"`
	Rows   []PivotRow `json:"rows"`
}

// TierImprovement is the mean improvement per tier of one axis.
type TierImprovement struct {
	Axis  string            `json:"axis"`
	Tiers []stats.LabelStat `json:"tiers"`
}

// Attendance is the attendance analysis.
type Attendance struct {
	Meta
	Students       int               `json:"students"`
	Rows           []AttendanceRow   `json:"rows"`
	Pivots         []Pivot           `json:"pivots"`
	ByTier         []TierImprovement `json:"by_tier"`
	Agreement      []Correlation     `json:"agreement"`
	MalformedTiers int               `json:"malformed_tiers"`
}

// Attendance relates attendance tiers to baseline scores and improvement.
func (s *Service) Attendance(ctx context.Context) Attendance {
	start := time.Now()
	var out Attendance
	defer func() { s.observe(ctx, "attendance", start, out.Meta) }()

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
	joined := join(eng.Rows, outcomes.Rows)
	out.Students = len(joined)
	if len(joined) == 0 {
		out.Meta = insufficient()
		return out
	}

	out.Rows = make([]AttendanceRow, len(joined))
	for i, j := range joined {
		large := j.Metric(model.MetricLargeAttendanceRate)
		small := j.Metric(model.MetricSmallAttendanceRate)
		lt, _ := s.tiers.Classify(config.TierSetAttendance, large)
		st, _ := s.tiers.Classify(config.TierSetAttendance, small)
		out.Rows[i] = AttendanceRow{
			StudentID:     j.StudentID,
			LargeRate:     large,
			SmallRate:     small,
			LargeTier:     j.Tier(model.TierLargeGroup),
			SmallTier:     j.Tier(model.TierSmallGroup),
			LargeComputed: lt,
			SmallComputed: st,
			Baseline:      j.Outcome.Baseline,
			Change:        j.Outcome.ScoreDifference,
		}
	}

	for _, axis := range []string{model.TierLargeGroup, model.TierSmallGroup} {
		label := func(j StudentOutcome) null.String { return j.Tier(axis) }
		p, malformed := pivot(joined, axis, label)
		out.Pivots = append(out.Pivots, p)
		out.MalformedTiers += malformed

		values, _ := byTier(joined, label, cohort.ScoreChange[StudentOutcome])
		out.ByTier = append(out.ByTier, TierImprovement{Axis: axis, Tiers: stats.ByLabel(tierOrder(), values)})
	}

	// How closely the computed attendance tier tracks the assigned one.
	out.Agreement = []Correlation{
		correlate(model.TierLargeGroup, out.Rows, encoded(func(r AttendanceRow) null.String { return r.LargeTier }), computed(func(r AttendanceRow) tier.Tier { return r.LargeComputed })),
		correlate(model.TierSmallGroup, out.Rows, encoded(func(r AttendanceRow) null.String { return r.SmallTier }), computed(func(r AttendanceRow) tier.Tier { return r.SmallComputed })),
	}
	out.Meta = available()
	return out
}

func encoded(label func(AttendanceRow) null.String) cohort.Field[AttendanceRow] {
	return func(r AttendanceRow) null.Float64 {
		t, bad := parseTier(label(r))
		if bad || !t.Valid() {
			return null.Float64{}
		}
		return null.Float64From(float64(t.Encode()))
	}
}

func computed(get func(AttendanceRow) tier.Tier) cohort.Field[AttendanceRow] {
	return func(r AttendanceRow) null.Float64 {
		t := get(r)
		if !t.Valid() {
			return null.Float64{}
		}
		return null.Float64From(float64(t.Encode()))
	}
}

// pivot counts students per tier and baseline range. Students without a
// baseline, outside every range, or without a valid tier are skipped.
func pivot(rows []StudentOutcome, axis string, label func(StudentOutcome) null.String) (Pivot, int) {
	p := Pivot{Axis: axis}
	for i := 0; i+1 < len(baselineRanges); i++ {
		hi := baselineRanges[i+1] - 1
		if i+2 == len(baselineRanges) {
			hi = baselineRanges[i+1]
		}
		p.Ranges = append(p.Ranges, fmt.Sprintf("%g-%g", baselineRanges[i], hi))
	}
	counts := make(map[tier.Tier][]int, len(tier.All))
	for _, t := range tier.All {
		counts[t] = make([]int, len(p.Ranges))
	}
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
		if bin := baselineBin(baseline(r)); bin >= 0 {
			counts[t][bin]++
		}
	}
	for _, t := range tier.All {
		p.Rows = append(p.Rows, PivotRow{Tier: t.String(), Counts: counts[t]})
	}
	return p, malformed
}

func baselineBin(v null.Float64) int {
	if !v.Valid {
		return -1
	}
	last := len(baselineRanges) - 1
	for i := 0; i < last; i++ {
		lo, hi := baselineRanges[i], baselineRanges[i+1]
		if v.Float64 >= lo && (v.Float64 < hi || (i+1 == last && v.Float64 <= hi)) {
			return i
		}
	}
	return -1
}
