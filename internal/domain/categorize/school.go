package categorize

import (
	"sort"

	"github.com/okian/scholardash/internal/domain/cohort"
	"github.com/okian/scholardash/internal/domain/model"
	"github.com/okian/scholardash/internal/domain/tier"
	"github.com/volatiletech/null/v8"
)

// SchoolThresholds are the roster score cutoffs of the school categories.
type SchoolThresholds struct {
	BelowScore   float64
	VeryLowScore float64
	BandMin      float64
	BandMax      float64
}

// DefaultSchoolThresholds returns the institutional cutoffs.
func DefaultSchoolThresholds() SchoolThresholds {
	return SchoolThresholds{BelowScore: 502, VeryLowScore: 495, BandMin: 495, BandMax: 500}
}

func highestScore(r model.RosterRecord) null.Float64 { return r.HighestScore }

func examCount(r model.RosterRecord) null.Float64 { return null.Float64From(float64(r.ExamCount)) }

func anticipatedDate(r model.RosterRecord) null.Float64 {
	if r.AnticipatedExamDate.Valid && r.AnticipatedExamDate.String != "" {
		return null.Float64From(1)
	}
	return null.Float64{}
}

// TierIs matches a roster row whose tier on axis equals want. Missing and
// unrecognized labels are unknown.
func TierIs(axis string, want tier.Tier) cohort.Predicate[model.RosterRecord] {
	return func(r model.RosterRecord) (bool, bool) {
		t, err := tier.Parse(r.Tiers.Get(axis))
		if err != nil || !t.Valid() {
			return false, false
		}
		return t == want, true
	}
}

// SchoolRules returns the six intervention categories in presentation order.
func SchoolRules(th SchoolThresholds) []Rule[model.RosterRecord] {
	below := cohort.Below(highestScore, th.BelowScore)
	veryLow := cohort.Below(highestScore, th.VeryLowScore)
	allTier3 := make([]cohort.Predicate[model.RosterRecord], 0, len(model.TierAxes)+1)
	allTier3 = append(allTier3, veryLow)
	for _, axis := range model.TierAxes {
		allTier3 = append(allTier3, TierIs(axis, tier.Tier3))
	}

	return []Rule[model.RosterRecord]{
		{
			Name:        "No exam score",
			Description: "Students with no recorded exam",
			Predicate:   cohort.Equal(examCount, 0),
		},
		{
			Name:        "Below target, no exam date",
			Description: "Highest score below target and no anticipated exam date",
			Predicate:   cohort.And(below, cohort.Not(cohort.Defined(anticipatedDate))),
		},
		{
			Name:        "Very low score, Tier 3 on every axis",
			Description: "Highest score very low and Tier 3 on all four tiers",
			Predicate:   cohort.And(allTier3...),
		},
		{
			Name:        "Very low score, Survey Tier 3",
			Description: "Highest score very low and Tier 3 survey responsiveness",
			Predicate:   cohort.And(veryLow, TierIs(model.TierSurvey, tier.Tier3)),
		},
		{
			Name:        "Borderline score, Small Group Tier 3",
			Description: "Highest score in the borderline band and Tier 3 small group attendance",
			Predicate:   cohort.And(cohort.Between(highestScore, th.BandMin, th.BandMax), TierIs(model.TierSmallGroup, tier.Tier3)),
		},
		{
			Name:        "Very low score, Large Group Tier 3",
			Description: "Highest score very low and Tier 3 large group attendance",
			Predicate:   cohort.And(veryLow, TierIs(model.TierLargeGroup, tier.Tier3)),
		},
	}
}

// StudentKey keys roster rows by student.
func StudentKey(r model.RosterRecord) model.StudentID { return r.StudentID }

// Schools returns the distinct school ids in ascending order.
func Schools(rows []model.RosterRecord) []int64 {
	seen := make(map[int64]struct{})
	for _, r := range rows {
		if r.School.Valid {
			seen[r.School.Int64] = struct{}{}
		}
	}
	out := make([]int64, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// FilterSchool keeps the rows of one school. A null school keeps every row.
// The result is sorted by student id.
func FilterSchool(rows []model.RosterRecord, school null.Int64) []model.RosterRecord {
	out := make([]model.RosterRecord, 0, len(rows))
	for _, r := range rows {
		if !school.Valid || (r.School.Valid && r.School.Int64 == school.Int64) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StudentID < out[j].StudentID })
	return out
}
