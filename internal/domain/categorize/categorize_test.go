package categorize_test

import (
	"testing"

	"github.com/okian/scholardash/internal/domain/categorize"
	"github.com/okian/scholardash/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/volatiletech/null/v8"
)

func labels(survey, large, small, cp string) model.TierLabels {
	l := func(s string) null.String {
		if s == "" {
			return null.String{}
		}
		return null.StringFrom(s)
	}
	return model.TierLabels{Survey: l(survey), LargeGroup: l(large), SmallGroup: l(small), ClassParticipation: l(cp)}
}

// population builds 150 students in five equal groups flagged by 4, 2, 0, 1
// and 3 rules respectively.
func population() []model.RosterRecord {
	date := null.StringFrom("2025-08-01")
	rows := make([]model.RosterRecord, 0, 150)
	for i := 0; i < 150; i++ {
		r := model.RosterRecord{StudentID: model.StudentID(i + 1), School: null.Int64From(int64(i%2 + 1)), ExamCount: 2}
		switch i % 5 {
		case 0:
			r.HighestScore = null.Float64From(490)
			r.Tiers = labels("Tier 3", "Tier 3", "Tier 3", "Tier 3")
		case 1:
			r.HighestScore = null.Float64From(490)
			r.AnticipatedExamDate = date
			r.Tiers = labels("Tier 3", "Tier 3", "Tier 1", "Tier 1")
		case 2:
			r.HighestScore = null.Float64From(510)
			r.AnticipatedExamDate = date
			r.Tiers = labels("Tier 1", "Tier 1", "Tier 1", "Tier 1")
		case 3:
			r.ExamCount = 0
		case 4:
			r.HighestScore = null.Float64From(490)
			r.Tiers = labels("Tier 3", "Tier 3", "Tier 1", "Tier 2")
		}
		rows = append(rows, r)
	}
	return rows
}

func TestSchoolCategories(t *testing.T) {
	Convey("Given 150 students and the six school rules", t, func() {
		pop := population()
		rules := categorize.SchoolRules(categorize.DefaultSchoolThresholds())
		So(rules, ShouldHaveLength, 6)

		Convey("When evaluating the categories", func() {
			r := categorize.Evaluate(pop, rules, categorize.StudentKey)

			Convey("Then memberships should overlap", func() {
				So(r.Population, ShouldEqual, 150)
				So(r.TotalFlagged, ShouldEqual, 300)
				So(r.TotalFlagged, ShouldBeGreaterThan, 150)
			})

			Convey("Then some students should be in no category", func() {
				So(r.Unflagged, ShouldEqual, 30)
				So(r.Memberships[model.StudentID(3)], ShouldEqual, 0)
			})

			Convey("Then some students should be in three categories", func() {
				So(r.Memberships[model.StudentID(5)], ShouldEqual, 3)
				So(r.Memberships[model.StudentID(1)], ShouldEqual, 4)
			})

			Convey("Then each category should be counted on the full population", func() {
				counts := make([]int, 0, len(r.Categories))
				for _, c := range r.Categories {
					counts = append(counts, c.Count)
				}
				So(counts, ShouldResemble, []int{30, 60, 30, 90, 0, 90})
			})

			Convey("Then rows without a score should be excluded from score rules", func() {
				So(r.Categories[0].Excluded, ShouldEqual, 0)
				So(r.Categories[1].Excluded, ShouldEqual, 30)
			})
		})

		Convey("When the rules are evaluated in reverse order", func() {
			reversed := make([]categorize.Rule[model.RosterRecord], len(rules))
			for i, rule := range rules {
				reversed[len(rules)-1-i] = rule
			}
			fwd := categorize.Evaluate(pop, rules, categorize.StudentKey)
			rev := categorize.Evaluate(pop, reversed, categorize.StudentKey)

			Convey("Then membership should not change", func() {
				So(rev.Memberships, ShouldResemble, fwd.Memberships)
				So(rev.Categories[0].Name, ShouldEqual, fwd.Categories[5].Name)
			})
		})
	})

	Convey("Given a borderline student in Small Group Tier 3", t, func() {
		pop := []model.RosterRecord{
			{StudentID: 1, ExamCount: 1, HighestScore: null.Float64From(500), AnticipatedExamDate: null.StringFrom("x"), Tiers: labels("Tier 1", "Tier 1", "Tier 3", "Tier 1")},
			{StudentID: 2, ExamCount: 1, HighestScore: null.Float64From(495), AnticipatedExamDate: null.StringFrom("x"), Tiers: labels("Tier 1", "Tier 1", "tier 3", "Tier 1")},
			{StudentID: 3, ExamCount: 1, HighestScore: null.Float64From(497), AnticipatedExamDate: null.StringFrom("x"), Tiers: labels("Tier 1", "Tier 1", "Tier 9", "Tier 1")},
		}

		Convey("When evaluating the categories", func() {
			r := categorize.Evaluate(pop, categorize.SchoolRules(categorize.DefaultSchoolThresholds()), categorize.StudentKey)

			Convey("Then the band should be inclusive and bad labels excluded", func() {
				So(r.Categories[4].Count, ShouldEqual, 2)
				So(r.Categories[4].Excluded, ShouldEqual, 1)
			})
		})
	})
}

func TestSchools(t *testing.T) {
	Convey("Given a roster spanning two schools", t, func() {
		pop := population()

		Convey("Then schools should be listed once in order", func() {
			So(categorize.Schools(pop), ShouldResemble, []int64{1, 2})
		})

		Convey("Then filtering should keep one school sorted by id", func() {
			rows := categorize.FilterSchool(pop, null.Int64From(2))
			So(rows, ShouldHaveLength, 75)
			So(rows[0].StudentID, ShouldEqual, model.StudentID(2))
			So(rows[1].StudentID, ShouldEqual, model.StudentID(4))
		})

		Convey("Then a null school should keep everyone", func() {
			So(categorize.FilterSchool(pop, null.Int64{}), ShouldHaveLength, 150)
		})
	})
}
