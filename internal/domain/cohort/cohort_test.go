package cohort_test

import (
	"testing"

	"github.com/okian/scholardash/internal/domain/cohort"
	"github.com/okian/scholardash/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/volatiletech/null/v8"
)

func outcome(id model.StudentID, diff, actual null.Float64) model.OutcomeRecord {
	return model.OutcomeRecord{StudentID: id, ScoreDifference: diff, ActualScore: actual}
}

func ids(c cohort.Cohort[model.OutcomeRecord]) []model.StudentID {
	out := make([]model.StudentID, 0, c.Size())
	for _, m := range c.Members {
		out = append(out, m.StudentID)
	}
	return out
}

func TestStandingPredicates(t *testing.T) {
	f := null.Float64From

	Convey("Given three students with score differences 13, -2 and 12", t, func() {
		pop := []model.OutcomeRecord{
			outcome(1, f(13), null.Float64{}),
			outcome(2, f(-2), null.Float64{}),
			outcome(3, f(12), null.Float64{}),
		}

		Convey("When selecting the improved cohort", func() {
			c := cohort.Select("improved", pop, cohort.Improved[model.OutcomeRecord]())

			Convey("Then it should hold students 1 and 3", func() {
				So(ids(c), ShouldResemble, []model.StudentID{1, 3})
			})
		})

		Convey("When selecting improvement above 12", func() {
			c := cohort.Select("high", pop, cohort.ImprovementAbove[model.OutcomeRecord](12))

			Convey("Then the bound should be strict", func() {
				So(ids(c), ShouldResemble, []model.StudentID{1})
			})
		})
	})

	Convey("Given rows with missing fields", t, func() {
		pop := []model.OutcomeRecord{
			outcome(1, null.Float64{}, null.Float64{}),
			outcome(2, f(3), null.Float64{}),
			outcome(3, null.Float64{}, f(510)),
			outcome(4, null.Float64{}, f(500)),
		}

		Convey("When selecting improved students", func() {
			c := cohort.Select("improved", pop, cohort.Improved[model.OutcomeRecord]())

			Convey("Then rows missing the field should be excluded, not counted false", func() {
				So(ids(c), ShouldResemble, []model.StudentID{2})
				So(c.Excluded, ShouldEqual, 3)
			})
		})

		Convey("When selecting high performers", func() {
			c := cohort.Select("high", pop, cohort.HighPerformer[model.OutcomeRecord](cohort.PerformerRule{Diff: 12, Score: 505}))

			Convey("Then either known branch should be enough", func() {
				So(ids(c), ShouldResemble, []model.StudentID{3})
				So(c.Excluded, ShouldEqual, 1)
			})
		})
	})

	Convey("Given a student with a negative change but a high absolute score", t, func() {
		pop := []model.OutcomeRecord{
			outcome(1, f(-3), f(510)),
			outcome(2, f(15), f(508)),
			outcome(3, f(-1), f(495)),
		}
		high := cohort.Select("high", pop, cohort.HighPerformer[model.OutcomeRecord](cohort.PerformerRule{Diff: 12, Score: 505}))
		low := cohort.Select("low", pop, cohort.LowPerformer[model.OutcomeRecord](cohort.PerformerRule{Diff: 0, Score: 502}))

		Convey("Then the student should belong to both cohorts", func() {
			So(ids(high), ShouldResemble, []model.StudentID{1, 2})
			So(ids(low), ShouldResemble, []model.StudentID{1, 3})
			So(cohort.Overlap(high, low, func(o model.OutcomeRecord) model.StudentID { return o.StudentID }), ShouldEqual, 1)
		})
	})
}

func TestCombinators(t *testing.T) {
	type row struct{ a, b null.Float64 }
	fa := func(r row) null.Float64 { return r.a }
	fb := func(r row) null.Float64 { return r.b }

	Convey("Given three-valued combinators", t, func() {
		and := cohort.And(cohort.Above(fa, 1), cohort.Above(fb, 1))

		Convey("When one side is known false", func() {
			m, k := and(row{a: null.Float64From(0)})
			So(m, ShouldBeFalse)
			So(k, ShouldBeTrue)
		})

		Convey("When one side is unknown and the other true", func() {
			m, k := and(row{a: null.Float64From(5)})
			So(m, ShouldBeFalse)
			So(k, ShouldBeFalse)
		})

		Convey("When negating an unknown", func() {
			_, k := cohort.Not(cohort.Above(fa, 1))(row{})
			So(k, ShouldBeFalse)
		})

		Convey("When checking bounds", func() {
			between := cohort.Between(fa, 8, 25)
			m, _ := between(row{a: null.Float64From(25)})
			So(m, ShouldBeTrue)
			m, _ = between(row{a: null.Float64From(25.5)})
			So(m, ShouldBeFalse)
			m, k := cohort.Defined(fa)(row{})
			So(m, ShouldBeFalse)
			So(k, ShouldBeTrue)
		})

		Convey("When projecting values", func() {
			rows := []row{{a: null.Float64From(2)}, {}}
			c := cohort.Select("all", rows, cohort.Not(cohort.Defined(fb)))
			So(c.Size(), ShouldEqual, 2)
			So(c.Excluded, ShouldEqual, 0)
			So(c.Values(fa), ShouldResemble, []float64{2})
			So(c.Empty(), ShouldBeFalse)

			none := cohort.Select("with b", rows, cohort.Defined(fb))
			So(none.Size(), ShouldEqual, 0)
			So(none.Excluded, ShouldEqual, 0)
			So(none.Empty(), ShouldBeTrue)
		})
	})
}
