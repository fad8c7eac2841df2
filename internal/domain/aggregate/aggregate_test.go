package aggregate_test

import (
	"math/rand"
	"testing"

	"github.com/okian/scholardash/internal/domain/aggregate"
	"github.com/okian/scholardash/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/volatiletech/null/v8"
)

func week(id model.StudentID, period int, attended, scheduled null.Float64, accuracy null.Float64, smallTier null.String) model.EngagementRecord {
	return model.EngagementRecord{
		StudentID:      id,
		Week:           period,
		AttendedLarge:  attended,
		ScheduledLarge: scheduled,
		ClassAccuracy:  accuracy,
		Tiers:          model.TierLabels{SmallGroup: smallTier},
	}
}

func TestAggregateEngagement(t *testing.T) {
	f := null.Float64From
	s := null.StringFrom

	Convey("Given weekly rows for three students", t, func() {
		rows := []model.EngagementRecord{
			week(2, 1, f(1), f(1), f(0.5), null.String{}),
			week(2, 2, f(0), f(3), null.Float64{}, s("Tier 3")),
			week(2, 3, f(2), f(2), f(0.9), s("Tier 1")),
			week(5, 1, f(0), f(0), null.Float64{}, null.String{}),
			week(5, 2, f(0), f(0), null.Float64{}, null.String{}),
			week(9, 1, f(1), f(2), f(0.7), s("Tier 2")),
		}
		agg := aggregate.Engagement()

		Convey("When aggregating", func() {
			out := agg.Aggregate(aggregate.Observations(rows))

			Convey("Then there should be one summary per input student, ordered by id", func() {
				So(out, ShouldHaveLength, 3)
				So(out[0].StudentID, ShouldEqual, model.StudentID(2))
				So(out[1].StudentID, ShouldEqual, model.StudentID(5))
				So(out[2].StudentID, ShouldEqual, model.StudentID(9))
				So(out[0].Periods, ShouldEqual, 3)
			})

			Convey("And attendance rate should be the ratio of sums, not the mean of rates", func() {
				rate := out[0].Metric(model.MetricLargeAttendanceRate)
				So(rate.Valid, ShouldBeTrue)
				So(rate.Float64, ShouldAlmostEqual, 3.0/6.0*100, 1e-9)
			})

			Convey("And zero scheduled sessions should leave the rate undefined", func() {
				So(out[1].Metric(model.MetricScheduledLarge).Float64, ShouldEqual, 0)
				So(out[1].Metric(model.MetricLargeAttendanceRate).Valid, ShouldBeFalse)
			})

			Convey("And means should ignore nulls and stay null when nothing is defined", func() {
				So(out[0].Metric(model.MetricClassAccuracy).Float64, ShouldAlmostEqual, 0.7, 1e-9)
				So(out[1].Metric(model.MetricClassAccuracy).Valid, ShouldBeFalse)
			})

			Convey("And the tier should come from the first period that has one", func() {
				So(out[0].Tier(model.TierSmallGroup).String, ShouldEqual, "Tier 3")
				So(out[1].Tier(model.TierSmallGroup).Valid, ShouldBeFalse)
			})
		})

		Convey("When the rows are shuffled", func() {
			want := agg.Aggregate(aggregate.Observations(rows))
			rng := rand.New(rand.NewSource(7)) //nolint:gosec // deterministic shuffle

			Convey("Then the result should not change", func() {
				for i := 0; i < 10; i++ {
					shuffled := append([]model.EngagementRecord(nil), rows...)
					rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
					So(agg.Aggregate(aggregate.Observations(shuffled)), ShouldResemble, want)
				}
			})
		})
	})
}

func TestRateAndShare(t *testing.T) {
	Convey("Given the rate helper", t, func() {
		So(aggregate.Rate(null.Float64From(0), null.Float64From(0), 100).Valid, ShouldBeFalse)
		So(aggregate.Rate(null.Float64{}, null.Float64From(4), 100).Valid, ShouldBeFalse)
		So(aggregate.Rate(null.Float64From(0), null.Float64From(4), 100).Float64, ShouldEqual, 0)
	})

	Convey("Given a positive-share metric", t, func() {
		agg := aggregate.New(aggregate.WithMetric("share", "p", aggregate.PositiveShare))
		obs := []model.Observation{
			{StudentID: 1, Period: 1, Metrics: map[string]null.Float64{"p": null.Float64From(0)}},
			{StudentID: 1, Period: 2, Metrics: map[string]null.Float64{"p": null.Float64From(0.4)}},
			{StudentID: 1, Period: 3, Metrics: map[string]null.Float64{"p": null.Float64From(1)}},
			{StudentID: 1, Period: 4, Metrics: map[string]null.Float64{}},
		}

		out := agg.Aggregate(obs)
		So(out[0].Metric("share").Float64, ShouldAlmostEqual, 200.0/3.0, 1e-9)
	})

	Convey("Given two tier labels in the same period", t, func() {
		rows := []model.Observation{
			{StudentID: 1, Period: 4, Tiers: map[string]null.String{"t": null.StringFrom("Tier 2")}},
			{StudentID: 1, Period: 4, Tiers: map[string]null.String{"t": null.StringFrom("Tier 1")}},
		}
		So(aggregate.FirstTier(rows, "t").String, ShouldEqual, "Tier 1")
	})
}
