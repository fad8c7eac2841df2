package aggregate

import "github.com/okian/scholardash/internal/domain/model"

const percent = 100

// Engagement returns the plan used for weekly engagement tables: session
// counts are summed and turned into attendance rates, accuracies and
// participation are averaged, and every tier axis is carried.
func Engagement() *Aggregator {
	return New(
		WithMetric(model.MetricAttendedLarge, model.MetricAttendedLarge, Sum),
		WithMetric(model.MetricScheduledLarge, model.MetricScheduledLarge, Sum),
		WithMetric(model.MetricAttendedSmall, model.MetricAttendedSmall, Sum),
		WithMetric(model.MetricScheduledSmall, model.MetricScheduledSmall, Sum),
		WithMetric(model.MetricCompletedSets, model.MetricCompletedSets, Sum),
		WithMetric(model.MetricCompletedLessons, model.MetricCompletedLessons, Sum),
		WithMetric(model.MetricClassAccuracy, model.MetricClassAccuracy, Mean),
		WithMetric(model.MetricCarsAccuracy, model.MetricCarsAccuracy, Mean),
		WithMetric(model.MetricSciencesAccuracy, model.MetricSciencesAccuracy, Mean),
		WithMetric(model.MetricClassParticipation, model.MetricClassParticipation, Mean),
		WithMetric(model.MetricHomeworkParticipation, model.MetricHomeworkParticipation, Mean),
		WithMetric(model.MetricParticipationShare, model.MetricClassParticipation, PositiveShare),
		WithRatio(model.MetricLargeAttendanceRate, model.MetricAttendedLarge, model.MetricScheduledLarge, percent),
		WithRatio(model.MetricSmallAttendanceRate, model.MetricAttendedSmall, model.MetricScheduledSmall, percent),
		WithTiers(model.TierAxes...),
	)
}

// Observations converts engagement rows for Aggregate.
func Observations(records []model.EngagementRecord) []model.Observation {
	out := make([]model.Observation, len(records))
	for i, r := range records {
		out[i] = r.Observation()
	}
	return out
}
