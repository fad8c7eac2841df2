package model

import (
	"time"

	"github.com/volatiletech/null/v8"
)

// Engagement metric names. They match the engagement table headers.
const (
	MetricAttendedLarge         = "num_attended_large_session"
	MetricScheduledLarge        = "num_scheduled_large_session"
	MetricAttendedSmall         = "num_attended_small_session"
	MetricScheduledSmall        = "num_scheduled_small_session"
	MetricClassParticipation    = "class_participation"
	MetricHomeworkParticipation = "homework_participation"
	MetricCarsAccuracy          = "cars_accuracy"
	MetricSciencesAccuracy      = "sciences_accuracy"
	MetricClassAccuracy         = "class_accuracy"
	MetricCompletedLessons      = "completed_lessons"
	MetricCompletedSets         = "total_completed_passages_discrete_sets"

	// Derived by the aggregator.
	MetricLargeAttendanceRate = "large_attendance_rate"
	MetricSmallAttendanceRate = "small_attendance_rate"
	MetricParticipationShare  = "class_participation_share"
)

// EngagementRecord is one weekly engagement row. Tiers and ScoreDifference
// are only populated from the tiered engagement table.
type EngagementRecord struct {
	StudentID             StudentID    `json:"student_id"`
	Week                  int          `json:"week"`
	StartDate             null.Time    `json:"start_date"`
	EndDate               null.Time    `json:"end_date"`
	AttendedLarge         null.Float64 `json:"num_attended_large_session"`
	ScheduledLarge        null.Float64 `json:"num_scheduled_large_session"`
	AttendedSmall         null.Float64 `json:"num_attended_small_session"`
	ScheduledSmall        null.Float64 `json:"num_scheduled_small_session"`
	ClassParticipation    null.Float64 `json:"class_participation"`
	HomeworkParticipation null.Float64 `json:"homework_participation"`
	CarsAccuracy          null.Float64 `json:"cars_accuracy"`
	SciencesAccuracy      null.Float64 `json:"sciences_accuracy"`
	ClassAccuracy         null.Float64 `json:"class_accuracy"`
	CompletedLessons      null.Float64 `json:"completed_lessons"`
	CompletedSets         null.Float64 `json:"total_completed_passages_discrete_sets"`
	Tiers                 TierLabels   `json:"tiers"`
	ScoreDifference       null.Float64 `json:"score_difference"`
}

// Observation converts the row into the aggregator's generic shape.
func (r EngagementRecord) Observation() Observation {
	return Observation{
		StudentID: r.StudentID,
		Period:    r.Week,
		Metrics: map[string]null.Float64{
			MetricAttendedLarge:         r.AttendedLarge,
			MetricScheduledLarge:        r.ScheduledLarge,
			MetricAttendedSmall:         r.AttendedSmall,
			MetricScheduledSmall:        r.ScheduledSmall,
			MetricClassParticipation:    r.ClassParticipation,
			MetricHomeworkParticipation: r.HomeworkParticipation,
			MetricCarsAccuracy:          r.CarsAccuracy,
			MetricSciencesAccuracy:      r.SciencesAccuracy,
			MetricClassAccuracy:         r.ClassAccuracy,
			MetricCompletedLessons:      r.CompletedLessons,
			MetricCompletedSets:         r.CompletedSets,
		},
		Tiers: r.Tiers.Map(),
	}
}

// ExamRecord is one practice exam result.
type ExamRecord struct {
	StudentID StudentID    `json:"student_id"`
	Date      null.Time    `json:"test_date"`
	Name      string       `json:"test_name"`
	Score     null.Float64 `json:"actual_exam_score"`
}

// SectionRecord is one per-topic accuracy row of a practice exam.
type SectionRecord struct {
	StudentID StudentID    `json:"student_id"`
	ExamName  string       `json:"exam_name"`
	Section   string       `json:"exam_section"`
	Topic     string       `json:"question_topic"`
	Frequency null.Float64 `json:"question_frequency"`
	Accuracy  null.Float64 `json:"student_accuracy"`
}

// TierRecord is a student's tier assignment row.
type TierRecord struct {
	StudentID StudentID  `json:"student_id"`
	Tiers     TierLabels `json:"tiers"`
}

// OutcomeRecord is one row of the per-student outcome table.
type OutcomeRecord struct {
	StudentID          StudentID    `json:"student_id"`
	Baseline           null.Float64 `json:"baseline_score"`
	PracticeExams      null.Float64 `json:"practice_exams"`
	MostRecentPractice null.Float64 `json:"most_recent_practice_exam"`
	ActualScore        null.Float64 `json:"actual_score"`
	ScoreDifference    null.Float64 `json:"score_difference"`
	CompletedSets      null.Float64 `json:"completed_sets"`
}

// PracticeImprovement is the most recent practice score minus the baseline.
func (o OutcomeRecord) PracticeImprovement() null.Float64 {
	if !o.MostRecentPractice.Valid || !o.Baseline.Valid {
		return null.Float64{}
	}
	return null.Float64From(o.MostRecentPractice.Float64 - o.Baseline.Float64)
}

// RosterRecord is one student of the school roster.
type RosterRecord struct {
	StudentID           StudentID    `json:"student_id"`
	School              null.Int64   `json:"school"`
	HighestScore        null.Float64 `json:"highest_exam_score"`
	ExamCount           int          `json:"exam_count"`
	AnticipatedExamDate null.String  `json:"anticipated_exam_date"`
	AllExamsAndScores   null.String  `json:"all_exams_and_scores"`
	Tiers               TierLabels   `json:"tiers"`
}

// DateLayouts are the date formats accepted in input tables.
var DateLayouts = []string{"2006-01-02", "01/02/2006", "1/2/2006", "2006-01-02 15:04:05", time.RFC3339} //nolint:gochecknoglobals // parse table

// ScoreChange returns the score difference.
func (o OutcomeRecord) ScoreChange() null.Float64 { return o.ScoreDifference }

// OutcomeScore returns the actual exam score.
func (o OutcomeRecord) OutcomeScore() null.Float64 { return o.ActualScore }
