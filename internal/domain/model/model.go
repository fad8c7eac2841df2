// Package model contains domain models passed between layers.
//
// Every metric that can be missing is a null type: an undefined value is
// never represented as zero.
package model

import (
	"errors"

	"github.com/volatiletech/null/v8"
)

// Error taxonomy shared by every analysis.
var (
	ErrMissingInput    = errors.New("missing input")
	ErrUndefinedMetric = errors.New("undefined metric")
	ErrEmptyCohort     = errors.New("insufficient data")
	ErrMalformedRow    = errors.New("malformed row")
)

// StudentID identifies a student across every input table.
type StudentID int64

// Tier axes, named after the source columns of the tiered tables.
const (
	TierSurvey             = "Survey Tier"
	TierLargeGroup         = "Large Group Tier"
	TierSmallGroup         = "Small Group Tier"
	TierClassParticipation = "Class Participation Tier"
)

// TierAxes lists the tier axes in presentation order.
var TierAxes = []string{TierSurvey, TierLargeGroup, TierSmallGroup, TierClassParticipation} //nolint:gochecknoglobals // fixed axis order

// TierLabels holds the raw tier label of each axis.
type TierLabels struct {
	Survey             null.String `json:"survey_tier"`
	LargeGroup         null.String `json:"large_group_tier"`
	SmallGroup         null.String `json:"small_group_tier"`
	ClassParticipation null.String `json:"class_participation_tier"`
}

// Get returns the label of the named axis.
func (t TierLabels) Get(axis string) null.String {
	switch axis {
	case TierSurvey:
		return t.Survey
	case TierLargeGroup:
		return t.LargeGroup
	case TierSmallGroup:
		return t.SmallGroup
	case TierClassParticipation:
		return t.ClassParticipation
	default:
		return null.String{}
	}
}

// Map returns the labels keyed by axis, skipping null ones.
func (t TierLabels) Map() map[string]null.String {
	m := make(map[string]null.String, len(TierAxes))
	for _, axis := range TierAxes {
		if v := t.Get(axis); v.Valid {
			m[axis] = v
		}
	}
	return m
}

// Observation is one (student, period) row in the generic shape the
// metric aggregator consumes.
type Observation struct {
	StudentID StudentID
	Period    int
	Metrics   map[string]null.Float64
	Tiers     map[string]null.String
}

// StudentSummary is one aggregated row per student.
type StudentSummary struct {
	StudentID StudentID               `json:"student_id"`
	Periods   int                     `json:"periods"`
	Metrics   map[string]null.Float64 `json:"metrics"`
	Tiers     map[string]null.String  `json:"tiers"`
}

// Metric returns the named metric, null when absent.
func (s StudentSummary) Metric(name string) null.Float64 {
	return s.Metrics[name]
}

// Tier returns the named tier label, null when absent.
func (s StudentSummary) Tier(axis string) null.String {
	return s.Tiers[axis]
}
