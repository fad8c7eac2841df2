// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Every per-analysis cutoff has its own key; cutoffs are never shared.
// - External errors must be wrapped via this package's error helpers.
package config

import "time"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn warning error"`

	// LogFormat selects text or json log output.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr" validate:"required"`

	// DataDirs are the candidate base paths probed in order.
	DataDirs []string `koanf:"data_dirs" validate:"min=1"`

	// Files names each input table relative to a data dir.
	Files Files `koanf:"files"`

	// Auth configures the optional password gate.
	Auth Auth `koanf:"auth"`

	// Tiers is the named threshold table used by the tier classifier.
	Tiers map[string]TierBands `koanf:"tiers" validate:"min=1,dive"`

	// Analysis holds the per-analysis cutoffs.
	Analysis Analysis `koanf:"analysis"`
}

// Files lists the default file name of every input table.
type Files struct {
	Engagement       string `koanf:"engagement" validate:"required"`
	TieredEngagement string `koanf:"tiered_engagement" validate:"required"`
	Exams            string `koanf:"exams" validate:"required"`
	Sections         string `koanf:"sections" validate:"required"`
	Tiers            string `koanf:"tiers" validate:"required"`
	Outcomes         string `koanf:"outcomes" validate:"required"`
	Roster           string `koanf:"roster" validate:"required"`
}

// Auth configures the dashboard password gate. The gate is off when neither
// Password nor PasswordHash is set.
type Auth struct {
	Password      string        `koanf:"password"`
	PasswordHash  string        `koanf:"password_hash"`
	SessionSecret string        `koanf:"session_secret"`
	SessionTTL    time.Duration `koanf:"session_ttl" validate:"gt=0"`
}

// Enabled reports whether a password is configured.
func (a Auth) Enabled() bool {
	return a.Password != "" || a.PasswordHash != ""
}

// TierBands holds the inclusive lower bounds, in percent, of Tier 1 and Tier 2.
type TierBands struct {
	Label    string  `koanf:"label" validate:"required"`
	Tier1Min float64 `koanf:"tier1_min" validate:"gtfield=Tier2Min,lte=100"`
	Tier2Min float64 `koanf:"tier2_min" validate:"gte=0"`
}

// Analysis groups the cutoffs of every analysis.
type Analysis struct {
	Insights     Insights     `koanf:"insights"`
	QuestionBank QuestionBank `koanf:"question_bank"`
	Exams        Exams        `koanf:"exams"`
	Performer    Performer    `koanf:"performer"`
	Heatmap      Heatmap      `koanf:"heatmap"`
	Featured     Featured     `koanf:"featured"`
	School       School       `koanf:"school"`

	// Alpha is the significance level for compare().
	Alpha float64 `koanf:"alpha" validate:"gt=0,lt=1"`

	// EqualVariance selects the pooled t-test; false selects Welch.
	EqualVariance bool `koanf:"equal_variance"`
}

type Insights struct {
	HighImprovementAbove float64 `koanf:"high_improvement_above"`
}

type QuestionBank struct {
	HighAbove float64 `koanf:"high_above"`
	LowBelow  float64 `koanf:"low_below"`
}

type Exams struct {
	HighVolumeAbove float64 `koanf:"high_volume_above"`
	GrowthMin       float64 `koanf:"growth_min"`
	GrowthMax       float64 `koanf:"growth_max" validate:"gtefield=GrowthMin"`
	MinGroupSize    int     `koanf:"min_group_size" validate:"gte=1"`
}

type Performer struct {
	HighDiffAbove    float64 `koanf:"high_diff_above"`
	HighScoreAbove   float64 `koanf:"high_score_above"`
	LowDiffAtMost    float64 `koanf:"low_diff_at_most"`
	LowScoreBelow    float64 `koanf:"low_score_below"`
	LowBaselineBelow float64 `koanf:"low_baseline_below"`
}

type Heatmap struct {
	ImprovementAbove float64 `koanf:"improvement_above"`
	MaxStudents      int     `koanf:"max_students" validate:"gte=1"`
}

type Featured struct {
	MinExams int     `koanf:"min_exams" validate:"gte=2"`
	MinGain  float64 `koanf:"min_gain"`
}

// School holds the roster thresholds used by the school categories.
type School struct {
	BelowScore   float64 `koanf:"below_score"`
	VeryLowScore float64 `koanf:"very_low_score"`
	BandMin      float64 `koanf:"band_min"`
	BandMax      float64 `koanf:"band_max" validate:"gtefield=BandMin"`
}

// Tier threshold set names.
const (
	TierSetSurvey        = "survey"
	TierSetAttendance    = "attendance"
	TierSetParticipation = "participation"
	TierSetEngagement    = "engagement"
)

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Addr:      ":9080",
		DataDirs: []string{
			"student-data/",
			"./student-data/",
			"student_data/",
			"./student_data/",
			"data/",
			"",
		},
		Files: Files{
			Engagement:       "institution-1-engagement-data.csv",
			TieredEngagement: "data_outcomes_with_tiers.csv",
			Exams:            "institution-1-test-data.csv",
			Sections:         "institution-1-2025-exam-data-jw-exams.csv",
			Tiers:            "tierdata.csv",
			Outcomes:         "student_outcomes.csv",
			Roster:           "jfd-combined.csv",
		},
		Auth: Auth{
			SessionTTL: 12 * time.Hour,
		},
		Tiers: map[string]TierBands{
			TierSetSurvey:        {Label: "Responsiveness to Surveys", Tier1Min: 80, Tier2Min: 50},
			TierSetAttendance:    {Label: "Attendance in Sessions", Tier1Min: 80, Tier2Min: 50},
			TierSetParticipation: {Label: "Class Participation", Tier1Min: 75, Tier2Min: 50},
			TierSetEngagement:    {Label: "Engagement", Tier1Min: 75, Tier2Min: 50},
		},
		Analysis: Analysis{
			Insights:     Insights{HighImprovementAbove: 5},
			QuestionBank: QuestionBank{HighAbove: 8, LowBelow: 7},
			Exams: Exams{
				HighVolumeAbove: 8,
				GrowthMin:       8,
				GrowthMax:       25,
				MinGroupSize:    3,
			},
			Performer: Performer{
				HighDiffAbove:    12,
				HighScoreAbove:   505,
				LowDiffAtMost:    0,
				LowScoreBelow:    502,
				LowBaselineBelow: 495,
			},
			Heatmap:       Heatmap{ImprovementAbove: 4, MaxStudents: 50},
			Featured:      Featured{MinExams: 4, MinGain: 10},
			School:        School{BelowScore: 502, VeryLowScore: 495, BandMin: 495, BandMax: 500},
			Alpha:         0.05,
			EqualVariance: true,
		},
	}
}
