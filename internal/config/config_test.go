package config_test

import (
	"errors"
	"testing"

	"github.com/okian/scholardash/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
			convey.So(cfg.DataDirs[0], convey.ShouldEqual, "student-data/")
			convey.So(cfg.Files.Roster, convey.ShouldEqual, "jfd-combined.csv")
		})

		convey.Convey("Then every analysis should carry its own cutoff", func() {
			a := cfg.Analysis
			convey.So(a.Insights.HighImprovementAbove, convey.ShouldEqual, 5)
			convey.So(a.QuestionBank.HighAbove, convey.ShouldEqual, 8)
			convey.So(a.QuestionBank.LowBelow, convey.ShouldEqual, 7)
			convey.So(a.Performer.HighDiffAbove, convey.ShouldEqual, 12)
			convey.So(a.Heatmap.ImprovementAbove, convey.ShouldEqual, 4)
			convey.So(a.Alpha, convey.ShouldEqual, 0.05)
			convey.So(a.EqualVariance, convey.ShouldBeTrue)
		})

		convey.Convey("Then the tier table should hold both threshold sets", func() {
			convey.So(cfg.Tiers[config.TierSetSurvey].Tier1Min, convey.ShouldEqual, 80)
			convey.So(cfg.Tiers[config.TierSetParticipation].Tier1Min, convey.ShouldEqual, 75)
			convey.So(cfg.Tiers[config.TierSetEngagement].Tier2Min, convey.ShouldEqual, 50)
		})

		convey.Convey("Then the defaults should validate", func() {
			convey.So(config.Validate(cfg), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		cfg := config.New()

		convey.Convey("When the log format is unknown", func() {
			cfg.LogFormat = "xml"
			convey.So(errors.Is(config.Validate(cfg), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When tier bounds are inverted", func() {
			cfg.Tiers[config.TierSetSurvey] = config.TierBands{Label: "Survey", Tier1Min: 40, Tier2Min: 50}
			convey.So(errors.Is(config.Validate(cfg), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When the growth band is empty", func() {
			cfg.Analysis.Exams.GrowthMin = 30
			convey.So(config.Validate(cfg), convey.ShouldNotBeNil)
		})

		convey.Convey("When a password hash and secret are set", func() {
			cfg.Auth.PasswordHash = "$2a$10$abcdefghijklmnopqrstuu"
			cfg.Auth.SessionSecret = "s3cret"
			convey.So(cfg.Auth.Enabled(), convey.ShouldBeTrue)
			convey.So(config.Validate(cfg), convey.ShouldBeNil)
		})
	})
}
