package service

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/scholardash/internal/domain/categorize"
	"github.com/okian/scholardash/internal/domain/model"
	"github.com/volatiletech/null/v8"
)

// SchoolList lists the schools of the roster.
type SchoolList struct {
	Meta
	Schools []int64 `json:"schools"`
}

// SchoolCategories is the categorized roster of one school, or of every
// school when School is null.
type SchoolCategories struct {
	Meta
	School null.Int64                                             `json:"school"`
	Report categorize.Report[model.RosterRecord, model.StudentID] `json:"report"`
	Roster []model.RosterRecord                                   `json:"roster"`
}

// Schools lists the distinct schools of the roster.
func (s *Service) Schools(ctx context.Context) SchoolList {
	start := time.Now()
	var out SchoolList
	defer func() { s.observe(ctx, "schools", start, out.Meta) }()

	tbl, err := s.tablesOrDefault().Roster(ctx)
	if err != nil {
		out.Meta = unavailable(err)
		return out
	}
	out.Schools = categorize.Schools(tbl.Rows)
	out.Meta = available()
	return out
}

// SchoolCategories evaluates the intervention rules against the roster.
func (s *Service) SchoolCategories(ctx context.Context, school null.Int64) SchoolCategories {
	start := time.Now()
	out := SchoolCategories{School: school}
	defer func() { s.observe(ctx, "school_categories", start, out.Meta) }()

	tbl, err := s.tablesOrDefault().Roster(ctx)
	if err != nil {
		out.Meta = unavailable(err)
		return out
	}
	out.Roster = categorize.FilterSchool(tbl.Rows, school)
	if len(out.Roster) == 0 {
		out.Meta = insufficient()
		return out
	}

	cfg := s.analysis.School
	rules := categorize.SchoolRules(categorize.SchoolThresholds{
		BelowScore:   cfg.BelowScore,
		VeryLowScore: cfg.VeryLowScore,
		BandMin:      cfg.BandMin,
		BandMax:      cfg.BandMax,
	})
	out.Report = categorize.Evaluate(out.Roster, rules, categorize.StudentKey)

	sizes := make(map[string]int, len(out.Report.Categories)+1)
	for i, c := range out.Report.Categories {
		sizes[fmt.Sprintf("rule_%d", i+1)] = c.Count
	}
	sizes["unflagged"] = out.Report.Unflagged
	s.cohortSizes(ctx, "school_categories", sizes)

	out.Meta = available()
	return out
}
