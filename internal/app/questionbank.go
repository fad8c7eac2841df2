package service

import (
	"context"
	"sort"
	"time"

	"github.com/okian/scholardash/internal/domain/cohort"
	"github.com/okian/scholardash/internal/domain/model"
	"github.com/okian/scholardash/internal/domain/stats"
	"github.com/volatiletech/null/v8"
)

// QuestionBankRow is one student's total completed sets and score change.
type QuestionBankRow struct {
	StudentID      model.StudentID `json:"student_id"`
	TotalCompleted null.Float64    `json:"total_completed"`
	Change         null.Float64    `json:"change"`
}

// ScoreChange returns the student's score difference.
func (r QuestionBankRow) ScoreChange() null.Float64 { return r.Change }

// OutcomeScore is not tracked for question bank rows.
func (r QuestionBankRow) OutcomeScore() null.Float64 { return null.Float64{} }

func totalCompleted(r QuestionBankRow) null.Float64 { return r.TotalCompleted }

// QuestionBank contrasts question bank usage of high and low improvers.
type QuestionBank struct {
	Meta
	Students    int              `json:"students"`
	HighAbove   float64          `json:"high_above"`
	LowBelow    float64          `json:"low_below"`
	High        int              `json:"high"`
	Low         int              `json:"low"`
	Comparison  stats.Comparison `json:"comparison"`
	Correlation Correlation      `json:"correlation"`
	Trend       stats.Fit        `json:"trend"`
}

// QuestionBank sums completed sets per student across outcome rows and
// compares the high and low improvement cohorts.
func (s *Service) QuestionBank(ctx context.Context) QuestionBank {
	start := time.Now()
	cfg := s.analysis.QuestionBank
	out := QuestionBank{HighAbove: cfg.HighAbove, LowBelow: cfg.LowBelow}
	defer func() { s.observe(ctx, "question_bank", start, out.Meta) }()

	tbl, err := s.tablesOrDefault().Outcomes(ctx)
	if err != nil {
		out.Meta = unavailable(err)
		return out
	}
	rows := questionBankRows(tbl.Rows)
	out.Students = len(rows)

	high := cohort.Select("high improvement", rows, cohort.ImprovementAbove[QuestionBankRow](cfg.HighAbove))
	low := cohort.Select("low improvement", rows, cohort.ImprovementBelow[QuestionBankRow](cfg.LowBelow))
	out.High, out.Low = high.Size(), low.Size()
	s.cohortSizes(ctx, "question_bank", map[string]int{"high": high.Size(), "low": low.Size()})

	out.Comparison = stats.Compare("total_completed",
		stats.Sample{Name: high.Name, Values: high.Values(totalCompleted)},
		stats.Sample{Name: low.Name, Values: low.Values(totalCompleted)},
		s.compareOptions())
	out.Correlation = correlate("total_completed", rows, totalCompleted, cohort.ScoreChange[QuestionBankRow])
	xs, ys := pairs(rows, totalCompleted, cohort.ScoreChange[QuestionBankRow])
	out.Trend = stats.LinearFit(xs, ys)

	if !out.Comparison.Available {
		out.Meta = insufficient()
		return out
	}
	out.Meta = available()
	return out
}

// questionBankRows sums completed sets per student. The score change is
// taken from the student's first row.
func questionBankRows(outcomes []model.OutcomeRecord) []QuestionBankRow {
	byID := make(map[model.StudentID]*QuestionBankRow)
	order := make([]model.StudentID, 0)
	for _, o := range outcomes {
		r, ok := byID[o.StudentID]
		if !ok {
			r = &QuestionBankRow{StudentID: o.StudentID, Change: o.ScoreDifference}
			byID[o.StudentID] = r
			order = append(order, o.StudentID)
		}
		if o.CompletedSets.Valid {
			r.TotalCompleted = null.Float64From(r.TotalCompleted.Float64 + o.CompletedSets.Float64)
		}
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	out := make([]QuestionBankRow, len(order))
	for i, id := range order {
		out[i] = *byID[id]
	}
	return out
}
