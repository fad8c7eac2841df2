package service

import (
	"context"
	"sort"
	"time"

	"github.com/okian/scholardash/internal/domain/model"
	"github.com/okian/scholardash/pkg/logger"
	"github.com/volatiletech/null/v8"
)

// ProgressRow is one exam in a student's progression.
type ProgressRow struct {
	Date   null.Time    `json:"date"`
	Name   string       `json:"name"`
	Score  float64      `json:"score"`
	Change null.Float64 `json:"change"`
}

// Featured is the featured student progression.
type Featured struct {
	Meta
	StudentID   model.StudentID `json:"student_id"`
	MetGain     bool            `json:"met_gain"`
	Exams       int             `json:"exams"`
	TotalGain   float64         `json:"total_gain"`
	GainPerExam null.Float64    `json:"gain_per_exam"`
	Baseline    null.Float64    `json:"baseline_score"`
	Rows        []ProgressRow   `json:"rows"`
}

// Featured picks the first student, by id, with enough exams and a large
// gain. Without such a student it falls back to the first with enough exams.
func (s *Service) Featured(ctx context.Context) Featured {
	start := time.Now()
	var out Featured
	defer func() { s.observe(ctx, "featured", start, out.Meta) }()

	tbl, err := s.tablesOrDefault().ExamHistory(ctx)
	if err != nil {
		out.Meta = unavailable(err)
		return out
	}
	cfg := s.analysis.Featured

	byStudent := make(map[model.StudentID][]model.ExamRecord)
	for _, e := range tbl.Rows {
		if e.Score.Valid {
			byStudent[e.StudentID] = append(byStudent[e.StudentID], e)
		}
	}
	ids := make([]model.StudentID, 0, len(byStudent))
	for id, exams := range byStudent {
		if len(exams) >= cfg.MinExams {
			ids = append(ids, id)
			sortExams(exams)
		}
	}
	if len(ids) == 0 {
		out.Meta = insufficient()
		return out
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	chosen := ids[0]
	for _, id := range ids {
		exams := byStudent[id]
		if exams[len(exams)-1].Score.Float64-exams[0].Score.Float64 >= cfg.MinGain {
			chosen = id
			out.MetGain = true
			break
		}
	}

	exams := byStudent[chosen]
	out.StudentID = chosen
	out.Exams = len(exams)
	out.Rows = make([]ProgressRow, len(exams))
	for i, e := range exams {
		row := ProgressRow{Date: e.Date, Name: e.Name, Score: e.Score.Float64}
		if i > 0 {
			row.Change = null.Float64From(e.Score.Float64 - exams[i-1].Score.Float64)
		}
		out.Rows[i] = row
	}
	out.TotalGain = exams[len(exams)-1].Score.Float64 - exams[0].Score.Float64
	if len(exams) > 1 {
		out.GainPerExam = null.Float64From(out.TotalGain / float64(len(exams)-1))
	}
	out.Baseline = s.baseline(ctx, chosen)
	out.Meta = available()
	return out
}

// baseline returns the outcome baseline of id from its first outcome row.
// It is undefined when the outcomes bundle is missing.
func (s *Service) baseline(ctx context.Context, id model.StudentID) null.Float64 {
	tbl, err := s.tablesOrDefault().Outcomes(ctx)
	if err != nil {
		s.log().Debug(ctx, "featured baseline unavailable", logger.Error(err))
		return null.Float64{}
	}
	for _, r := range tbl.Rows {
		if r.StudentID == id {
			return r.Baseline
		}
	}
	return null.Float64{}
}

// sortExams orders exams by date; undated exams keep file order at the end.
func sortExams(exams []model.ExamRecord) {
	sort.SliceStable(exams, func(i, j int) bool {
		a, b := exams[i].Date, exams[j].Date
		if a.Valid != b.Valid {
			return a.Valid
		}
		return a.Valid && a.Time.Before(b.Time)
	})
}
