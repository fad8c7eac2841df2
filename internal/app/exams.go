package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/okian/scholardash/internal/domain/cohort"
	"github.com/okian/scholardash/internal/domain/model"
	"github.com/okian/scholardash/internal/domain/stats"
	"github.com/volatiletech/null/v8"
)

// growthSplits divide the high growth band into its sub-bands.
var growthSplits = []float64{13, 20} //nolint:gochecknoglobals // sub-band edges

// Standing summarizes one improvement cohort.
type Standing struct {
	Students   int          `json:"students"`
	Share      null.Float64 `json:"share"`
	MeanChange null.Float64 `json:"mean_change"`
}

// Band counts students in [Lo, Hi].
type Band struct {
	Label    string       `json:"label"`
	Lo       float64      `json:"lo"`
	Hi       float64      `json:"hi"`
	Students int          `json:"students"`
	Share    null.Float64 `json:"share"`
}

// GrowthBand describes the students whose improvement falls in the growth band.
type GrowthBand struct {
	Min               float64       `json:"min"`
	Max               float64       `json:"max"`
	Students          int           `json:"students"`
	Share             null.Float64  `json:"share"`
	Change            stats.Summary `json:"change"`
	Histogram         []stats.Bin   `json:"histogram"`
	SubBands          []Band        `json:"sub_bands"`
	MeanBaseline      null.Float64  `json:"mean_baseline"`
	MeanPracticeExams null.Float64  `json:"mean_practice_exams"`
}

// HighVolumeRow is one student of the high-volume cohort.
type HighVolumeRow struct {
	StudentID     model.StudentID `json:"student_id"`
	PracticeExams null.Float64    `json:"practice_exams"`
	Baseline      null.Float64    `json:"baseline"`
	Actual        null.Float64    `json:"actual"`
	Change        null.Float64    `json:"change"`
}

// HighVolume describes students who took many practice exams.
type HighVolume struct {
	Above         float64         `json:"above"`
	Students      int             `json:"students"`
	Change        stats.Summary   `json:"change"`
	SuccessRate   null.Float64    `json:"success_rate"`
	PointsPerExam null.Float64    `json:"points_per_exam"`
	Rows          []HighVolumeRow `json:"rows"`
}

// PracticeCategory groups students by practice exam count.
type PracticeCategory struct {
	Label        string       `json:"label"`
	Students     int          `json:"students"`
	MeanChange   null.Float64 `json:"mean_change"`
	ImprovedRate null.Float64 `json:"improved_rate"`
}

// Exams is the exam analysis over the outcome table.
type Exams struct {
	Meta
	Students      int                `json:"students"`
	Improved      Standing           `json:"improved"`
	Declined      Standing           `json:"declined"`
	Unchanged     Standing           `json:"unchanged"`
	Effectiveness stats.Grouped      `json:"effectiveness"`
	Scatter       []stats.Pair       `json:"scatter"`
	Trend         stats.Fit          `json:"trend"`
	Correlation   null.Float64       `json:"correlation"`
	Growth        GrowthBand         `json:"growth"`
	HighVolume    HighVolume         `json:"high_volume"`
	Categories    []PracticeCategory `json:"categories"`
}

func practiceExams(o model.OutcomeRecord) null.Float64 { return o.PracticeExams }

func outcomeBaseline(o model.OutcomeRecord) null.Float64 { return o.Baseline }

// Exams analyzes score changes and practice exam volume.
func (s *Service) Exams(ctx context.Context) Exams {
	start := time.Now()
	var out Exams
	defer func() { s.observe(ctx, "exams", start, out.Meta) }()

	tbl, err := s.tablesOrDefault().Outcomes(ctx)
	if err != nil {
		out.Meta = unavailable(err)
		return out
	}
	rows := tbl.Rows
	out.Students = len(rows)
	if len(rows) == 0 {
		out.Meta = insufficient()
		return out
	}
	cfg := s.analysis.Exams
	change := cohort.ScoreChange[model.OutcomeRecord]

	improved := cohort.Select("improved", rows, cohort.Improved[model.OutcomeRecord]())
	declined := cohort.Select("declined", rows, cohort.Declined[model.OutcomeRecord]())
	unchanged := cohort.Select("unchanged", rows, cohort.Unchanged[model.OutcomeRecord]())
	out.Improved = standing(improved, len(rows))
	out.Declined = standing(declined, len(rows))
	out.Unchanged = standing(unchanged, len(rows))

	xs, ys := pairs(rows, practiceExams, change)
	out.Scatter = make([]stats.Pair, len(xs))
	for i := range xs {
		out.Scatter[i] = stats.Pair{X: xs[i], Y: ys[i]}
	}
	out.Effectiveness = stats.GroupBest(out.Scatter, cfg.MinGroupSize)
	out.Trend = stats.LinearFit(xs, ys)
	out.Correlation = stats.Pearson(xs, ys)

	growth := cohort.Select("growth", rows, cohort.Between(change, cfg.GrowthMin, cfg.GrowthMax))
	out.Growth = growthBand(growth, len(rows), cfg.GrowthMin, cfg.GrowthMax)

	volume := cohort.Select("high volume", rows, cohort.Above(practiceExams, cfg.HighVolumeAbove))
	out.HighVolume = highVolume(volume, cfg.HighVolumeAbove)

	out.Categories = practiceCategories(rows)

	s.cohortSizes(ctx, "exams", map[string]int{
		"improved":   improved.Size(),
		"declined":   declined.Size(),
		"unchanged":  unchanged.Size(),
		"growth":     growth.Size(),
		"highVolume": volume.Size(),
	})
	out.Meta = available()
	return out
}

func standing(c cohort.Cohort[model.OutcomeRecord], population int) Standing {
	return Standing{
		Students:   c.Size(),
		Share:      share(c, population),
		MeanChange: stats.Mean(c.Values(cohort.ScoreChange[model.OutcomeRecord])),
	}
}

func growthBand(c cohort.Cohort[model.OutcomeRecord], population int, lo, hi float64) GrowthBand {
	values := c.Values(cohort.ScoreChange[model.OutcomeRecord])
	g := GrowthBand{
		Min:               lo,
		Max:               hi,
		Students:          c.Size(),
		Share:             share(c, population),
		Change:            stats.Describe(values),
		Histogram:         stats.IntegerHistogram(values, int(lo), int(hi)),
		MeanBaseline:      stats.Mean(c.Values(outcomeBaseline)),
		MeanPracticeExams: stats.Mean(c.Values(practiceExams)),
	}
	edges := append([]float64{lo}, growthSplits...)
	edges = append(edges, hi)
	for i := 0; i+1 < len(edges); i++ {
		from, to := edges[i], edges[i+1]
		if from < lo || to > hi || from >= to {
			continue
		}
		b := Band{Lo: from, Hi: to}
		last := i+2 == len(edges)
		for _, v := range values {
			if v >= from && (v < to || (last && v <= to)) {
				b.Students++
			}
		}
		if last {
			b.Label = fmt.Sprintf("%g-%g", from, to)
		} else {
			b.Label = fmt.Sprintf("%g-%g", from, to-1)
		}
		b.Share = stats.Share(b.Students, len(values))
		g.SubBands = append(g.SubBands, b)
	}
	return g
}

func highVolume(c cohort.Cohort[model.OutcomeRecord], above float64) HighVolume {
	change := cohort.ScoreChange[model.OutcomeRecord]
	h := HighVolume{
		Above:    above,
		Students: c.Size(),
		Change:   stats.Describe(c.Values(change)),
		Rows:     make([]HighVolumeRow, 0, c.Size()),
	}
	improved := cohort.Select("improved", c.Members, cohort.Improved[model.OutcomeRecord]())
	h.SuccessRate = share(improved, c.Size())
	if exams := stats.Mean(c.Values(practiceExams)); exams.Valid && exams.Float64 > 0 && h.Change.Mean.Valid {
		h.PointsPerExam = null.Float64From(h.Change.Mean.Float64 / exams.Float64)
	}
	for _, m := range c.Members {
		h.Rows = append(h.Rows, HighVolumeRow{
			StudentID:     m.StudentID,
			PracticeExams: m.PracticeExams,
			Baseline:      m.Baseline,
			Actual:        m.ActualScore,
			Change:        m.ScoreDifference,
		})
	}
	// Largest improvement first; undefined changes last.
	sort.SliceStable(h.Rows, func(i, j int) bool {
		a, b := h.Rows[i].Change, h.Rows[j].Change
		if a.Valid != b.Valid {
			return a.Valid
		}
		return a.Float64 > b.Float64
	})
	return h
}

// practiceCategories bins practice exam counts into 1, 2-3, 4-5 and 6+.
// Zero exams fall into the first bin.
func practiceCategories(rows []model.OutcomeRecord) []PracticeCategory {
	bins := []struct {
		label  string
		lo, hi float64
	}{
		{"1", -1, 1},
		{"2-3", 1, 3},
		{"4-5", 3, 5},
		{"6+", 5, 1e9},
	}
	out := make([]PracticeCategory, 0, len(bins))
	for _, b := range bins {
		lo, hi := b.lo, b.hi
		in := cohort.Select(b.label, rows, func(o model.OutcomeRecord) (bool, bool) {
			if !o.PracticeExams.Valid {
				return false, false
			}
			return o.PracticeExams.Float64 > lo && o.PracticeExams.Float64 <= hi, true
		})
		improved := cohort.Select("improved", in.Members, cohort.Improved[model.OutcomeRecord]())
		out = append(out, PracticeCategory{
			Label:        b.label,
			Students:     in.Size(),
			MeanChange:   stats.Mean(in.Values(cohort.ScoreChange[model.OutcomeRecord])),
			ImprovedRate: share(improved, in.Size()),
		})
	}
	return out
}
