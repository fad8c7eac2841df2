package repository

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/okian/scholardash/internal/config"
	"github.com/okian/scholardash/internal/domain/model"
	"github.com/okian/scholardash/pkg/logger"
	"github.com/okian/scholardash/pkg/metrics"
	"github.com/volatiletech/null/v8"
)

// Bundle names a set of files that must be found together.
type Bundle string

// Bundles resolve independently; a missing bundle only disables the analyses
// that read it.
const (
	BundleIndividual Bundle = "individual"
	BundleOutcomes   Bundle = "outcomes"
	BundleTiered     Bundle = "tiered"
	BundleRoster     Bundle = "roster"
	BundleExams      Bundle = "exams"
)

// Bundles lists every bundle in reporting order.
var Bundles = []Bundle{BundleIndividual, BundleOutcomes, BundleTiered, BundleRoster, BundleExams} //nolint:gochecknoglobals // fixed order

// Table outcomes reported to metrics.
const (
	loadOK      = "ok"
	loadMissing = "missing"
	loadFailed  = "failed"
)

// Table is one loaded input file.
type Table[T any] struct {
	Path      string
	Rows      []T
	Malformed int
}

// BundleStatus reports where a bundle resolved.
type BundleStatus struct {
	Bundle    Bundle `json:"bundle"`
	Available bool   `json:"available"`
	Base      string `json:"base,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// osFS opens paths as given, relative to the working directory.
type osFS struct{}

func (osFS) Open(name string) (fs.File, error) { return os.Open(name) } //nolint:gosec // configured data paths

// Loader resolves data bundles and loads their tables through the cache.
type Loader struct {
	dirs  []string
	files config.Files
	fsys  fs.FS
	cache *TableCache
	log   logger.Logger
}

// NewLoader creates a Loader probing dirs in order.
func NewLoader(dirs []string, files config.Files, opts ...Option) *Loader {
	l := &Loader{
		dirs:  append([]string(nil), dirs...),
		files: files,
		fsys:  osFS{},
		log:   logger.Get().Named("repository"),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.cache == nil {
		l.cache = NewTableCache()
	}
	return l
}

// Cache returns the loader's table cache.
func (l *Loader) Cache() *TableCache { return l.cache }

func (l *Loader) required(b Bundle) ([]string, error) {
	switch b {
	case BundleIndividual:
		return []string{l.files.Engagement, l.files.Exams, l.files.Sections, l.files.Tiers}, nil
	case BundleOutcomes:
		return []string{l.files.Outcomes}, nil
	case BundleTiered:
		return []string{l.files.TieredEngagement}, nil
	case BundleRoster:
		return []string{l.files.Roster}, nil
	case BundleExams:
		return []string{l.files.Exams}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBundle, b)
	}
}

// Resolve returns the base path of a bundle or a MissingInput error.
func (l *Loader) Resolve(b Bundle) (string, error) {
	req, err := l.required(b)
	if err != nil {
		return "", err
	}
	base, err := Resolve(l.dirs, req, Exists(l.fsys))
	if err != nil {
		return "", fmt.Errorf("%s bundle: %w", b, err)
	}
	return base, nil
}

// Status resolves every bundle.
func (l *Loader) Status() []BundleStatus {
	out := make([]BundleStatus, 0, len(Bundles))
	for _, b := range Bundles {
		st := BundleStatus{Bundle: b}
		base, err := l.Resolve(b)
		if err != nil {
			st.Reason = err.Error()
		} else {
			st.Available = true
			st.Base = base
		}
		out = append(out, st)
	}
	return out
}

func loadTable[T any](ctx context.Context, l *Loader, b Bundle, file, table string, parse func(*Frame) (Table[T], error)) (Table[T], error) {
	base, err := l.Resolve(b)
	if err != nil {
		metrics.RecordTableLoad(table, loadMissing)
		l.log.Warn(ctx, "data unavailable", logger.String("table", table), logger.Error(err))
		return Table[T]{}, err
	}
	p := Join(base, file)
	return Load(ctx, l.cache, table+":"+p, func(ctx context.Context) (Table[T], error) {
		start := time.Now()
		f, err := l.fsys.Open(p)
		if err != nil {
			metrics.RecordTableLoad(table, loadMissing)
			return Table[T]{}, missing("open "+p, err)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil {
				l.log.Error(ctx, "failed to close table", logger.String("path", p), logger.Error(cerr))
			}
		}()

		frame, err := ReadFrame(f)
		if err != nil {
			metrics.RecordTableLoad(table, loadFailed)
			return Table[T]{}, fmt.Errorf("parse %s: %w", p, err)
		}
		t, err := parse(frame)
		if err != nil {
			metrics.RecordTableLoad(table, loadMissing)
			return Table[T]{}, missing(p, err)
		}
		t.Path = p

		metrics.RecordTableLoad(table, loadOK)
		metrics.RecordTableLoadLatency(table, float64(time.Since(start).Nanoseconds())/1e6)
		metrics.UpdateTableRows(table, len(t.Rows))
		metrics.RecordMalformedRows(table, t.Malformed)
		l.log.Info(ctx, "table loaded",
			logger.String("table", table),
			logger.String("path", p),
			logger.Int("rows", len(t.Rows)),
			logger.Duration("took", time.Since(start)))
		if t.Malformed > 0 {
			l.log.Warn(ctx, "malformed rows in table",
				logger.String("table", table),
				logger.Int("malformed", t.Malformed))
		}
		return t, nil
	})
}

// Engagement loads the weekly engagement table of the individual bundle.
func (l *Loader) Engagement(ctx context.Context) (Table[model.EngagementRecord], error) {
	return loadTable(ctx, l, BundleIndividual, l.files.Engagement, "engagement", parseEngagement(false))
}

// TieredEngagement loads the engagement table annotated with tiers and
// score differences.
func (l *Loader) TieredEngagement(ctx context.Context) (Table[model.EngagementRecord], error) {
	return loadTable(ctx, l, BundleTiered, l.files.TieredEngagement, "tiered_engagement", parseEngagement(true))
}

// Exams loads the practice exam table of the individual bundle.
func (l *Loader) Exams(ctx context.Context) (Table[model.ExamRecord], error) {
	return loadTable(ctx, l, BundleIndividual, l.files.Exams, "exams", parseExams)
}

// ExamHistory loads the practice exam table on its own.
func (l *Loader) ExamHistory(ctx context.Context) (Table[model.ExamRecord], error) {
	return loadTable(ctx, l, BundleExams, l.files.Exams, "exams", parseExams)
}

// Sections loads per-topic exam accuracy.
func (l *Loader) Sections(ctx context.Context) (Table[model.SectionRecord], error) {
	return loadTable(ctx, l, BundleIndividual, l.files.Sections, "sections", parseSections)
}

// TierAssignments loads the tier assignment table.
func (l *Loader) TierAssignments(ctx context.Context) (Table[model.TierRecord], error) {
	return loadTable(ctx, l, BundleIndividual, l.files.Tiers, "tiers", parseTiers)
}

// Outcomes loads the per-student outcome table.
func (l *Loader) Outcomes(ctx context.Context) (Table[model.OutcomeRecord], error) {
	return loadTable(ctx, l, BundleOutcomes, l.files.Outcomes, "outcomes", parseOutcomes)
}

// Roster loads the school roster.
func (l *Loader) Roster(ctx context.Context) (Table[model.RosterRecord], error) {
	return loadTable(ctx, l, BundleRoster, l.files.Roster, "roster", parseRoster)
}

// Column names of the input tables.
const (
	colStudentID = "student_id"
	colWeek      = "week"
	colStartDate = "start_date"
	colEndDate   = "end_date"

	colScoreDifferenceTiered = "Score Difference"

	colTestDate  = "test_date"
	colTestName  = "test_name"
	colExamScore = "actual_exam_score"

	colExamName  = "Exam Name"
	colSection   = "Exam Section"
	colTopic     = "Question Topic"
	colFrequency = "Question Frequency"
	colAccuracy  = "Student Accuracy"

	colOutcomeID     = "Student_ID"
	colBaseline      = "Baseline_Score"
	colPracticeExams = "Number_of_Practice_Exams"
	colRecent        = "Most_Recent_Practice_Exam"
	colActual        = "Actual_MCAT"
	colScoreDiff     = "Score_Difference"
	colTotalSets     = "Total_Completed_Passages_Discrete_Sets"

	colSchool            = "jfd"
	colHighest           = "highest_exam_score"
	colExamCount         = "exam_count"
	colAnticipated       = "anticipated_exam_date"
	colAllExams          = "all_exams_and_scores"
	colRosterSurvey      = "survey_tier"
	colRosterLargeGroup  = "large_group_tier"
	colRosterSmallGroup  = "small_group_tier"
	colRosterParticipate = "class_participation_tier"
)

var engagementMetrics = []string{ //nolint:gochecknoglobals // column list
	model.MetricAttendedLarge,
	model.MetricScheduledLarge,
	model.MetricAttendedSmall,
	model.MetricScheduledSmall,
	model.MetricClassParticipation,
	model.MetricHomeworkParticipation,
	model.MetricCarsAccuracy,
	model.MetricSciencesAccuracy,
	model.MetricClassAccuracy,
	model.MetricCompletedLessons,
	model.MetricCompletedSets,
}

func tierLabels(r *Row, survey, large, small, participation string) model.TierLabels {
	return model.TierLabels{
		Survey:             r.String(survey),
		LargeGroup:         r.String(large),
		SmallGroup:         r.String(small),
		ClassParticipation: r.String(participation),
	}
}

func parseEngagement(tiered bool) func(*Frame) (Table[model.EngagementRecord], error) {
	return func(f *Frame) (Table[model.EngagementRecord], error) {
		required := append([]string{colStudentID}, engagementMetrics...)
		if tiered {
			required = append(required, model.TierAxes...)
		}
		if err := f.Require(required...); err != nil {
			return Table[model.EngagementRecord]{}, err
		}
		t := Table[model.EngagementRecord]{Rows: make([]model.EngagementRecord, 0, f.Len())}
		for i := 0; i < f.Len(); i++ {
			r := f.Row(i)
			id, ok := r.StudentID(colStudentID)
			if !ok {
				t.Malformed++
				continue
			}
			rec := model.EngagementRecord{
				StudentID:             id,
				Week:                  int(r.Int(colWeek).Int64),
				StartDate:             r.Time(colStartDate),
				EndDate:               r.Time(colEndDate),
				AttendedLarge:         r.Float(model.MetricAttendedLarge),
				ScheduledLarge:        r.Float(model.MetricScheduledLarge),
				AttendedSmall:         r.Float(model.MetricAttendedSmall),
				ScheduledSmall:        r.Float(model.MetricScheduledSmall),
				ClassParticipation:    r.Float(model.MetricClassParticipation),
				HomeworkParticipation: r.Float(model.MetricHomeworkParticipation),
				CarsAccuracy:          r.Float(model.MetricCarsAccuracy),
				SciencesAccuracy:      r.Float(model.MetricSciencesAccuracy),
				ClassAccuracy:         r.Float(model.MetricClassAccuracy),
				CompletedLessons:      r.Float(model.MetricCompletedLessons),
				CompletedSets:         r.Float(model.MetricCompletedSets),
			}
			if tiered {
				rec.Tiers = tierLabels(&r, model.TierSurvey, model.TierLargeGroup, model.TierSmallGroup, model.TierClassParticipation)
				rec.ScoreDifference = r.Float(colScoreDifferenceTiered)
			}
			if r.Dirty() {
				t.Malformed++
			}
			t.Rows = append(t.Rows, rec)
		}
		return t, nil
	}
}

func parseExams(f *Frame) (Table[model.ExamRecord], error) {
	if err := f.Require(colStudentID, colTestDate, colTestName, colExamScore); err != nil {
		return Table[model.ExamRecord]{}, err
	}
	t := Table[model.ExamRecord]{Rows: make([]model.ExamRecord, 0, f.Len())}
	for i := 0; i < f.Len(); i++ {
		r := f.Row(i)
		id, ok := r.StudentID(colStudentID)
		if !ok {
			t.Malformed++
			continue
		}
		rec := model.ExamRecord{
			StudentID: id,
			Date:      r.Time(colTestDate),
			Name:      r.String(colTestName).String,
			Score:     r.Float(colExamScore),
		}
		if r.Dirty() {
			t.Malformed++
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

func parseSections(f *Frame) (Table[model.SectionRecord], error) {
	if err := f.Require(colStudentID, colExamName, colSection, colAccuracy); err != nil {
		return Table[model.SectionRecord]{}, err
	}
	t := Table[model.SectionRecord]{Rows: make([]model.SectionRecord, 0, f.Len())}
	for i := 0; i < f.Len(); i++ {
		r := f.Row(i)
		id, ok := r.StudentID(colStudentID)
		if !ok {
			t.Malformed++
			continue
		}
		rec := model.SectionRecord{
			StudentID: id,
			ExamName:  r.String(colExamName).String,
			Section:   r.String(colSection).String,
			Topic:     r.String(colTopic).String,
			Frequency: r.Float(colFrequency),
			Accuracy:  r.Float(colAccuracy),
		}
		if r.Dirty() {
			t.Malformed++
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

func parseTiers(f *Frame) (Table[model.TierRecord], error) {
	if err := f.Require(append([]string{colStudentID}, model.TierAxes...)...); err != nil {
		return Table[model.TierRecord]{}, err
	}
	t := Table[model.TierRecord]{Rows: make([]model.TierRecord, 0, f.Len())}
	for i := 0; i < f.Len(); i++ {
		r := f.Row(i)
		id, ok := r.StudentID(colStudentID)
		if !ok {
			t.Malformed++
			continue
		}
		t.Rows = append(t.Rows, model.TierRecord{
			StudentID: id,
			Tiers:     tierLabels(&r, model.TierSurvey, model.TierLargeGroup, model.TierSmallGroup, model.TierClassParticipation),
		})
	}
	return t, nil
}

func parseOutcomes(f *Frame) (Table[model.OutcomeRecord], error) {
	if err := f.Require(colOutcomeID, colBaseline, colPracticeExams, colRecent, colActual, colScoreDiff, colTotalSets); err != nil {
		return Table[model.OutcomeRecord]{}, err
	}
	t := Table[model.OutcomeRecord]{Rows: make([]model.OutcomeRecord, 0, f.Len())}
	for i := 0; i < f.Len(); i++ {
		r := f.Row(i)
		id, ok := r.StudentID(colOutcomeID)
		if !ok {
			t.Malformed++
			continue
		}
		rec := model.OutcomeRecord{
			StudentID:          id,
			Baseline:           r.Float(colBaseline),
			PracticeExams:      r.Float(colPracticeExams),
			MostRecentPractice: r.Float(colRecent),
			ActualScore:        r.Float(colActual),
			ScoreDifference:    r.Float(colScoreDiff),
			CompletedSets:      r.Float(colTotalSets),
		}
		// A zero baseline means the baseline was never taken.
		if rec.Baseline.Valid && rec.Baseline.Float64 == 0 {
			rec.Baseline = null.Float64{}
		}
		if r.Dirty() {
			t.Malformed++
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

func parseRoster(f *Frame) (Table[model.RosterRecord], error) {
	if err := f.Require(colStudentID, colSchool, colHighest, colExamCount); err != nil {
		return Table[model.RosterRecord]{}, err
	}
	t := Table[model.RosterRecord]{Rows: make([]model.RosterRecord, 0, f.Len())}
	for i := 0; i < f.Len(); i++ {
		r := f.Row(i)
		id, ok := r.StudentID(colStudentID)
		if !ok {
			t.Malformed++
			continue
		}
		rec := model.RosterRecord{
			StudentID:           id,
			School:              r.Int(colSchool),
			HighestScore:        r.Float(colHighest),
			AnticipatedExamDate: r.String(colAnticipated),
			AllExamsAndScores:   r.String(colAllExams),
			Tiers:               tierLabels(&r, colRosterSurvey, colRosterLargeGroup, colRosterSmallGroup, colRosterParticipate),
		}
		// A missing exam count means no exams were taken.
		if n := r.Int(colExamCount); n.Valid {
			rec.ExamCount = int(n.Int64)
		}
		if r.Dirty() {
			t.Malformed++
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}
