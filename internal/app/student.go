package service

import (
	"context"
	"sort"
	"time"

	"github.com/okian/scholardash/internal/config"
	"github.com/okian/scholardash/internal/domain/aggregate"
	"github.com/okian/scholardash/internal/domain/model"
	"github.com/okian/scholardash/internal/domain/stats"
	"github.com/okian/scholardash/internal/domain/tier"
	"github.com/okian/scholardash/pkg/logger"
	"github.com/volatiletech/null/v8"
)

// StudentList lists the students of the engagement table.
type StudentList struct {
	Meta
	Students []model.StudentID `json:"students"`
}

// WeekRow is one week of a student's engagement with cumulative
// attendance rates.
type WeekRow struct {
	Week                  int          `json:"week"`
	StartDate             null.Time    `json:"start_date"`
	EndDate               null.Time    `json:"end_date"`
	LargeRate             null.Float64 `json:"large_attendance_rate"`
	SmallRate             null.Float64 `json:"small_attendance_rate"`
	ClassParticipation    null.Float64 `json:"class_participation"`
	HomeworkParticipation null.Float64 `json:"homework_participation"`
	ClassAccuracy         null.Float64 `json:"class_accuracy"`
}

// Participation holds mean participation. Overall is the mean of the
// defined components.
type Participation struct {
	Class    null.Float64 `json:"class"`
	Homework null.Float64 `json:"homework"`
	Overall  null.Float64 `json:"overall"`
}

// Accuracy holds mean accuracies.
type Accuracy struct {
	Cars     null.Float64 `json:"cars"`
	Sciences null.Float64 `json:"sciences"`
	Class    null.Float64 `json:"class"`
}

// Assigned is the student's tier assignment. Available is false when the
// tier table has no row for the student.
type Assigned struct {
	Available bool             `json:"available"`
	Reason    string           `json:"reason,omitempty"`
	Labels    model.TierLabels `json:"labels"`
}

// Classified is a tier computed from the student's own metrics.
type Classified struct {
	Set   string       `json:"set"`
	Label string       `json:"label"`
	Value null.Float64 `json:"value"`
	Tier  tier.Tier    `json:"tier"`
}

// StudentDetail is the dashboard of one student.
type StudentDetail struct {
	Meta
	StudentID     model.StudentID       `json:"student_id"`
	Weeks         []WeekRow             `json:"weeks"`
	Attendance    Attendances           `json:"attendance"`
	Participation Participation         `json:"participation"`
	Accuracy      Accuracy              `json:"accuracy"`
	Tiers         Assigned              `json:"tiers"`
	Classified    []Classified          `json:"classified"`
	Exams         []model.ExamRecord    `json:"exams"`
	Sections      []string              `json:"sections"`
	Section       string                `json:"section"`
	Topics        []model.SectionRecord `json:"topics"`
}

// Attendances are the final cumulative attendance rates.
type Attendances struct {
	Large   null.Float64 `json:"large"`
	Small   null.Float64 `json:"small"`
	Overall null.Float64 `json:"overall"`
}

// Students lists every student of the engagement table by id.
func (s *Service) Students(ctx context.Context) StudentList {
	start := time.Now()
	var out StudentList
	defer func() { s.observe(ctx, "students", start, out.Meta) }()

	tbl, err := s.tablesOrDefault().Engagement(ctx)
	if err != nil {
		out.Meta = unavailable(err)
		return out
	}
	out.Students = sortedIDs(tbl.Rows, func(r model.EngagementRecord) model.StudentID { return r.StudentID })
	out.Meta = available()
	return out
}

// Student builds one student's dashboard. Section filters the topic rows;
// empty selects the first section. It returns ErrNotFound for a student
// without engagement rows.
func (s *Service) Student(ctx context.Context, id model.StudentID, section string) (StudentDetail, error) {
	start := time.Now()
	out := StudentDetail{StudentID: id}
	defer func() { s.observe(ctx, "student", start, out.Meta) }()

	t := s.tablesOrDefault()
	eng, err := t.Engagement(ctx)
	if err != nil {
		out.Meta = unavailable(err)
		return out, nil
	}
	var weeks []model.EngagementRecord
	for _, r := range eng.Rows {
		if r.StudentID == id {
			weeks = append(weeks, r)
		}
	}
	if len(weeks) == 0 {
		out.Meta = available()
		return out, ErrNotFound
	}
	sort.SliceStable(weeks, func(i, j int) bool { return weeks[i].Week < weeks[j].Week })

	out.Weeks, out.Attendance = weekly(weeks)
	out.Participation = participation(weeks)
	out.Accuracy = Accuracy{
		Cars:     meanOf(weeks, func(r model.EngagementRecord) null.Float64 { return r.CarsAccuracy }),
		Sciences: meanOf(weeks, func(r model.EngagementRecord) null.Float64 { return r.SciencesAccuracy }),
		Class:    meanOf(weeks, func(r model.EngagementRecord) null.Float64 { return r.ClassAccuracy }),
	}
	out.Classified = s.classify(ctx, out)

	out.Tiers = s.assigned(ctx, t, id)
	out.Exams = s.studentExams(ctx, t, id)
	out.Sections, out.Section, out.Topics = s.studentSections(ctx, t, id, section)

	out.Meta = available()
	return out, nil
}

// weekly computes cumulative attendance per week. A rate is undefined
// while nothing has been scheduled.
func weekly(rows []model.EngagementRecord) ([]WeekRow, Attendances) {
	out := make([]WeekRow, len(rows))
	var al, sl, as, ss float64
	for i, r := range rows {
		al += r.AttendedLarge.Float64
		sl += r.ScheduledLarge.Float64
		as += r.AttendedSmall.Float64
		ss += r.ScheduledSmall.Float64
		out[i] = WeekRow{
			Week:                  r.Week,
			StartDate:             r.StartDate,
			EndDate:               r.EndDate,
			LargeRate:             aggregate.Rate(null.Float64From(al), null.Float64From(sl), 100),
			SmallRate:             aggregate.Rate(null.Float64From(as), null.Float64From(ss), 100),
			ClassParticipation:    r.ClassParticipation,
			HomeworkParticipation: r.HomeworkParticipation,
			ClassAccuracy:         r.ClassAccuracy,
		}
	}
	return out, Attendances{
		Large:   aggregate.Rate(null.Float64From(al), null.Float64From(sl), 100),
		Small:   aggregate.Rate(null.Float64From(as), null.Float64From(ss), 100),
		Overall: aggregate.Rate(null.Float64From(al+as), null.Float64From(sl+ss), 100),
	}
}

func participation(rows []model.EngagementRecord) Participation {
	p := Participation{
		Class:    meanOf(rows, func(r model.EngagementRecord) null.Float64 { return r.ClassParticipation }),
		Homework: meanOf(rows, func(r model.EngagementRecord) null.Float64 { return r.HomeworkParticipation }),
	}
	var parts []float64
	for _, v := range []null.Float64{p.Class, p.Homework} {
		if v.Valid {
			parts = append(parts, v.Float64)
		}
	}
	p.Overall = stats.Mean(parts)
	return p
}

func meanOf(rows []model.EngagementRecord, f func(model.EngagementRecord) null.Float64) null.Float64 {
	var xs []float64
	for _, r := range rows {
		if v := f(r); v.Valid {
			xs = append(xs, v.Float64)
		}
	}
	return stats.Mean(xs)
}

// classify places the student's own metrics into the configured tier sets
// that have a matching metric.
func (s *Service) classify(ctx context.Context, d StudentDetail) []Classified {
	values := []struct {
		set string
		v   null.Float64
	}{
		{config.TierSetAttendance, d.Attendance.Overall},
		{config.TierSetParticipation, d.Participation.Overall},
		{config.TierSetEngagement, d.Accuracy.Class},
	}
	out := make([]Classified, 0, len(values))
	for _, c := range values {
		th, err := s.tiers.Lookup(c.set)
		if err != nil {
			s.log().Debug(ctx, "tier set not configured", logger.String("set", c.set))
			continue
		}
		out = append(out, Classified{Set: c.set, Label: th.Label, Value: c.v, Tier: tier.Classify(c.v, th)})
	}
	return out
}

// assigned returns the first tier row of the student.
func (s *Service) assigned(ctx context.Context, t Tables, id model.StudentID) Assigned {
	tbl, err := t.TierAssignments(ctx)
	if err != nil {
		return Assigned{Reason: err.Error()}
	}
	for _, r := range tbl.Rows {
		if r.StudentID == id {
			return Assigned{Available: true, Labels: r.Tiers}
		}
	}
	return Assigned{Reason: "no tier data"}
}

func (s *Service) studentExams(ctx context.Context, t Tables, id model.StudentID) []model.ExamRecord {
	tbl, err := t.Exams(ctx)
	if err != nil {
		s.log().Warn(ctx, "practice exams unavailable", logger.Error(err))
		return nil
	}
	out := make([]model.ExamRecord, 0)
	for _, e := range tbl.Rows {
		if e.StudentID == id {
			out = append(out, e)
		}
	}
	sortExams(out)
	return out
}

// studentSections lists the student's exam sections and the topic rows of
// the chosen one, ordered by exam name.
func (s *Service) studentSections(ctx context.Context, t Tables, id model.StudentID, section string) ([]string, string, []model.SectionRecord) {
	tbl, err := t.Sections(ctx)
	if err != nil {
		s.log().Warn(ctx, "section accuracy unavailable", logger.Error(err))
		return nil, section, nil
	}
	var mine []model.SectionRecord
	seen := make(map[string]struct{})
	sections := make([]string, 0)
	for _, r := range tbl.Rows {
		if r.StudentID != id {
			continue
		}
		mine = append(mine, r)
		if _, ok := seen[r.Section]; !ok && r.Section != "" {
			seen[r.Section] = struct{}{}
			sections = append(sections, r.Section)
		}
	}
	sort.Strings(sections)
	if section == "" && len(sections) > 0 {
		section = sections[0]
	}
	topics := make([]model.SectionRecord, 0)
	for _, r := range mine {
		if r.Section == section {
			topics = append(topics, r)
		}
	}
	sort.SliceStable(topics, func(i, j int) bool { return topics[i].ExamName < topics[j].ExamName })
	return sections, section, topics
}
