package repository_test

import (
	"context"
	"errors"
	"io/fs"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"testing/fstest"

	"github.com/okian/scholardash/internal/adapters/repository"
	"github.com/okian/scholardash/internal/config"
	"github.com/okian/scholardash/internal/domain/model"
	"github.com/okian/scholardash/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// countingFS counts file opens so tests can observe actual reads.
type countingFS struct {
	fstest.MapFS
	opens atomic.Int64
}

func (c *countingFS) Open(name string) (fs.File, error) {
	c.opens.Add(1)
	return c.MapFS.Open(name)
}

func (c *countingFS) Stat(name string) (fs.FileInfo, error) {
	return c.MapFS.Stat(name)
}

const outcomesCSV = `Student_ID,Baseline_Score,Number_of_Practice_Exams,Most_Recent_Practice_Exam,Actual_MCAT,Score_Difference,Total_Completed_Passages_Discrete_Sets
1,500,4,506,510,10,120
2,0,2,498,501,1,80
x,495,1,495,495,0,10
3,N/A,3,abc,499,,40
`

const rosterCSV = `student_id,jfd,highest_exam_score,exam_count,anticipated_exam_date,all_exams_and_scores,survey_tier,large_group_tier,small_group_tier,class_participation_tier
10,1,490,2,,FL1: 490,Tier 3,Tier 3,Tier 3,Tier 3
11,2,,,2025-06-01,,Tier 1,Tier 2,Tier 1,Tier 1
`

func files() config.Files {
	return config.New().Files
}

func TestResolve(t *testing.T) {
	Convey("Given candidate directories probed in order", t, func() {
		present := map[string]bool{
			"b/one.csv": true,
			"c/one.csv": true,
			"c/two.csv": true,
			"two.csv":   true,
			"one.csv":   true,
		}
		exists := func(p string) bool { return present[p] }

		Convey("Then the first directory holding every file should win", func() {
			base, err := repository.Resolve([]string{"a/", "./b/", "c/", ""}, []string{"one.csv", "two.csv"}, exists)
			So(err, ShouldBeNil)
			So(base, ShouldEqual, "c/")
		})

		Convey("Then an empty base should mean the working directory", func() {
			base, err := repository.Resolve([]string{"a/", ""}, []string{"one.csv", "two.csv"}, exists)
			So(err, ShouldBeNil)
			So(base, ShouldEqual, "")
		})

		Convey("Then no match should be a MissingInput failure", func() {
			_, err := repository.Resolve([]string{"a/", "b/"}, []string{"one.csv", "two.csv"}, exists)
			So(errors.Is(err, model.ErrMissingInput), ShouldBeTrue)
		})

		Convey("Then paths should be joined cleanly", func() {
			So(repository.Join("./student-data/", "x.csv"), ShouldEqual, "student-data/x.csv")
			So(repository.Join("", "x.csv"), ShouldEqual, "x.csv")
		})
	})
}

func TestReadFrame(t *testing.T) {
	Convey("Given a CSV with null tokens and bad cells", t, func() {
		f, err := repository.ReadFrame(strings.NewReader("a,b,c\n1,NaN,x\n2.0,None\n"))
		So(err, ShouldBeNil)
		So(f.Len(), ShouldEqual, 2)

		Convey("Then null tokens should read as null without dirtying the row", func() {
			r := f.Row(0)
			So(r.Float("b").Valid, ShouldBeFalse)
			So(r.Dirty(), ShouldBeFalse)
		})

		Convey("Then unparseable numbers should be null and dirty", func() {
			r := f.Row(0)
			So(r.Float("c").Valid, ShouldBeFalse)
			So(r.Dirty(), ShouldBeTrue)
		})

		Convey("Then integral floats should parse as ids and short rows pad", func() {
			r := f.Row(1)
			id, ok := r.StudentID("a")
			So(ok, ShouldBeTrue)
			So(id, ShouldEqual, model.StudentID(2))
			So(r.String("c").Valid, ShouldBeFalse)
		})

		Convey("Then required columns should be checked", func() {
			So(f.Require("a", "b"), ShouldBeNil)
			So(errors.Is(f.Require("a", "zzz"), repository.ErrMissingColumn), ShouldBeTrue)
		})
	})

	Convey("Given a CSV saved with a byte order mark", t, func() {
		f, err := repository.ReadFrame(strings.NewReader("\uFEFFstudent_id,score\n7,500\n"))
		So(err, ShouldBeNil)

		Convey("Then the first header should match without the mark", func() {
			So(f.Has("student_id"), ShouldBeTrue)
			r := f.Row(0)
			id, ok := r.StudentID("student_id")
			So(ok, ShouldBeTrue)
			So(id, ShouldEqual, model.StudentID(7))
		})
	})

	Convey("Given an empty stream", t, func() {
		_, err := repository.ReadFrame(strings.NewReader(""))
		So(errors.Is(err, repository.ErrEmptyTable), ShouldBeTrue)
	})
}

func TestLoader(t *testing.T) {
	Convey("Given a data directory with outcomes and roster only", t, func() {
		fsys := &countingFS{MapFS: fstest.MapFS{
			"data/student_outcomes.csv": {Data: []byte(outcomesCSV)},
			"data/jfd-combined.csv":     {Data: []byte(rosterCSV)},
		}}
		l := repository.NewLoader([]string{"student-data/", "data/"}, files(), repository.WithFS(fsys))
		ctx := context.Background()

		Convey("When loading outcomes", func() {
			tbl, err := l.Outcomes(ctx)
			So(err, ShouldBeNil)

			Convey("Then malformed rows should be skipped or counted", func() {
				So(tbl.Path, ShouldEqual, "data/student_outcomes.csv")
				So(tbl.Rows, ShouldHaveLength, 3)
				So(tbl.Malformed, ShouldEqual, 2)
			})

			Convey("Then a zero baseline should become null", func() {
				So(tbl.Rows[0].Baseline.Float64, ShouldEqual, 500)
				So(tbl.Rows[1].Baseline.Valid, ShouldBeFalse)
				So(tbl.Rows[2].MostRecentPractice.Valid, ShouldBeFalse)
				So(tbl.Rows[2].ScoreDifference.Valid, ShouldBeFalse)
			})
		})

		Convey("When loading the roster", func() {
			tbl, err := l.Roster(ctx)
			So(err, ShouldBeNil)

			Convey("Then a missing exam count should become zero", func() {
				So(tbl.Rows, ShouldHaveLength, 2)
				So(tbl.Rows[0].ExamCount, ShouldEqual, 2)
				So(tbl.Rows[1].ExamCount, ShouldEqual, 0)
				So(tbl.Rows[1].HighestScore.Valid, ShouldBeFalse)
				So(tbl.Rows[0].Tiers.Survey.String, ShouldEqual, "Tier 3")
				So(tbl.Rows[0].AnticipatedExamDate.Valid, ShouldBeFalse)
			})
		})

		Convey("When loading a table of a missing bundle", func() {
			_, err := l.TieredEngagement(ctx)

			Convey("Then it should fail alone with MissingInput", func() {
				So(errors.Is(err, model.ErrMissingInput), ShouldBeTrue)
				_, err := l.Outcomes(ctx)
				So(err, ShouldBeNil)
			})
		})

		Convey("When reporting bundle status", func() {
			st := l.Status()

			Convey("Then each bundle should resolve independently", func() {
				byName := make(map[repository.Bundle]repository.BundleStatus)
				for _, s := range st {
					byName[s.Bundle] = s
				}
				So(byName[repository.BundleOutcomes].Available, ShouldBeTrue)
				So(byName[repository.BundleOutcomes].Base, ShouldEqual, "data/")
				So(byName[repository.BundleRoster].Available, ShouldBeTrue)
				So(byName[repository.BundleIndividual].Available, ShouldBeFalse)
				So(byName[repository.BundleIndividual].Reason, ShouldNotBeEmpty)
			})
		})

		Convey("When many callers load outcomes at once", func() {
			var wg sync.WaitGroup
			for i := 0; i < 32; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, _ = l.Outcomes(ctx)
				}()
			}
			wg.Wait()
			_, err := l.Outcomes(ctx)

			Convey("Then the file should be read once", func() {
				So(err, ShouldBeNil)
				So(fsys.opens.Load(), ShouldEqual, 1)
				So(l.Cache().Loads(), ShouldEqual, 1)
				So(l.Cache().Size(), ShouldEqual, 1)
			})
		})
	})

	Convey("Given an outcomes file missing a column", t, func() {
		fsys := fstest.MapFS{
			"student_outcomes.csv": {Data: []byte("Student_ID,Baseline_Score\n1,500\n")},
		}
		l := repository.NewLoader([]string{""}, files(), repository.WithFS(fsys))

		Convey("When loading it", func() {
			_, err := l.Outcomes(context.Background())

			Convey("Then it should be MissingInput naming the column", func() {
				So(errors.Is(err, model.ErrMissingInput), ShouldBeTrue)
				So(errors.Is(err, repository.ErrMissingColumn), ShouldBeTrue)
				So(l.Cache().Size(), ShouldEqual, 0)
			})
		})
	})
}

func TestTableCache(t *testing.T) {
	Convey("Given an empty cache", t, func() {
		c := repository.NewTableCache()
		ctx := context.Background()
		var calls int

		load := func(context.Context) (int, error) {
			calls++
			return 42, nil
		}

		Convey("Then a key should load once", func() {
			v, err := repository.Load(ctx, c, "k", load)
			So(err, ShouldBeNil)
			So(v, ShouldEqual, 42)
			v, err = repository.Load(ctx, c, "k", load)
			So(err, ShouldBeNil)
			So(v, ShouldEqual, 42)
			So(calls, ShouldEqual, 1)
		})

		Convey("Then failures should not be cached", func() {
			boom := errors.New("boom")
			_, err := repository.Load(ctx, c, "bad", func(context.Context) (int, error) {
				calls++
				return 0, boom
			})
			So(errors.Is(err, boom), ShouldBeTrue)
			v, err := repository.Load(ctx, c, "bad", load)
			So(err, ShouldBeNil)
			So(v, ShouldEqual, 42)
			So(calls, ShouldEqual, 2)
		})
	})
}
