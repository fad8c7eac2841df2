package service_test

import (
	"context"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/okian/scholardash/internal/adapters/repository"
	service "github.com/okian/scholardash/internal/app"
	"github.com/okian/scholardash/internal/config"
	"github.com/okian/scholardash/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/volatiletech/null/v8"
)

const tieredCSV = `student_id,week,num_attended_large_session,num_scheduled_large_session,num_attended_small_session,num_scheduled_small_session,class_participation,homework_participation,cars_accuracy,sciences_accuracy,class_accuracy,completed_lessons,total_completed_passages_discrete_sets,Survey Tier,Large Group Tier,Small Group Tier,Class Participation Tier,Score Difference
1,1,3,4,1,2,1,1,70,72,71,3,40,Tier 1,Tier 1,Tier 1,Tier 1,15
1,2,4,4,2,2,0,1,74,75,76,4,50,Tier 1,Tier 1,Tier 1,Tier 1,15
2,1,1,4,0,2,0,,60,61,62,1,10,Tier 3,Tier 3,Tier 3,N/A,-3
3,1,2,4,1,2,1,1,65,66,67,2,30,Tier 2,Tier 2,Tier 2,Tier 2,6
4,1,4,4,2,2,1,1,80,81,82,5,70,Tier 1,Tier 2,Tier 1,Tier 1,9
`

const integrationOutcomesCSV = `Student_ID,Baseline_Score,Number_of_Practice_Exams,Most_Recent_Practice_Exam,Actual_MCAT,Score_Difference,Total_Completed_Passages_Discrete_Sets
1,500,9,512,515,15,90
2,0,2,497,497,-3,10
3,494,4,500,500,6,30
4,498,6,505,507,9,70
`

const integrationRosterCSV = `student_id,jfd,highest_exam_score,exam_count,anticipated_exam_date,all_exams_and_scores,survey_tier,large_group_tier,small_group_tier,class_participation_tier
1,1,515,3,2025-06-01,,Tier 1,Tier 1,Tier 1,Tier 1
2,1,,,,,Tier 3,Tier 3,Tier 3,Tier 3
3,2,498,2,,,Tier 2,Tier 2,Tier 3,Tier 2
`

func integrationService() (*service.Service, *repository.Loader) {
	cfg := config.New()
	fsys := fstest.MapFS{
		"student-data/" + cfg.Files.TieredEngagement: {Data: []byte(tieredCSV)},
		"student-data/" + cfg.Files.Outcomes:         {Data: []byte(integrationOutcomesCSV)},
		"student-data/" + cfg.Files.Roster:           {Data: []byte(integrationRosterCSV)},
	}
	loader := repository.NewLoader(cfg.DataDirs, cfg.Files, repository.WithFS(fsys))
	return service.New(service.WithConfig(cfg), service.WithTables(loader)), loader
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a service reading flat files", t, func() {
		svc, loader := integrationService()
		defer svc.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)

		Convey("Then resolved and missing bundles should be reported", func() {
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, true)
			statuses := loader.Status()
			available := make(map[repository.Bundle]bool, len(statuses))
			for _, st := range statuses {
				available[st.Bundle] = st.Available
			}
			So(available[repository.BundleTiered], ShouldBeTrue)
			So(available[repository.BundleOutcomes], ShouldBeTrue)
			So(available[repository.BundleIndividual], ShouldBeFalse)
		})

		Convey("When the insights are computed from the files", func() {
			out := svc.Insights(ctx)

			Convey("Then weeks should be aggregated before the join", func() {
				So(out.Available, ShouldBeTrue)
				So(out.Students, ShouldEqual, 4)
				So(out.HighImprovers, ShouldEqual, 3)
				So(out.QuestionBank.A.Mean.Float64, ShouldAlmostEqual, (90.0+30+70)/3)
			})

			Convey("Then an N/A tier should be undefined, not malformed", func() {
				So(out.MalformedTiers, ShouldEqual, 0)
			})
		})

		Convey("When a zero baseline is read", func() {
			out := svc.Performers(ctx)

			Convey("Then it should be treated as missing", func() {
				So(out.Available, ShouldBeTrue)
				So(out.Low.Students, ShouldEqual, 2)
				So(out.LowBaselineAlerts, ShouldEqual, 1)
			})
		})

		Convey("When the roster is categorized", func() {
			out := svc.SchoolCategories(ctx, null.Int64From(1))

			Convey("Then a missing exam count should mean no exams", func() {
				So(out.Report.Categories[0].Count, ShouldEqual, 1)
				So(out.Report.Categories[0].Members[0].StudentID, ShouldEqual, model.StudentID(2))
			})
		})

		Convey("When a bundle is missing", func() {
			list := svc.Students(ctx)

			Convey("Then only its analyses should be unavailable", func() {
				So(list.Available, ShouldBeFalse)
				So(list.Reason, ShouldContainSubstring, "missing input")
				So(svc.Exams(ctx).Available, ShouldBeTrue)
			})
		})

		Convey("When analyses run concurrently on a cold cache", func() {
			var wg sync.WaitGroup
			for i := 0; i < 16; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_ = svc.Insights(ctx)
					_ = svc.Attendance(ctx)
				}()
			}
			wg.Wait()

			Convey("Then each table should be loaded once", func() {
				So(loader.Cache().Loads(), ShouldEqual, int64(2))
				So(svc.GetStats()["cachedTables"], ShouldEqual, 2)
			})
		})
	})
}
