package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsOptions(t *testing.T) {
	Convey("Given metrics options", t, func() {
		Convey("When applied to a manager", func() {
			m := NewManager(
				WithNamespace("test_namespace"),
				WithSubsystem("test_subsystem"),
				WithMetricPrefix("test_prefix"),
				WithLatencyBuckets([]float64{0.1, 0.5, 1.0}),
				WithLoadBuckets([]float64{10, 100}),
				WithCohortBuckets([]float64{1, 2}),
				WithMetricsEnabled(false),
				WithRefreshInterval(5*time.Second),
				WithConstLabel("institution", "test"),
				WithConstLabel("", "ignored"),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)

			Convey("Then every field should reflect the options", func() {
				So(m.namespace, ShouldEqual, "test_namespace")
				So(m.subsystem, ShouldEqual, "test_subsystem")
				So(m.metricPrefix, ShouldEqual, "test_prefix")
				So(m.histogramBuckets, ShouldResemble, []float64{0.1, 0.5, 1.0})
				So(m.enabled, ShouldBeFalse)
				So(m.refreshInterval, ShouldEqual, 5*time.Second)
				So(m.loadBuckets, ShouldResemble, []float64{10, 100})
				So(m.cohortBuckets, ShouldResemble, []float64{1, 2})
				So(m.customLabels, ShouldResemble, map[string]string{"institution": "test"})
			})
		})

		Convey("When given empty values", func() {
			m := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithLatencyBuckets(nil),
				WithLoadBuckets(nil),
				WithRefreshInterval(0),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)

			Convey("Then defaults should be kept", func() {
				So(m.namespace, ShouldEqual, "scholardash")
				So(m.subsystem, ShouldEqual, "dashboard")
				So(m.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
				So(m.refreshInterval, ShouldEqual, defaultRefreshInterval)
			})
		})
	})
}

func TestMetricsManagerRegistration(t *testing.T) {
	Convey("Given a fresh registry", t, func() {
		registry := prometheus.NewRegistry()
		m := NewManager(WithPrometheusRegistry(registry), WithMetricPrefix("t"))

		Convey("When a table load is counted", func() {
			m.tableLoads.WithLabelValues("outcomes", OutcomeOK).Inc()

			Convey("Then the counter is gathered with the prefixed name", func() {
				count, err := testutil.GatherAndCount(registry, "scholardash_dashboard_t_table_loads_total")
				So(err, ShouldBeNil)
				So(count, ShouldEqual, 1)
				So(testutil.ToFloat64(m.tableLoads.WithLabelValues("outcomes", OutcomeOK)), ShouldEqual, 1)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording data loading metrics", func() {
			before := testutil.ToFloat64(globalManager.tableLoads.WithLabelValues("roster", OutcomeOK))
			RecordTableLoad("roster", OutcomeOK)
			RecordTableLoadLatency("roster", 12.5)
			UpdateTableRows("roster", 150)
			RecordMalformedRows("roster", 2)
			RecordMalformedRows("roster", 0)
			RecordCacheLookup("hit")

			Convey("Then counters and gauges should move", func() {
				So(testutil.ToFloat64(globalManager.tableLoads.WithLabelValues("roster", OutcomeOK)), ShouldEqual, before+1)
				So(testutil.ToFloat64(globalManager.tableRows.WithLabelValues("roster")), ShouldEqual, 150)
				So(testutil.ToFloat64(globalManager.malformedRows.WithLabelValues("roster")), ShouldBeGreaterThanOrEqualTo, 2)
			})
		})

		Convey("When recording analysis metrics", func() {
			So(func() {
				RecordAnalysis("exams", OutcomeOK, 3.2)
				RecordAnalysis("insights", OutcomeUnavailable, 0.1)
				RecordCohortSize("high_performer", 12)
				RecordLoginAttempt("rejected")
			}, ShouldNotPanic)
		})

		Convey("When recording HTTP and error metrics", func() {
			So(func() {
				RecordHTTPRequest("/healthz", "GET", "200")
				RecordHTTPRequestDuration("/api/tiers", "GET", "200", 4.0)
				RecordErrorByType("not_found", "warning")
				RecordErrorByEndpoint("/api/students/{id}", "GET", "not_found")
			}, ShouldNotPanic)
		})

		Convey("When recording system metrics", func() {
			So(func() {
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.4)
			}, ShouldNotPanic)
			So(GetRegistry(), ShouldNotBeNil)
			So(RefreshInterval(), ShouldEqual, defaultRefreshInterval)
		})
	})
}
