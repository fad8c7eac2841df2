package smoke_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/okian/scholardash/internal/smoke"
	"github.com/okian/scholardash/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	color.NoColor = true
}

// fakeDashboard answers the dashboard routes with canned bodies. When
// password is set the API requires the session cookie.
func fakeDashboard(password string, broken string) (*httptest.Server, *int64) {
	var hits int64
	mux := http.NewServeMux()
	authed := func(r *http.Request) bool {
		if password == "" {
			return true
		}
		c, err := r.Cookie("session")
		return err == nil && c.Value == "ok"
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Password string `json:"password"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != password {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "ok", Path: "/"})
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		if !authed(r) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"code":"unauthorized","message":"unauthorized"}`))
			return
		}
		switch {
		case r.URL.Path == broken:
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"code":"internal_error","message":"boom"}`))
		case r.URL.Path == "/api/tiers":
			_, _ = w.Write([]byte(`[{"tier":"Tier 1","criteria":[]}]`))
		case r.URL.Path == "/api/students":
			_, _ = w.Write([]byte(`{"available":true,"students":[1,2,3]}`))
		case r.URL.Path == "/api/schools":
			_, _ = w.Write([]byte(`{"available":true,"schools":[7]}`))
		case r.URL.Path == "/api/analysis/featured":
			_, _ = w.Write([]byte(`{"available":false,"reason":"missing input: exams"}`))
		case strings.HasPrefix(r.URL.Path, "/api/"):
			_, _ = w.Write([]byte(`{"available":true}`))
		}
	})
	return httptest.NewServer(mux), &hits
}

func config(url string) *smoke.Config {
	return &smoke.Config{BaseURL: url, Workers: 4, Rounds: 2, Students: 2, Timeout: 5 * time.Second}
}

func find(stats *smoke.Stats, path string) smoke.Result {
	for _, r := range stats.Results {
		if r.Path == path {
			return r
		}
	}
	return smoke.Result{}
}

func TestRun(t *testing.T) {
	Convey("Given an open dashboard", t, func() {
		srv, hits := fakeDashboard("", "")
		defer srv.Close()

		Convey("When the smoke test runs", func() {
			stats, err := smoke.Run(context.Background(), config(srv.URL))

			Convey("Then every route should be checked each round", func() {
				So(err, ShouldBeNil)
				// 4 fixed + 7 analyses + 2 students + 1 school
				So(stats.Results, ShouldHaveLength, 14)
				So(stats.Requests, ShouldEqual, 28)
				So(atomic.LoadInt64(hits), ShouldEqual, int64(30))
				So(find(stats, "/api/students/2").OK, ShouldEqual, 2)
				So(find(stats, "/api/schools/categories?school=7").OK, ShouldEqual, 2)
			})

			Convey("Then missing data should count as unavailable", func() {
				r := find(stats, "/api/analysis/featured")
				So(r.Unavailable, ShouldEqual, 2)
				So(r.Failed, ShouldEqual, 0)
				So(r.Reason, ShouldEqual, "missing input: exams")
			})

			Convey("Then the report should render every route", func() {
				var buf bytes.Buffer
				smoke.Report(&buf, stats)
				So(buf.String(), ShouldContainSubstring, "/api/analysis/heatmap")
				So(buf.String(), ShouldContainSubstring, "28 requests")
			})
		})
	})

	Convey("Given a dashboard with a failing route", t, func() {
		srv, _ := fakeDashboard("", "/api/analysis/exams")
		defer srv.Close()

		stats, err := smoke.Run(context.Background(), config(srv.URL))

		Convey("Then the run should fail with the count", func() {
			So(errors.Is(err, smoke.ErrCheckFails), ShouldBeTrue)
			So(stats.Failed, ShouldEqual, 2)
			So(find(stats, "/api/analysis/exams").Reason, ShouldEqual, "status 500")
		})
	})

	Convey("Given a password protected dashboard", t, func() {
		srv, _ := fakeDashboard("pw", "")
		defer srv.Close()

		Convey("When the password is supplied", func() {
			cfg := config(srv.URL)
			cfg.Password = "pw"
			stats, err := smoke.Run(context.Background(), cfg)

			Convey("Then the session should be reused", func() {
				So(err, ShouldBeNil)
				So(stats.Failed, ShouldEqual, 0)
			})
		})

		Convey("When the password is wrong", func() {
			cfg := config(srv.URL)
			cfg.Password = "nope"
			_, err := smoke.Run(context.Background(), cfg)

			Convey("Then login should fail", func() {
				So(errors.Is(err, smoke.ErrLogin), ShouldBeTrue)
			})
		})

		Convey("When no password is supplied", func() {
			_, err := smoke.Run(context.Background(), config(srv.URL))

			Convey("Then discovery should fail", func() {
				So(errors.Is(err, smoke.ErrDiscovery), ShouldBeTrue)
			})
		})
	})

	Convey("Given no service", t, func() {
		_, err := smoke.Run(context.Background(), config("http://127.0.0.1:1"))

		Convey("Then the health check should fail", func() {
			So(errors.Is(err, smoke.ErrUnhealthy), ShouldBeTrue)
		})
	})
}
