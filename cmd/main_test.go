package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/scholardash/internal/adapters/http/api"
	service "github.com/okian/scholardash/internal/app"
	"github.com/okian/scholardash/internal/config"
	"github.com/okian/scholardash/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestMainConfiguration(t *testing.T) {
	t.Setenv("SCHOLARDASH_ADDR", ":8088")

	convey.Convey("Given environment overrides", t, func() {
		cfg, err := config.Load(context.Background())

		convey.Convey("Then configuration should be loadable", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":8088")
			convey.So(cfg.Auth.Enabled(), convey.ShouldBeFalse)
		})
	})
}

func TestMainConfigurationErrors(t *testing.T) {
	t.Setenv("SCHOLARDASH_ADDR", "")

	convey.Convey("Given an empty listen address", t, func() {
		cfg, err := config.Load(context.Background())

		convey.Convey("Then loading should fail", func() {
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})
	})
}

func TestNewMux(t *testing.T) {
	convey.Convey("Given a started service over an empty data directory", t, func() {
		ctx := context.Background()
		cfg := config.New()
		cfg.DataDirs = []string{t.TempDir()}
		svc := service.New(service.WithConfig(cfg))
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		serve := func(mux http.Handler, target string) *httptest.ResponseRecorder {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
			return w
		}

		convey.Convey("When no password is configured", func() {
			auth, err := api.NewAuth(cfg.Auth)
			convey.So(err, convey.ShouldBeNil)
			mux := newMux(ctx, svc, auth)

			convey.Convey("Then every surface is reachable", func() {
				convey.So(serve(mux, "/healthz").Code, convey.ShouldEqual, http.StatusOK)
				convey.So(serve(mux, "/openapi.yaml").Code, convey.ShouldEqual, http.StatusOK)
				convey.So(serve(mux, "/").Code, convey.ShouldEqual, http.StatusOK)
				convey.So(serve(mux, "/api/analysis/insights").Code, convey.ShouldEqual, http.StatusOK)
			})

			convey.Convey("Then missing data is reported, not failed", func() {
				w := serve(mux, "/api/students")
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(w.Body.String(), convey.ShouldContainSubstring, `"available":false`)
			})
		})

		convey.Convey("When a password is configured", func() {
			cfg.Auth.Password = "pw"
			cfg.Auth.SessionSecret = "secret"
			auth, err := api.NewAuth(cfg.Auth, api.WithBcryptCost(bcrypt.MinCost))
			convey.So(err, convey.ShouldBeNil)
			mux := newMux(ctx, svc, auth)

			convey.Convey("Then the dashboard and API are gated", func() {
				convey.So(serve(mux, "/").Code, convey.ShouldEqual, http.StatusSeeOther)
				convey.So(serve(mux, "/api/tiers").Code, convey.ShouldEqual, http.StatusUnauthorized)
			})

			convey.Convey("Then probes and docs stay open", func() {
				convey.So(serve(mux, "/healthz").Code, convey.ShouldEqual, http.StatusOK)
				convey.So(serve(mux, "/metrics").Code, convey.ShouldEqual, http.StatusOK)
				convey.So(serve(mux, "/api-docs").Code, convey.ShouldEqual, http.StatusOK)
				convey.So(serve(mux, "/login").Code, convey.ShouldEqual, http.StatusOK)
			})
		})
	})
}

func TestSystemMetrics(t *testing.T) {
	convey.Convey("Given the system metrics updater", t, func() {
		convey.Convey("Then a single update should not panic", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})

		convey.Convey("Then the loop should stop with its context", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			done := make(chan struct{})
			go func() {
				startSystemMetricsUpdater(ctx, 10*time.Millisecond)
				close(done)
			}()

			select {
			case <-done:
			case <-time.After(time.Second):
				t.Fatal("updater did not stop")
			}
		})
	})
}
