// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	service "github.com/okian/scholardash/internal/app"
	"github.com/okian/scholardash/internal/domain/model"
	"github.com/okian/scholardash/internal/domain/tier"
	"github.com/volatiletech/null/v8"
)

// Dependencies required by HTTP handlers. Analyses never fail: a missing
// data bundle is reported inside the result.
type Dependencies interface {
	TierDefinitions(ctx context.Context) []tier.Definition

	Students(ctx context.Context) service.StudentList
	Student(ctx context.Context, id model.StudentID, section string) (service.StudentDetail, error)

	Schools(ctx context.Context) service.SchoolList
	SchoolCategories(ctx context.Context, school null.Int64) service.SchoolCategories

	Insights(ctx context.Context) service.Insights
	Exams(ctx context.Context) service.Exams
	Featured(ctx context.Context) service.Featured
	QuestionBank(ctx context.Context) service.QuestionBank
	Attendance(ctx context.Context) service.Attendance
	Performers(ctx context.Context) service.Performer
	Heatmap(ctx context.Context) service.Heatmap
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	tiersHandler    *TiersHandler
	studentsHandler *StudentsHandler
	schoolsHandler  *SchoolsHandler
	analysisHandler *AnalysisHandler
	auth            *Auth
}

// NewServer creates a new API server with all handlers. A nil auth leaves
// every route open.
func NewServer(deps Dependencies, statsProvider StatsProvider, auth *Auth) *Server {
	if auth == nil {
		auth = &Auth{}
	}
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		tiersHandler:    NewTiersHandler(deps),
		studentsHandler: NewStudentsHandler(deps),
		schoolsHandler:  NewSchoolsHandler(deps),
		analysisHandler: NewAnalysisHandler(deps),
		auth:            auth,
	}
}

// Auth returns the password gate guarding the API.
func (s *Server) Auth() *Auth { return s.auth }

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	open := func(h http.HandlerFunc, endpoint string) http.Handler {
		return RequestID(MetricsMiddleware(h, endpoint))
	}
	gated := func(h http.HandlerFunc, endpoint string) http.Handler {
		return RequestID(MetricsMiddleware(s.auth.Require(h).ServeHTTP, endpoint))
	}

	mux.Handle("/healthz", open(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("/metrics", open(s.healthHandler.HandleMetrics, "metrics"))
	mux.Handle("/stats", open(s.statsHandler.HandleStats, "stats"))
	mux.Handle("/login", open(s.auth.HandleLogin, "login"))
	mux.Handle("/logout", open(s.auth.HandleLogout, "logout"))

	mux.Handle("/api/tiers", gated(s.tiersHandler.HandleGetTiers, "tiers"))
	mux.Handle("/api/students", gated(s.studentsHandler.HandleList, "students"))
	mux.Handle("/api/students/", gated(s.studentsHandler.HandleGet, "student"))
	mux.Handle("/api/schools", gated(s.schoolsHandler.HandleList, "schools"))
	mux.Handle("/api/schools/categories", gated(s.schoolsHandler.HandleCategories, "school_categories"))
	mux.Handle("/api/analysis/", gated(s.analysisHandler.HandleGet, "analysis"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
