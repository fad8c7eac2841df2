package api

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"

	service "github.com/okian/scholardash/internal/app"
)

// AnalysisDependencies defines the interface for the cohort analyses.
type AnalysisDependencies interface {
	Insights(ctx context.Context) service.Insights
	Exams(ctx context.Context) service.Exams
	Featured(ctx context.Context) service.Featured
	QuestionBank(ctx context.Context) service.QuestionBank
	Attendance(ctx context.Context) service.Attendance
	Performers(ctx context.Context) service.Performer
	Heatmap(ctx context.Context) service.Heatmap
}

// AnalysisHandler serves every analysis under /api/analysis/{name}.
type AnalysisHandler struct {
	routes map[string]func(context.Context) any
}

// NewAnalysisHandler creates a new analysis handler.
func NewAnalysisHandler(deps AnalysisDependencies) *AnalysisHandler {
	return &AnalysisHandler{routes: map[string]func(context.Context) any{
		"insights":      func(ctx context.Context) any { return deps.Insights(ctx) },
		"exams":         func(ctx context.Context) any { return deps.Exams(ctx) },
		"featured":      func(ctx context.Context) any { return deps.Featured(ctx) },
		"question-bank": func(ctx context.Context) any { return deps.QuestionBank(ctx) },
		"attendance":    func(ctx context.Context) any { return deps.Attendance(ctx) },
		"performers":    func(ctx context.Context) any { return deps.Performers(ctx) },
		"heatmap":       func(ctx context.Context) any { return deps.Heatmap(ctx) },
	}}
}

// Names lists the served analyses.
func (h *AnalysisHandler) Names() []string {
	out := make([]string, 0, len(h.routes))
	for name := range h.routes {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// HandleGet handles GET /api/analysis/{name} requests. An analysis whose
// data is missing still answers 200 with available=false.
func (h *AnalysisHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_analysis"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/api/analysis/")
	run, ok := h.routes[name]
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, fmt.Errorf("unknown analysis %q", name)))
		return
	}
	writeJSON(w, http.StatusOK, run(r.Context()))
}
