package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	service "github.com/okian/scholardash/internal/app"
	"github.com/volatiletech/null/v8"
)

// SchoolDependencies defines the interface for roster reads.
type SchoolDependencies interface {
	Schools(ctx context.Context) service.SchoolList
	SchoolCategories(ctx context.Context, school null.Int64) service.SchoolCategories
}

// SchoolsHandler handles school requests.
type SchoolsHandler struct {
	deps SchoolDependencies
}

// NewSchoolsHandler creates a new schools handler.
func NewSchoolsHandler(deps SchoolDependencies) *SchoolsHandler {
	return &SchoolsHandler{deps: deps}
}

// HandleList handles GET /api/schools requests.
func (h *SchoolsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Schools(r.Context()))
}

// HandleCategories handles GET /api/schools/categories?school=N requests.
// An empty or "all" school categorizes the whole roster.
func (h *SchoolsHandler) HandleCategories(w http.ResponseWriter, r *http.Request) {
	const op = "api.school_categories"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	var school null.Int64
	if raw := strings.TrimSpace(r.URL.Query().Get("school")); raw != "" && !strings.EqualFold(raw, "all") {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		school = null.Int64From(n)
	}
	writeJSON(w, http.StatusOK, h.deps.SchoolCategories(r.Context(), school))
}
