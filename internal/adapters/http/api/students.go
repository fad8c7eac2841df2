package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	service "github.com/okian/scholardash/internal/app"
	"github.com/okian/scholardash/internal/domain/model"
	"github.com/okian/scholardash/internal/domain/tier"
)

// StudentDependencies defines the interface for student dashboard reads.
type StudentDependencies interface {
	Students(ctx context.Context) service.StudentList
	Student(ctx context.Context, id model.StudentID, section string) (service.StudentDetail, error)
}

// StudentsHandler handles student requests.
type StudentsHandler struct {
	deps StudentDependencies
}

// NewStudentsHandler creates a new students handler.
func NewStudentsHandler(deps StudentDependencies) *StudentsHandler {
	return &StudentsHandler{deps: deps}
}

// HandleList handles GET /api/students requests.
func (h *StudentsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Students(r.Context()))
}

// HandleGet handles GET /api/students/{student_id}?section= requests.
func (h *StudentsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_student"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/api/students/")
	if path == "" || strings.Contains(path, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	id, err := strconv.ParseInt(path, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	detail, err := h.deps.Student(r.Context(), model.StudentID(id), r.URL.Query().Get("section"))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", Wrap(op, err))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// TierDependencies renders the tier threshold table.
type TierDependencies interface {
	TierDefinitions(ctx context.Context) []tier.Definition
}

// TiersHandler handles tier definition requests.
type TiersHandler struct {
	deps TierDependencies
}

// NewTiersHandler creates a new tiers handler.
func NewTiersHandler(deps TierDependencies) *TiersHandler {
	return &TiersHandler{deps: deps}
}

// HandleGetTiers handles GET /api/tiers requests.
func (h *TiersHandler) HandleGetTiers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.TierDefinitions(r.Context()))
}
