package api

import (
	"net/http"
)

// StatsProvider reports service state: start time, resolved data bundles and
// cached table counts.
type StatsProvider interface {
	GetStats() map[string]any
}

// StatsHandler serves the service state.
type StatsHandler struct {
	provider StatsProvider
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(provider StatsProvider) *StatsHandler {
	return &StatsHandler{provider: provider}
}

// HandleStats handles GET /stats requests. The answer changes as tables are
// loaded, so it is never cached.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, h.provider.GetStats())
}
