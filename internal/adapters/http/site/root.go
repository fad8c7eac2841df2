// Package site serves the embedded dashboard.
package site

import (
	"context"
	"net/http"
)

// Gate wraps the dashboard handler, typically with the login check.
type Gate func(http.Handler) http.Handler

// Register attaches the dashboard at / to mux. A nil gate serves it openly.
func Register(_ context.Context, mux *http.ServeMux, gate Gate) {
	if mux == nil {
		panic("mux is nil")
	}
	var h http.Handler = NewRootHandler()
	if gate != nil {
		h = gate(h)
	}
	mux.Handle("/", h)
}

// RootHandler serves the dashboard page and its assets.
type RootHandler struct {
	files http.Handler
}

// NewRootHandler creates a new root handler
func NewRootHandler() *RootHandler {
	return &RootHandler{files: http.FileServer(FS())}
}

// ServeHTTP serves GET and HEAD requests for embedded files.
func (h *RootHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Cache-Control", "no-cache")
	h.files.ServeHTTP(w, r)
}
