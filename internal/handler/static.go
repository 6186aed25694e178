package handler

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
)

// staticRoutes serves the browser frontend when the static directory exists.
func (h *Handler) staticRoutes(r chi.Router) {
	dir := h.config.StaticDir
	if dir == "" {
		return
	}
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		slog.Warn("static directory not found, frontend disabled", "dir", dir)
		return
	}

	index := filepath.Join(dir, "index.html")
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, index)
	})
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(dir))))
}
