// Package api provides HTTP handlers for the BrowseEase API.
package api

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"

	"github.com/browseease/browseease/internal/config"
	"github.com/browseease/browseease/internal/search"
	"github.com/browseease/browseease/internal/store"
)

// Handler provides common handler dependencies.
type Handler struct {
	repo    store.Repository
	planner *search.Planner
	catalog *search.Catalog
	cfg     *config.Config
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo store.Repository, planner *search.Planner, catalog *search.Catalog, cfg *config.Config) *Handler {
	return &Handler{
		repo:    repo,
		planner: planner,
		catalog: catalog,
		cfg:     cfg,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// isDevelopment returns true if running in development mode.
func (h *Handler) isDevelopment() bool {
	if env := os.Getenv("APP_ENV"); env != "" {
		return env == "development"
	}
	return h.cfg == nil ||
		h.cfg.FrontendURL == "" ||
		strings.Contains(h.cfg.FrontendURL, "localhost") ||
		strings.Contains(h.cfg.FrontendURL, "127.0.0.1")
}
