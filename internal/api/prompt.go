package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/browseease/browseease/internal/domain"
	"github.com/browseease/browseease/internal/identity"
	"github.com/browseease/browseease/internal/search"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// PromptRequest is the one-shot prompt payload.
type PromptRequest struct {
	Query      string `json:"query"`
	PromptType string `json:"prompt_type"`
	Context    string `json:"context,omitempty"`
	MaxResults int    `json:"max_results,omitempty"`
}

// PromptResponse is the one-shot prompt result.
type PromptResponse struct {
	Plan       *domain.TaskPlan `json:"plan"`
	Results    []domain.Product `json:"results"`
	Comparison string           `json:"comparison,omitempty"`
	Summary    string           `json:"summary,omitempty"`
}

// RegisterRoutes registers the one-shot API routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/prompt", h.HandlePrompt)
		r.Get("/history", h.GetHistory)
	})
}

// HandlePrompt executes one prompt synchronously. Four prompt types are
// supported: search, compare, summarize, refine. The streaming WebSocket
// endpoint is the primary search surface; this one serves clients that
// only need a single request/response round trip.
func (h *Handler) HandlePrompt(w http.ResponseWriter, r *http.Request) {
	var req PromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	sreq := domain.SearchRequest{Query: req.Query, MaxResults: req.MaxResults}
	if err := sreq.Validate(); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if sreq.MaxResults > h.cfg.MaxResults {
		sreq.MaxResults = h.cfg.MaxResults
	}
	if req.PromptType == "" {
		req.PromptType = "search"
	}

	plan := h.planner.Plan(sreq.Query)
	results := h.catalog.Results(plan, sreq.MaxResults)
	resp := PromptResponse{Plan: plan, Results: results}

	switch req.PromptType {
	case "search":
	case "compare":
		resp.Comparison = search.Compare(results)
	case "summarize":
		resp.Summary = search.Summarize(plan, results)
	case "refine":
		resp.Plan = h.planner.Refine(sreq.Query, nil)
	default:
		Error(w, http.StatusBadRequest, "unknown prompt type")
		return
	}

	h.recordSearch(r.Context(), sreq.Query, resp.Plan, len(results))
	JSON(w, http.StatusOK, resp)
}

// recordSearch persists a history entry; failures are logged, never
// surfaced, since history is best-effort.
func (h *Handler) recordSearch(ctx context.Context, query string, plan *domain.TaskPlan, resultCount int) {
	shopperID := identity.ShopperIDFromContext(ctx)
	if shopperID == "" || h.repo == nil {
		return
	}

	planJSON, err := json.Marshal(plan)
	if err != nil {
		slog.Warn("Failed to serialize task plan for history", "error", err)
		planJSON = nil
	}

	rec := &domain.SearchRecord{
		ID:          uuid.NewString(),
		ShopperID:   shopperID,
		Query:       query,
		Category:    plan.Category,
		PlanJSON:    string(planJSON),
		ResultCount: resultCount,
		CreatedAt:   time.Now(),
	}

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := h.repo.SaveSearch(saveCtx, rec); err != nil {
		slog.Warn("Failed to record search history", "error", err, "shopper_id", shopperID)
	}
}
