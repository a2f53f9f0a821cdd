package api

import (
	"net/http"
	"strconv"

	"github.com/browseease/browseease/internal/domain"
	"github.com/browseease/browseease/internal/identity"
)

const defaultHistoryLimit = 20

// GetHistory returns the shopper's recent searches, newest first.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	shopperID := identity.ShopperIDFromContext(r.Context())
	if shopperID == "" {
		Error(w, http.StatusUnauthorized, "no shopper identity")
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 100 {
			Error(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	records, err := h.repo.RecentSearches(r.Context(), shopperID, limit)
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	if records == nil {
		records = []*domain.SearchRecord{}
	}

	JSON(w, http.StatusOK, map[string]interface{}{"searches": records})
}
