package handler

import (
	"log"
	"net/http"
	"strconv"

	"dailybid/internal/models"
	"dailybid/internal/service"
)

// ActivityHandler serves the recent-bids feed.
type ActivityHandler struct {
	logger     *log.Logger
	bidService *service.BidService
}

func NewActivityHandler(logger *log.Logger, bidService *service.BidService) *ActivityHandler {
	return &ActivityHandler{
		logger:     logger,
		bidService: bidService,
	}
}

func (h *ActivityHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := h.bidService.RecentActivity(r.Context(), limit)
	if err != nil {
		h.logger.Printf("Error loading recent activity: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load recent activity")
		return
	}
	if entries == nil {
		entries = []models.ActivityEntry{}
	}

	respondJSON(w, http.StatusOK, entries)
}
