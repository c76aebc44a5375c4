package handler

import (
	"log"
	"net/http"

	"dailybid/internal/clock"
	"dailybid/internal/service"
)

// ItemHandler serves the item open for bidding. Without a day parameter it
// returns today's item, creating the fallback if nothing is live yet.
type ItemHandler struct {
	logger *log.Logger
	ledger *service.LedgerService
	clk    clock.Clock
}

func NewItemHandler(logger *log.Logger, ledger *service.LedgerService, clk clock.Clock) *ItemHandler {
	return &ItemHandler{
		logger: logger,
		ledger: ledger,
		clk:    clk,
	}
}

func (h *ItemHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	day := h.clk.Today()
	if raw := r.URL.Query().Get("day"); raw != "" {
		parsed, err := clock.ParseDay(raw, day.Location())
		if err != nil {
			respondError(w, http.StatusBadRequest, "day must be formatted YYYY-MM-DD")
			return
		}
		day = parsed
	}

	item, err := h.ledger.ItemForDay(r.Context(), day)
	if err != nil {
		h.logger.Printf("Error fetching item for day: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load item")
		return
	}
	if item == nil {
		respondError(w, http.StatusNotFound, "no live item for that day")
		return
	}

	respondJSON(w, http.StatusOK, item)
}
