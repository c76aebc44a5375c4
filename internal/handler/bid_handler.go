package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"dailybid/internal/service"
)

type BidHandler struct {
	logger     *log.Logger
	bidService *service.BidService
}

func NewBidHandler(logger *log.Logger, bidService *service.BidService) *BidHandler {
	return &BidHandler{
		logger:     logger,
		bidService: bidService,
	}
}

type BidRequestPayload struct {
	Amount int64 `json:"amount"`
}

type BidResponsePayload struct {
	ItemID        int64  `json:"item_id"`
	NewCurrentBid int64  `json:"new_current_bid"`
	Message       string `json:"message,omitempty"`
	CurrentBid    int64  `json:"current_bid,omitempty"`
}

func (h *BidHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())

	var payload BidRequestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.bidService.PlaceBid(r.Context(), userID, payload.Amount)
	if err != nil {
		var tooLow *service.BidTooLowError
		switch {
		case errors.Is(err, service.ErrInvalidAmount):
			respondError(w, http.StatusBadRequest, err.Error())
		case errors.As(err, &tooLow):
			respondJSON(w, http.StatusConflict, BidResponsePayload{
				Message:    tooLow.Error(),
				CurrentBid: tooLow.CurrentBid,
			})
		case errors.Is(err, service.ErrNoLiveItem):
			respondError(w, http.StatusInternalServerError, err.Error())
		default:
			h.logger.Printf("Error placing bid for user %s: %v", userID, err)
			respondError(w, http.StatusInternalServerError, "bid could not be processed")
		}
		return
	}

	respondJSON(w, http.StatusCreated, BidResponsePayload{
		ItemID:        item.ID,
		NewCurrentBid: item.CurrentBid,
	})
}
