package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"dailybid/internal/models"
	"dailybid/internal/service"
)

// SubmissionHandler accepts user item proposals. Proposals are plain data
// capture; an admin decides later whether one becomes a queued item.
type SubmissionHandler struct {
	logger *log.Logger
	ledger *service.LedgerService
}

func NewSubmissionHandler(logger *log.Logger, ledger *service.LedgerService) *SubmissionHandler {
	return &SubmissionHandler{
		logger: logger,
		ledger: ledger,
	}
}

type SubmissionRequestPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	ImageURL    string `json:"image_url"`
	StartBid    int64  `json:"start_bid"`
}

func (h *SubmissionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())

	var payload SubmissionRequestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sub := &models.Submission{
		Name:        payload.Name,
		Description: payload.Description,
		Category:    payload.Category,
		ImageURL:    payload.ImageURL,
		StartBid:    payload.StartBid,
		SubmitterID: userID,
	}

	created, err := h.ledger.SubmitProposal(r.Context(), sub)
	if err != nil {
		if errors.Is(err, service.ErrInvalidSubmission) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Printf("Error creating submission for user %s: %v", userID, err)
		respondError(w, http.StatusInternalServerError, "failed to create submission")
		return
	}

	respondJSON(w, http.StatusCreated, created)
}
