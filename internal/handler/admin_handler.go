package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"dailybid/internal/clock"
	"dailybid/internal/service"

	"github.com/gorilla/mux"
)

// AdminHandler hosts the admin bridge: submission approval/rejection and
// the manual rollover trigger. All routes are behind AdminMiddleware.
type AdminHandler struct {
	logger *log.Logger
	ledger *service.LedgerService
	clk    clock.Clock
}

func NewAdminHandler(logger *log.Logger, ledger *service.LedgerService, clk clock.Clock) *AdminHandler {
	return &AdminHandler{
		logger: logger,
		ledger: ledger,
		clk:    clk,
	}
}

type dayPayload struct {
	Day string `json:"day"`
}

func (h *AdminHandler) ApproveSubmission(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid submission id")
		return
	}

	var payload dayPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Day == "" {
		respondError(w, http.StatusBadRequest, "body must contain a day formatted YYYY-MM-DD")
		return
	}
	day, err := clock.ParseDay(payload.Day, h.clk.Today().Location())
	if err != nil {
		respondError(w, http.StatusBadRequest, "day must be formatted YYYY-MM-DD")
		return
	}

	item, err := h.ledger.ApproveSubmission(r.Context(), id, day)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSubmissionNotFound):
			respondError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrSubmissionNotPending):
			respondError(w, http.StatusConflict, err.Error())
		case errors.Is(err, service.ErrDayConflict):
			respondError(w, http.StatusConflict, err.Error())
		case errors.Is(err, service.ErrPastDay):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Printf("Error approving submission %d: %v", id, err)
			respondError(w, http.StatusInternalServerError, "failed to approve submission")
		}
		return
	}

	respondJSON(w, http.StatusCreated, item)
}

func (h *AdminHandler) RejectSubmission(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid submission id")
		return
	}

	if err := h.ledger.RejectSubmission(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, service.ErrSubmissionNotFound):
			respondError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrSubmissionNotPending):
			respondError(w, http.StatusConflict, err.Error())
		default:
			h.logger.Printf("Error rejecting submission %d: %v", id, err)
			respondError(w, http.StatusInternalServerError, "failed to reject submission")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}

// Rollover triggers the day transition by hand. The operation is
// idempotent, so replaying it is harmless.
func (h *AdminHandler) Rollover(w http.ResponseWriter, r *http.Request) {
	day := h.clk.Today()

	var payload dayPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err == nil && payload.Day != "" {
		parsed, err := clock.ParseDay(payload.Day, day.Location())
		if err != nil {
			respondError(w, http.StatusBadRequest, "day must be formatted YYYY-MM-DD")
			return
		}
		day = parsed
	}

	item, err := h.ledger.Rollover(r.Context(), day)
	if err != nil {
		h.logger.Printf("Error during manual rollover: %v", err)
		respondError(w, http.StatusInternalServerError, "rollover failed")
		return
	}

	respondJSON(w, http.StatusOK, item)
}
