package handler

import (
	"log"
	"net/http"
	"time"

	"dailybid/internal/clock"
	"dailybid/internal/service"

	"github.com/gorilla/mux"
)

// NewRouter wires every handler and middleware chain onto one router.
func NewRouter(logger *log.Logger, ledger *service.LedgerService, bids *service.BidService, clk clock.Clock, adminKey string) *mux.Router {
	router := mux.NewRouter()
	router.Use(LoggingMiddleware(logger))

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   clk.Now().Format(time.RFC3339),
		})
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Handle("/item/today", NewItemHandler(logger, ledger, clk)).Methods(http.MethodGet)
	api.Handle("/activity", NewActivityHandler(logger, bids)).Methods(http.MethodGet)

	authed := api.NewRoute().Subrouter()
	authed.Use(AuthMiddleware())
	authed.Handle("/bid", NewBidHandler(logger, bids)).Methods(http.MethodPost)
	authed.Handle("/submissions", NewSubmissionHandler(logger, ledger)).Methods(http.MethodPost)

	adminHandler := NewAdminHandler(logger, ledger, clk)
	admin := router.PathPrefix("/admin").Subrouter()
	admin.Use(AdminMiddleware(adminKey))
	admin.HandleFunc("/submissions/{id}/approve", adminHandler.ApproveSubmission).Methods(http.MethodPost)
	admin.HandleFunc("/submissions/{id}/reject", adminHandler.RejectSubmission).Methods(http.MethodPost)
	admin.HandleFunc("/rollover", adminHandler.Rollover).Methods(http.MethodPost)

	return router
}
