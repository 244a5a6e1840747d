/**
 * @description
 * This file sets up the HTTP router for the bridge service. It defines the API
 * endpoints, associates them with their handlers, and applies authentication
 * middleware: the internal API key for the messaging front-end surface, and the
 * operator bearer token for diagnostics and history.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Routes creates and returns the router for the bridge service.
func Routes(h *Handlers, internalAPIKey, operatorSecret string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Front-end surface: inbound user events and balance display.
	r.Group(func(r chi.Router) {
		r.Use(InternalKeyMiddleware(internalAPIKey))

		r.Post("/events", h.HandleEventPost)
		r.Get("/balances/{userID}", h.GetBalancesHandler)
	})

	// Operator surface: diagnostics and transfer history.
	r.Group(func(r chi.Router) {
		r.Use(OperatorAuthMiddleware(operatorSecret))

		r.Get("/sessions/{userID}", h.GetSessionHandler)
		r.Get("/transfers", h.ListTransfersHandler)
		r.Get("/transfers/{transferID}", h.GetTransferHandler)
	})

	return r
}
