// Package middleware provides HTTP middleware for request validation and processing.
package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/Investment-Ledger-Backend/internal/api/response"
	"github.com/ndewijer/Investment-Ledger-Backend/internal/validation"
)

// ValidateInstrumentKeyMiddleware validates that the key URL parameter is present and can name
// a ledger file. Returns 400 Bad Request otherwise, so that handlers never build paths from
// unchecked input.
//
// Example usage in router:
//
//	r.Route("/{key}", func(r chi.Router) {
//	    r.Use(middleware.ValidateInstrumentKeyMiddleware)
//	    r.Get("/position", handler.Position)
//	})
func ValidateInstrumentKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "key")

		if key == "" {
			response.RespondError(w, http.StatusBadRequest, "instrument key is required", "")
			return
		}

		if err := validation.ValidateInstrumentKey(key); err != nil {
			response.RespondError(w, http.StatusBadRequest, "invalid instrument key", err.Error())
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ValidateLotIDMiddleware validates that the lotId URL parameter is a valid UUID.
// Returns 400 Bad Request if the lot ID is missing or invalid.
func ValidateLotIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lotID := chi.URLParam(r, "lotId")

		if lotID == "" {
			response.RespondError(w, http.StatusBadRequest, "valid lot ID is required", "")
			return
		}

		if err := validation.ValidateUUID(lotID); err != nil {
			response.RespondError(w, http.StatusBadRequest, "invalid lot ID format", err.Error())
			return
		}

		next.ServeHTTP(w, r)
	})
}
