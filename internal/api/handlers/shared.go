package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/ndewijer/Investment-Ledger-Backend/internal/apperrors"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// parseJSON decodes the request body into T, rejecting unknown fields.
func parseJSON[T any](r *http.Request) (T, error) {
	var v T
	if r.Body == nil {
		return v, fmt.Errorf("request body is required")
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return v, err
	}
	return v, nil
}

// statusFor maps a service error to the HTTP status reported to the client.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrInstrumentNotFound),
		errors.Is(err, apperrors.ErrLotNotFound),
		errors.Is(err, apperrors.ErrPriceNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrInvalidEvent),
		errors.Is(err, apperrors.ErrInvalidInstrumentKey),
		errors.Is(err, apperrors.ErrInvalidCSVHeaders):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrInsufficientQuantity):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperrors.ErrLotReadOnly),
		errors.Is(err, apperrors.ErrLotChanged):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// messageFor returns the client-facing message for err, falling back to fallback for
// unexpected failures.
func messageFor(err error, fallback error) string {
	for _, known := range []error{
		apperrors.ErrInstrumentNotFound,
		apperrors.ErrLotNotFound,
		apperrors.ErrPriceNotFound,
		apperrors.ErrInvalidEvent,
		apperrors.ErrInvalidInstrumentKey,
		apperrors.ErrInvalidCSVHeaders,
		apperrors.ErrInsufficientQuantity,
		apperrors.ErrLotReadOnly,
		apperrors.ErrLotChanged,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return fallback.Error()
}
