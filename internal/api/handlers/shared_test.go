package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/ndewijer/Investment-Ledger-Backend/internal/apperrors"
)

// TestStatusFor tests the mapping of service errors to HTTP status codes.
// This is an internal test (package handlers, not handlers_test) because
// statusFor is unexported.
func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperrors.ErrInstrumentNotFound, http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", apperrors.ErrLotNotFound), http.StatusNotFound},
		{apperrors.ErrPriceNotFound, http.StatusNotFound},
		{apperrors.ErrInvalidEvent, http.StatusBadRequest},
		{apperrors.ErrInvalidInstrumentKey, http.StatusBadRequest},
		{apperrors.ErrInvalidCSVHeaders, http.StatusBadRequest},
		{apperrors.ErrInsufficientQuantity, http.StatusUnprocessableEntity},
		{apperrors.ErrLotReadOnly, http.StatusConflict},
		{apperrors.ErrLotChanged, http.StatusConflict},
		{errors.New("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestMessageFor(t *testing.T) {
	err := fmt.Errorf("%w: INFY holds 8, cannot sell 9", apperrors.ErrInsufficientQuantity)
	if got := messageFor(err, apperrors.ErrFailedToAppendEvent); got != apperrors.ErrInsufficientQuantity.Error() {
		t.Errorf("Expected known message, got %q", got)
	}

	if got := messageFor(errors.New("disk full"), apperrors.ErrFailedToAppendEvent); got != apperrors.ErrFailedToAppendEvent.Error() {
		t.Errorf("Expected fallback message, got %q", got)
	}
}

func TestParseJSON(t *testing.T) {
	type body struct {
		Name string `json:"name"`
	}

	t.Run("decodes known fields", func(t *testing.T) {
		req := httptestRequest(`{"name":"x"}`)
		got, err := parseJSON[body](req)
		if err != nil {
			t.Fatalf("parseJSON() returned unexpected error: %v", err)
		}
		if got.Name != "x" {
			t.Errorf("Expected name 'x', got '%s'", got.Name)
		}
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		if _, err := parseJSON[body](httptestRequest(`{"other":1}`)); err == nil {
			t.Error("Expected an error for unknown field")
		}
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		if _, err := parseJSON[body](httptestRequest(`{`)); err == nil {
			t.Error("Expected an error for malformed JSON")
		}
	})
}

func httptestRequest(body string) *http.Request {
	req, _ := http.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	return req
}
