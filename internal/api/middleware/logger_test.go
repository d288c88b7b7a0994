package middleware_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ndewijer/Investment-Ledger-Backend/internal/api/middleware"
)

func TestLogger(t *testing.T) {
	serve := func(status int) map[string]any {
		var buf bytes.Buffer
		log := zerolog.New(&buf).Level(zerolog.DebugLevel)

		next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
		})
		req := httptest.NewRequest(http.MethodGet, "/api/instrument", nil)
		middleware.Logger(log)(next).ServeHTTP(httptest.NewRecorder(), req)

		entry := map[string]any{}
		if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
			t.Fatalf("Failed to decode log entry %q: %v", buf.String(), err)
		}
		return entry
	}

	t.Run("logs successful requests at debug", func(t *testing.T) {
		entry := serve(http.StatusOK)

		if entry["level"] != "debug" {
			t.Errorf("Expected level debug, got %v", entry["level"])
		}
		if entry["path"] != "/api/instrument" {
			t.Errorf("Expected path /api/instrument, got %v", entry["path"])
		}
		if entry["status"] != float64(http.StatusOK) {
			t.Errorf("Expected status 200, got %v", entry["status"])
		}
	})

	t.Run("logs server errors at warn", func(t *testing.T) {
		entry := serve(http.StatusInternalServerError)

		if entry["level"] != "warn" {
			t.Errorf("Expected level warn, got %v", entry["level"])
		}
	})
}
