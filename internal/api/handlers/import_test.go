package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ndewijer/Investment-Ledger-Backend/internal/service"
)

const importCSV = "date,action,instrument,quantity,price\n2024-01-10,Buy,INFY,10,100\n2024-01-11,Buy,TCS,2,3000\n"

func TestImportHandler_Import(t *testing.T) {
	setupHandler := func(t *testing.T) (*ImportHandler, *service.Ledger) {
		t.Helper()
		l, _ := newTestLedger(t)
		return NewImportHandler(l.Import), l
	}

	t.Run("imports a raw CSV body", func(t *testing.T) {
		handler, l := setupHandler(t)

		req := httptest.NewRequest(http.MethodPost, "/api/import", strings.NewReader(importCSV))
		req.Header.Set("Content-Type", "text/csv")
		w := httptest.NewRecorder()

		handler.Import(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}

		var result service.ImportResult
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&result)

		if result.Imported != 2 {
			t.Errorf("Expected 2 imported records, got %d", result.Imported)
		}
		if _, err := l.Positions.GetPosition("TCS"); err != nil {
			t.Errorf("Expected TCS ledger to exist: %v", err)
		}
	})

	t.Run("imports a multipart upload and skips duplicates on rerun", func(t *testing.T) {
		handler, _ := setupHandler(t)

		upload := func() *http.Request {
			var body bytes.Buffer
			mw := multipart.NewWriter(&body)
			part, err := mw.CreateFormFile("file", "trades.csv")
			if err != nil {
				t.Fatalf("Failed to create form file: %v", err)
			}
			_, _ = part.Write([]byte(importCSV))
			mw.Close()

			req := httptest.NewRequest(http.MethodPost, "/api/import", &body)
			req.Header.Set("Content-Type", mw.FormDataContentType())
			return req
		}

		first := httptest.NewRecorder()
		handler.Import(first, upload())
		if first.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", first.Code, first.Body.String())
		}

		second := httptest.NewRecorder()
		handler.Import(second, upload())

		var result service.ImportResult
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(second.Body).Decode(&result)

		if result.Imported != 0 {
			t.Errorf("Expected nothing imported on rerun, got %d", result.Imported)
		}
		if len(result.Skipped) != 2 {
			t.Errorf("Expected 2 skipped records, got %d", len(result.Skipped))
		}
	})

	t.Run("returns 400 when the multipart form has no file", func(t *testing.T) {
		handler, _ := setupHandler(t)

		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		_ = mw.WriteField("note", "empty")
		mw.Close()

		req := httptest.NewRequest(http.MethodPost, "/api/import", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		w := httptest.NewRecorder()

		handler.Import(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("returns 400 for missing columns", func(t *testing.T) {
		handler, _ := setupHandler(t)

		req := httptest.NewRequest(http.MethodPost, "/api/import", strings.NewReader("date,quantity\n2024-01-10,1\n"))
		w := httptest.NewRecorder()

		handler.Import(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d: %s", w.Code, w.Body.String())
		}
	})
}
