package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/ndewijer/Investment-Ledger-Backend/internal/api/response"
	"github.com/ndewijer/Investment-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Investment-Ledger-Backend/internal/service"
)

// maxImportBytes bounds uploaded import files.
const maxImportBytes = 10 << 20

// ImportHandler handles HTTP requests for importing normalized transaction records.
type ImportHandler struct {
	importService *service.ImportService
}

// NewImportHandler creates a new ImportHandler with the provided service dependency.
func NewImportHandler(importService *service.ImportService) *ImportHandler {
	return &ImportHandler{
		importService: importService,
	}
}

// Import handles POST requests carrying a CSV of normalized records, either as the raw body or
// as the "file" field of a multipart form. Records sharing a fingerprint with an existing event
// are skipped unless ?allow_duplicates=true.
//
// Endpoint: POST /api/import
// Response: 200 OK with ImportResult, also when individual records failed
// Error: 400 Bad Request if the file is missing or its header lacks required columns
// Error: 500 Internal Server Error if the file cannot be read
func (h *ImportHandler) Import(w http.ResponseWriter, r *http.Request) {
	allowDuplicates := r.URL.Query().Get("allow_duplicates") == "true"

	var body io.Reader = io.LimitReader(r.Body, maxImportBytes)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxImportBytes); err != nil {
			response.RespondError(w, http.StatusBadRequest, "invalid multipart form", err.Error())
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			response.RespondError(w, http.StatusBadRequest, "no file provided", err.Error())
			return
		}
		defer file.Close()
		body = file
	}

	result, err := h.importService.Import(r.Context(), body, allowDuplicates)
	if err != nil {
		response.RespondError(w, statusFor(err), messageFor(err, apperrors.ErrFailedToImportTransactions), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, result)
}
