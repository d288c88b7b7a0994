package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/Investment-Ledger-Backend/internal/api/request"
	"github.com/ndewijer/Investment-Ledger-Backend/internal/api/response"
	"github.com/ndewijer/Investment-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Investment-Ledger-Backend/internal/model"
	"github.com/ndewijer/Investment-Ledger-Backend/internal/service"
	"github.com/ndewijer/Investment-Ledger-Backend/internal/validation"
)

// InstrumentHandler handles HTTP requests for instrument endpoints.
// It serves as the HTTP layer adapter, parsing requests and delegating
// reads to the positionService and mutations to the ledgerWriter.
type InstrumentHandler struct {
	positionService *service.PositionService
	ledgerWriter    *service.LedgerWriter
}

// NewInstrumentHandler creates a new InstrumentHandler with the provided service dependencies.
func NewInstrumentHandler(positionService *service.PositionService, ledgerWriter *service.LedgerWriter) *InstrumentHandler {
	return &InstrumentHandler{
		positionService: positionService,
		ledgerWriter:    ledgerWriter,
	}
}

// AppendEventResponse is returned after an event has been written.
type AppendEventResponse struct {
	Event    model.LedgerEvent     `json:"event"`
	Position model.PositionSummary `json:"position"`
}

// Instruments handles GET requests to list every instrument with a ledger file.
// With ?summary=true each instrument's position is derived and summarized.
//
// Endpoint: GET /api/instrument
// Response: 200 OK with array of Instrument, or of PositionSummary when summarized
// Error: 500 Internal Server Error if the ledger directory cannot be read
func (h *InstrumentHandler) Instruments(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("summary") == "true" {
		summaries, err := h.positionService.ListPositions(r.Context())
		if err != nil {
			response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrievePosition.Error(), err.Error())
			return
		}
		response.RespondJSON(w, http.StatusOK, summaries)
		return
	}

	instruments, err := h.positionService.ListInstruments()
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveInstruments.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, instruments)
}

// Position handles GET requests to retrieve the derived position of one instrument.
//
// Endpoint: GET /api/instrument/{key}/position
// Response: 200 OK with Position
// Error: 400 Bad Request if the key is invalid (validated by middleware)
// Error: 404 Not Found if the instrument has no ledger file
func (h *InstrumentHandler) Position(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	position, err := h.positionService.GetPosition(key)
	if err != nil {
		response.RespondError(w, statusFor(err), messageFor(err, apperrors.ErrFailedToRetrievePosition), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, position)
}

// Lot handles GET requests to retrieve one lot, open or closed, by its identifier.
//
// Endpoint: GET /api/instrument/{key}/lot/{lotId}
// Response: 200 OK with LotDetail
// Error: 400 Bad Request if the key or lot ID is invalid (validated by middleware)
// Error: 404 Not Found if the instrument or lot does not exist
func (h *InstrumentHandler) Lot(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	lotID := chi.URLParam(r, "lotId")

	lot, err := h.positionService.GetLot(key, lotID)
	if err != nil {
		response.RespondError(w, statusFor(err), messageFor(err, apperrors.ErrFailedToRetrievePosition), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, lot)
}

// AppendEvent handles POST requests to record a buy or sell in the instrument's primary ledger.
// The ledger is created if the instrument has none yet.
//
// Endpoint: POST /api/instrument/{key}/event
// Request Body: AppendEventRequest (date, action, quantity, price, optional cost override)
// Response: 201 Created with AppendEventResponse
// Error: 400 Bad Request if validation fails or the request body is invalid
// Error: 404 Not Found when selling an instrument without a ledger
// Error: 422 Unprocessable Entity if a sell exceeds the open quantity
// Error: 500 Internal Server Error if writing fails
func (h *InstrumentHandler) AppendEvent(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	req, err := parseJSON[request.AppendEventRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateAppendEvent(req); err != nil {
		response.RespondValidationError(w, err)
		return
	}

	// Validated above.
	date, _ := time.Parse(validation.DateLayout, req.Date)
	event, err := h.ledgerWriter.Append(r.Context(), key, service.AppendRequest{
		Date:     date,
		Action:   model.ParseAction(req.Action),
		Quantity: req.Quantity,
		Price:    req.Price,
		Cost:     req.Cost,
		Exchange: req.Exchange,
		Remark:   req.Remark,
		Tax:      req.Tax,
		Charges:  req.Charges,
		Name:     req.Name,
		Class:    model.InstrumentClass(strings.ToLower(req.Class)),
	})
	if err != nil {
		response.RespondError(w, statusFor(err), messageFor(err, apperrors.ErrFailedToAppendEvent), err.Error())
		return
	}

	position, err := h.positionService.GetPosition(key)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrievePosition.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusCreated, AppendEventResponse{
		Event:    event,
		Position: service.Summarize(position),
	})
}

// RemoveLot handles DELETE requests to remove the buy row backing an open lot.
// This is a manual correction; lots in archival files cannot be removed.
//
// Endpoint: DELETE /api/instrument/{key}/lot/{lotId}
// Response: 204 No Content on successful deletion
// Error: 400 Bad Request if the key or lot ID is invalid (validated by middleware)
// Error: 404 Not Found if the instrument or open lot does not exist
// Error: 409 Conflict if the lot is archival or its row changed since it was read
// Error: 422 Unprocessable Entity if sells are already matched against the lot
func (h *InstrumentHandler) RemoveLot(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	lotID := chi.URLParam(r, "lotId")

	if _, err := h.ledgerWriter.RemoveLot(r.Context(), key, lotID); err != nil {
		response.RespondError(w, statusFor(err), messageFor(err, apperrors.ErrFailedToRemoveLot), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusNoContent, nil)
}

// Fingerprint handles POST requests to look up events matching a candidate event's fingerprint.
// Callers use it to detect duplicates before appending; a match is not rejected here.
//
// Endpoint: POST /api/instrument/{key}/fingerprint
// Request Body: FingerprintRequest (date, action, quantity, price)
// Response: 200 OK with DuplicateCheck
// Error: 400 Bad Request if validation fails
func (h *InstrumentHandler) Fingerprint(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	req, err := parseJSON[request.FingerprintRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateFingerprint(req); err != nil {
		response.RespondValidationError(w, err)
		return
	}

	date, _ := time.Parse(validation.DateLayout, req.Date)
	check, err := h.positionService.FindDuplicates(key, date, model.ParseAction(req.Action), req.Quantity, req.Price)
	if err != nil {
		response.RespondError(w, statusFor(err), messageFor(err, apperrors.ErrFailedToRetrievePosition), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, check)
}
