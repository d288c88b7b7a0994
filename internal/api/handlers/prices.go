package handlers

import (
	"net/http"

	"github.com/ndewijer/Investment-Ledger-Backend/internal/api/response"
	"github.com/ndewijer/Investment-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Investment-Ledger-Backend/internal/service"
	"github.com/ndewijer/Investment-Ledger-Backend/internal/validation"
)

// PriceHandler handles HTTP requests for market quotes of open positions.
type PriceHandler struct {
	priceService *service.PriceService
}

// NewPriceHandler creates a new PriceHandler with the provided service dependency.
func NewPriceHandler(priceService *service.PriceService) *PriceHandler {
	return &PriceHandler{
		priceService: priceService,
	}
}

// Prices handles GET requests for the latest known quotes. With ?key= only that instrument's
// quote is returned; with ?refresh=true quotes are fetched before responding.
//
// Endpoint: GET /api/price
// Response: 200 OK with array of Quote, or a single Quote when key is given
// Error: 400 Bad Request if key is invalid
// Error: 404 Not Found if no quote is known for key
// Error: 500 Internal Server Error if a refresh fails
func (h *PriceHandler) Prices(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("refresh") == "true" {
		if _, err := h.priceService.Refresh(r.Context()); err != nil {
			response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrievePrices.Error(), err.Error())
			return
		}
	}

	if key := r.URL.Query().Get("key"); key != "" {
		if err := validation.ValidateInstrumentKey(key); err != nil {
			response.RespondError(w, http.StatusBadRequest, "invalid instrument key", err.Error())
			return
		}
		quote, err := h.priceService.Quote(key)
		if err != nil {
			response.RespondError(w, statusFor(err), messageFor(err, apperrors.ErrFailedToRetrievePrices), err.Error())
			return
		}
		response.RespondJSON(w, http.StatusOK, quote)
		return
	}

	response.RespondJSON(w, http.StatusOK, h.priceService.Quotes())
}
