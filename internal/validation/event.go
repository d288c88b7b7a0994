package validation

import (
	"fmt"
	"strings"
	"time"

	"github.com/ndewijer/Investment-Ledger-Backend/internal/api/request"
	"github.com/ndewijer/Investment-Ledger-Backend/internal/model"
)

// DateLayout is the date format accepted by the HTTP API.
const DateLayout = "2006-01-02"

// ValidClasses contains the allowed instrument class values.
var ValidClasses = map[string]bool{
	string(model.ClassEquity): true, string(model.ClassFund): true,
}

// ValidateAppendEvent validates a ledger event request.
// Checks all required fields and validates their formats and constraints.
//
// Required fields:
//   - date: Must be in YYYY-MM-DD format
//   - action: Must be Buy or Sell (case-insensitive)
//   - quantity: Must be positive
//   - price: Must be positive
//
// Optional fields (validated if provided):
//   - cost: Must be positive
//   - tax, charges: Must not be negative
//   - class: Must be equity or fund
//
// Whether the quantity may be fractional and whether a sell is covered depend on the
// ledger and are checked by the writer.
//
// Returns a validation Error with field-specific error messages if validation fails.
func ValidateAppendEvent(req request.AppendEventRequest) error {
	errors := make(map[string]string)

	validateDate(req.Date, errors)
	validateAction(req.Action, errors)

	if req.Quantity <= 0.0 {
		errors["quantity"] = "quantity must be positive"
	}
	if req.Price <= 0.0 {
		errors["price"] = "price must be positive"
	}
	if req.Cost != nil && *req.Cost <= 0.0 {
		errors["cost"] = "cost must be positive"
	}
	if req.Tax < 0 {
		errors["tax"] = "tax cannot be negative"
	}
	if req.Charges < 0 {
		errors["charges"] = "charges cannot be negative"
	}
	if req.Class != "" && !ValidClasses[strings.ToLower(req.Class)] {
		errors["class"] = fmt.Sprintf("invalid class: %s", req.Class)
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}

	return nil
}

// ValidateFingerprint validates a duplicate lookup request.
func ValidateFingerprint(req request.FingerprintRequest) error {
	errors := make(map[string]string)

	validateDate(req.Date, errors)
	validateAction(req.Action, errors)
	if req.Quantity <= 0.0 {
		errors["quantity"] = "quantity must be positive"
	}
	if req.Price <= 0.0 {
		errors["price"] = "price must be positive"
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}

	return nil
}

func validateDate(date string, errors map[string]string) {
	if strings.TrimSpace(date) == "" {
		errors["date"] = "date is required"
		return
	}
	if _, err := time.Parse(DateLayout, date); err != nil {
		errors["date"] = err.Error()
	}
}

func validateAction(action string, errors map[string]string) {
	if strings.TrimSpace(action) == "" {
		errors["action"] = "action is required"
		return
	}
	if a := model.ParseAction(action); a != model.ActionBuy && a != model.ActionSell {
		errors["action"] = fmt.Sprintf("invalid action: %s", action)
	}
}
