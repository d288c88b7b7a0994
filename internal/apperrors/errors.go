package apperrors

import "errors"

// Domain entity errors represent missing or invalid entities in the system.
// These errors indicate that a requested resource does not exist.
var (
	// ErrInstrumentNotFound indicates that no ledger file exists for the given instrument key.
	ErrInstrumentNotFound = errors.New("instrument not found")

	// ErrLotNotFound indicates that no open lot with the given identifier exists.
	ErrLotNotFound = errors.New("lot not found")

	// ErrPriceNotFound indicates that no quote has been fetched yet for a symbol.
	ErrPriceNotFound = errors.New("price not found")
)

// Business logic errors represent validation failures or constraint violations.
// These errors indicate that an operation cannot be completed due to business rules.
var (
	// ErrInsufficientQuantity indicates that a sell cannot be recorded
	// because the instrument does not hold enough open units.
	ErrInsufficientQuantity = errors.New("insufficient open quantity for sale")

	// ErrInvalidEvent indicates that a ledger event failed validation before being written.
	ErrInvalidEvent = errors.New("invalid ledger event")

	// ErrLotReadOnly indicates that the lot lives in an archival file, which is never mutated.
	ErrLotReadOnly = errors.New("lot belongs to an archival ledger file")

	// ErrLotChanged indicates that the row backing a lot was edited after the position was derived.
	ErrLotChanged = errors.New("ledger row no longer matches lot")

	// ErrInvalidInstrumentKey indicates that an instrument key cannot be used as a file name.
	ErrInvalidInstrumentKey = errors.New("invalid instrument key")

	// ErrDuplicateEntry indicates that an event with the same fingerprint already exists.
	ErrDuplicateEntry = errors.New("duplicate entry")
)

// Workbook errors represent failures of the file-format adapter.
var (
	// ErrWorkbookUnreadable indicates that a ledger file could not be opened or parsed.
	ErrWorkbookUnreadable = errors.New("ledger workbook unreadable")

	// ErrNoLedgerSheet indicates that a workbook has no sheet usable as an event log.
	ErrNoLedgerSheet = errors.New("no ledger sheet found")

	// ErrNoHeader indicates that a sheet that must be written to has no header row.
	ErrNoHeader = errors.New("ledger header row not found")
)

// Operation failure errors represent system-level failures when retrieving or processing data.
var (
	ErrFailedToRetrievePosition    = errors.New("failed to retrieve position")
	ErrFailedToRetrieveInstruments = errors.New("failed to retrieve instruments")
	ErrFailedToAppendEvent         = errors.New("failed to append ledger event")
	ErrFailedToRemoveLot           = errors.New("failed to remove lot")
	ErrFailedToImportTransactions  = errors.New("failed to import transactions")
	ErrFailedToRetrievePrices      = errors.New("failed to retrieve prices")
	ErrInvalidCSVHeaders           = errors.New("invalid CSV headers")
)
