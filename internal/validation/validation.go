package validation

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/ndewijer/Investment-Ledger-Backend/internal/repository"
)

// Common validation errors
var (
	ErrInvalidUUID = fmt.Errorf("invalid UUID format")
)

// ValidateUUID checks if a string is a valid UUID. Lot identifiers are name-based UUIDs.
func ValidateUUID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidUUID, id)
	}
	return nil
}

// ValidateInstrumentKey checks that key can name a ledger file.
func ValidateInstrumentKey(key string) error {
	_, err := repository.NormalizeKey(key)
	return err
}
