package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Fingerprint identifies an event for duplicate detection: same day, action, quantity and
// price rounded to two decimals. Legitimate repeated same-day trades share a fingerprint, so
// callers decide what to do with a match.
type Fingerprint struct {
	Date     string `json:"date"`
	Action   Action `json:"action"`
	Quantity string `json:"quantity"`
	Price    string `json:"price"`
}

// NewFingerprint builds the fingerprint of an event.
func NewFingerprint(date time.Time, action Action, quantity, price float64) Fingerprint {
	return Fingerprint{
		Date:     date.Format("2006-01-02"),
		Action:   action,
		Quantity: decimal.NewFromFloat(quantity).Round(4).String(),
		Price:    decimal.NewFromFloat(price).Round(2).String(),
	}
}

// FingerprintOf builds the fingerprint of a ledger event.
func FingerprintOf(e LedgerEvent) Fingerprint {
	return NewFingerprint(e.Date, e.Action, e.Quantity, e.Price)
}
