package model

import (
	"strings"
	"time"
)

// Action is the kind of a ledger row.
type Action string

const (
	ActionBuy  Action = "Buy"
	ActionSell Action = "Sell"
	// ActionOther covers marker rows and anything else that is neither a buy nor a sell.
	ActionOther Action = ""
)

// ParseAction maps the free-text action cell to an Action. Unknown text yields ActionOther.
func ParseAction(s string) Action {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy", "b", "purchase":
		return ActionBuy
	case "sell", "s", "sale", "redeem", "redemption":
		return ActionSell
	default:
		return ActionOther
	}
}

// LedgerEvent is one row of a ledger sheet.
// Quantity and Price are positive for every event that takes part in derivation.
type LedgerEvent struct {
	// ID identifies the row among all ledger files of its instrument. It is set during derivation.
	ID       string    `json:"id,omitempty"`
	Date     time.Time `json:"date"`
	Exchange string    `json:"exchange"`
	Action   Action    `json:"action"`
	Quantity float64   `json:"quantity"`
	Price    float64   `json:"price"`
	Cost     float64   `json:"cost"`
	Remark   string    `json:"remark,omitempty"`
	Tax      float64   `json:"tax,omitempty"`
	Charges  float64   `json:"charges,omitempty"`

	// File and Row locate the event: Row is the 1-based sheet row, Ordinal counts data rows
	// from the bottom of the sheet so that inserts under the header leave it unchanged.
	File    string `json:"file"`
	Row     int    `json:"row"`
	Ordinal int    `json:"ordinal"`
}

// Dividend is a row carrying the dividend sentinel in its exchange column.
// Dividend rows never take part in position derivation.
type Dividend struct {
	Date   time.Time `json:"date"`
	Amount float64   `json:"amount"`
	Remark string    `json:"remark,omitempty"`
	File   string    `json:"file"`
	Row    int       `json:"row"`
}
