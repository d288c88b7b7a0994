package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// QuantityEpsilon is the tolerance under which a remaining quantity counts as exhausted.
const QuantityEpsilon = 1e-4

// OpenLot is a buy event with the quantity still held.
type OpenLot struct {
	ID                string    `json:"id"`
	Date              time.Time `json:"date"`
	Exchange          string    `json:"exchange"`
	Price             float64   `json:"price"`
	OriginalQuantity  float64   `json:"originalQuantity"`
	RemainingQuantity float64   `json:"remainingQuantity"`
	Remark            string    `json:"remark,omitempty"`
	File              string    `json:"file"`
	Row               int       `json:"row"`
}

// Exhausted reports whether the lot has nothing left to sell.
func (l OpenLot) Exhausted() bool {
	return l.RemainingQuantity <= QuantityEpsilon
}

// ClosedLotSource records which ledger encoding produced a closed lot.
type ClosedLotSource string

const (
	// SourceRealisedColumns marks lots read from the legacy realised block on the buy row.
	SourceRealisedColumns ClosedLotSource = "realised-columns"
	// SourceSellRow marks lots produced by FIFO-matching an explicit sell row.
	SourceSellRow ClosedLotSource = "sell-row"
)

// ClosedLot is an immutable realised record.
// Gain is (SellPrice - BuyPrice) * Quantity.
type ClosedLot struct {
	ID        string          `json:"id"`
	BuyLotID  string          `json:"buyLotId"`
	BuyDate   time.Time       `json:"buyDate"`
	BuyPrice  float64         `json:"buyPrice"`
	SellDate  time.Time       `json:"sellDate"`
	SellPrice float64         `json:"sellPrice"`
	Quantity  float64         `json:"quantity"`
	Gain      float64         `json:"gain"`
	Source    ClosedLotSource `json:"source"`
}

// lotNamespace seeds deterministic lot identifiers.
var lotNamespace = uuid.MustParse("6f1d3c2a-8b4e-5a7f-9c0d-2e4b6a8c0f13")

// LotID derives a stable identifier from the parts that locate a lot in its ledger.
// The same parts always produce the same identifier, across processes and re-derivations.
func LotID(parts ...string) string {
	return uuid.NewSHA1(lotNamespace, []byte(strings.Join(parts, "|"))).String()
}
