package model

import "time"

// Position is the derived view of one instrument, valid as of the combined modification
// time of its ledger files. It is the unit stored by the position cache.
type Position struct {
	Instrument            Instrument  `json:"instrument"`
	OpenLots              []OpenLot   `json:"openLots"`
	ClosedLots            []ClosedLot `json:"closedLots"`
	Dividends             []Dividend  `json:"dividends"`
	AsOf                  time.Time   `json:"asOf"`
	UnmatchedSellQuantity float64     `json:"unmatchedSellQuantity,omitempty"`
	SkippedFiles          []string    `json:"skippedFiles,omitempty"`

	// Fingerprints holds every buy and sell event seen during derivation, for duplicate lookups.
	Fingerprints []Fingerprint `json:"-"`
}

// OpenQuantity returns the quantity still held across all open lots.
func (p Position) OpenQuantity() float64 {
	var total float64
	for _, l := range p.OpenLots {
		total += l.RemainingQuantity
	}
	return total
}

// InvestedCost returns the cost basis of the open quantity.
func (p Position) InvestedCost() float64 {
	var total float64
	for _, l := range p.OpenLots {
		total += l.RemainingQuantity * l.Price
	}
	return total
}

// AverageCost returns the quantity-weighted buy price of the open lots, or 0 when flat.
func (p Position) AverageCost() float64 {
	qty := p.OpenQuantity()
	if qty <= QuantityEpsilon {
		return 0
	}
	return p.InvestedCost() / qty
}

// RealisedGain returns the sum of gains over all closed lots.
func (p Position) RealisedGain() float64 {
	var total float64
	for _, c := range p.ClosedLots {
		total += c.Gain
	}
	return total
}

// FindOpenLot returns the open lot with the given identifier.
func (p Position) FindOpenLot(id string) (OpenLot, bool) {
	for _, l := range p.OpenLots {
		if l.ID == id {
			return l, true
		}
	}
	return OpenLot{}, false
}

// PositionSummary is the condensed per-instrument view used by listings.
type PositionSummary struct {
	Key          string    `json:"key"`
	Name         string    `json:"name"`
	Exchange     string    `json:"exchange"`
	Class        string    `json:"class"`
	OpenQuantity float64   `json:"openQuantity"`
	AverageCost  float64   `json:"averageCost"`
	InvestedCost float64   `json:"investedCost"`
	RealisedGain float64   `json:"realisedGain"`
	OpenLots     int       `json:"openLots"`
	ClosedLots   int       `json:"closedLots"`
	AsOf         time.Time `json:"asOf"`
}
