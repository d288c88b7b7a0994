// Package fifo matches sell events against open buy lots, oldest lot first.
package fifo

import (
	"sort"

	"github.com/ndewijer/Investment-Ledger-Backend/internal/model"
)

// Result is the outcome of one matching pass.
type Result struct {
	// OpenLots holds the lots with quantity left, oldest first.
	OpenLots []model.OpenLot
	// ClosedLots holds one record per (lot, sell) pairing, in sell order.
	ClosedLots []model.ClosedLot
	// Unmatched is the sell quantity that found no open lot. Callers validate sells before
	// writing them, so a non-zero value only comes from hand-edited ledgers.
	Unmatched float64
}

// Match consumes sells from lots in date order. Both inputs may be unsorted, but events sharing
// a date keep their input order, so callers pass same-day lots and sells oldest first.
// Neither input slice is modified.
//
// Each partial consumption emits a closed lot with gain (sell price - lot price) * quantity.
// A sell may span several lots and a lot may be split across several sells.
func Match(lots []model.OpenLot, sells []model.LedgerEvent) Result {
	open := make([]model.OpenLot, len(lots))
	copy(open, lots)
	sort.SliceStable(open, func(i, j int) bool { return open[i].Date.Before(open[j].Date) })

	ordered := make([]model.LedgerEvent, len(sells))
	copy(ordered, sells)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Date.Before(ordered[j].Date) })

	var res Result
	cursor := 0
	for _, sell := range ordered {
		need := sell.Quantity
		for need > model.QuantityEpsilon && cursor < len(open) {
			lot := &open[cursor]
			if lot.Exhausted() {
				cursor++
				continue
			}

			take := min(lot.RemainingQuantity, need)
			lot.RemainingQuantity -= take
			need -= take
			if lot.RemainingQuantity <= model.QuantityEpsilon {
				lot.RemainingQuantity = 0
			}

			res.ClosedLots = append(res.ClosedLots, model.ClosedLot{
				ID:        model.LotID(lot.ID, sell.ID),
				BuyLotID:  lot.ID,
				BuyDate:   lot.Date,
				BuyPrice:  lot.Price,
				SellDate:  sell.Date,
				SellPrice: sell.Price,
				Quantity:  take,
				Gain:      (sell.Price - lot.Price) * take,
				Source:    model.SourceSellRow,
			})
		}
		if need > model.QuantityEpsilon {
			res.Unmatched += need
		}
	}

	for _, lot := range open {
		if !lot.Exhausted() {
			res.OpenLots = append(res.OpenLots, lot)
		}
	}
	return res
}
