package workbook

import (
	"strings"
	"time"
)

// RealisedColumns locates the legacy realised block of one sheet. Older ledgers record a
// sale on the original buy row, in extra columns whose offset drifts between files.
// Indexes are 0-based; -1 means the sub-column is absent.
type RealisedColumns struct {
	LabelRow int
	Start    int
	Price    int
	Date     int
	Gain     int
	Units    int
}

// RealisedSale is the sale recorded in the realised block of one buy row.
type RealisedSale struct {
	Price float64
	Date  time.Time
	Gain  float64
	Units float64
}

// detectRealised looks for a cell reading exactly "Realised" in the rows up to the header and
// maps the sub-header row beneath it. "UnRealised" and similar labels never match.
func detectRealised(rows [][]string, headerRow int) *RealisedColumns {
	for r := 0; r <= headerRow && r+1 < len(rows); r++ {
		for c, v := range rows[r] {
			if !strings.EqualFold(strings.TrimSpace(v), "realised") {
				continue
			}
			if rc := mapRealised(rows[r], rows[r+1], r, c); rc != nil {
				return rc
			}
		}
	}
	return nil
}

func mapRealised(labelRow, subHeader []string, r, start int) *RealisedColumns {
	rc := &RealisedColumns{LabelRow: r, Start: start, Price: -1, Date: -1, Gain: -1, Units: -1}

	end := start + realisedWidth
	for c := start + 1; c < end && c < len(labelRow); c++ {
		if strings.TrimSpace(labelRow[c]) != "" {
			end = c
			break
		}
	}

	for c := start; c < end && c < len(subHeader); c++ {
		label := normalizeLabel(subHeader[c])
		switch {
		case label == "":
		case strings.Contains(label, "price") || strings.Contains(label, "rate"):
			if rc.Price == -1 {
				rc.Price = c
			}
		case strings.Contains(label, "date"):
			if rc.Date == -1 {
				rc.Date = c
			}
		case strings.Contains(label, "gain") || strings.Contains(label, "profit"):
			if rc.Gain == -1 {
				rc.Gain = c
			}
		case strings.Contains(label, "unit") || strings.Contains(label, "qty") || strings.Contains(label, "quantity"):
			if rc.Units == -1 {
				rc.Units = c
			}
		}
	}

	if rc.Units == -1 && rc.Price == -1 {
		return nil
	}
	return rc
}

// sale reads the realised block of a buy row. It returns nil when the row carries no sale.
// Missing units mean the whole lot was sold; a missing price is recovered from the gain.
func (rc *RealisedColumns) sale(row []string, quantity, buyPrice float64) *RealisedSale {
	units := optionalNumber(cell(row, rc.Units))
	price := optionalNumber(cell(row, rc.Price))
	gain := optionalNumber(cell(row, rc.Gain))

	if units <= 0 && price <= 0 && gain == 0 {
		return nil
	}
	if units <= 0 || units > quantity {
		units = quantity
	}
	if price <= 0 && gain != 0 {
		price = buyPrice + gain/units
	}
	if price <= 0 {
		return nil
	}

	s := &RealisedSale{Price: price, Gain: gain, Units: units}
	if d, err := ParseDate(cell(row, rc.Date)); err == nil {
		s.Date = d
	}
	return s
}
