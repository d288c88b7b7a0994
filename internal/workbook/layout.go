// Package workbook is the file-format adapter for per-instrument ledger spreadsheets.
// It turns a workbook into classified rows and performs the few mutations the ledger
// writer needs (create, insert under the header, remove a row), always saving atomically.
package workbook

import "strings"

// Sheet names used by ledgers created by this package. Hand-made ledgers may name the
// event sheet differently; the reader then falls back to the first non-metadata sheet.
const (
	LedgerSheet   = "Ledger"
	MetadataSheet = "Metadata"
)

// AppMarker is appended to the remark of rows written by the application. A sell row
// carrying it is always taken into account, even next to a legacy realised block.
const AppMarker = "[app]"

const (
	headerScanRows = 10
	headerScanCols = 10
	realisedWidth  = 6
	dateFormat     = "dd-mm-yyyy"
)

// dividendExchanges are the exchange-column sentinels marking a dividend row.
var dividendExchanges = map[string]bool{"div": true, "dividend": true}

// Core column positions, relative to the date column, used when a header label is missing.
const (
	colDate = iota
	colExchange
	colAction
	colQuantity
	colPrice
	colCost
	colRemarks
	colTax
	colCharges
	coreColumns
)

// HeaderLabels are the header cells written by Create, in column order.
var HeaderLabels = []string{"Date", "Exchange", "Action", "Quantity", "Price", "Cost", "Remarks", "Tax", "Additional Charges"}

var columnAliases = [coreColumns][]string{
	colDate:     {"date"},
	colExchange: {"exchange", "exch"},
	colAction:   {"action", "type"},
	colQuantity: {"quantity", "qty", "units"},
	colPrice:    {"price", "rate", "nav"},
	colCost:     {"cost", "amount", "total"},
	colRemarks:  {"remarks", "remark", "notes"},
	colTax:      {"tax", "stt"},
	colCharges:  {"additional charges", "charges"},
}

// Layout is the 0-based column index of every core column of one sheet, resolved once per
// file. A value of -1 means the column is absent.
type Layout struct {
	HeaderRow int // 0-based index of the header row
	Columns   [coreColumns]int
}

// Col returns the index of a core column or -1.
func (l Layout) Col(c int) int {
	return l.Columns[c]
}

func normalizeLabel(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// resolveLayout maps header labels to core columns. The first matching label left of the
// realised block wins; labels that are missing fall back to their position relative to the
// date column, except for the optional tax and charges columns.
func resolveLayout(header []string, headerRow, dateCol int, realisedStart int) Layout {
	layout := Layout{HeaderRow: headerRow}
	for i := range layout.Columns {
		layout.Columns[i] = -1
	}

	limit := len(header)
	if realisedStart >= 0 && realisedStart < limit {
		limit = realisedStart
	}

	for col := 0; col < limit; col++ {
		label := normalizeLabel(header[col])
		if label == "" {
			continue
		}
		for c, aliases := range columnAliases {
			if layout.Columns[c] != -1 {
				continue
			}
			for _, alias := range aliases {
				if label == alias {
					layout.Columns[c] = col
					break
				}
			}
		}
	}

	layout.Columns[colDate] = dateCol
	for c := colExchange; c <= colRemarks; c++ {
		if layout.Columns[c] == -1 {
			layout.Columns[c] = dateCol + c
		}
	}
	return layout
}

// cell returns the trimmed value at col, or "" when the row is shorter.
func cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}
