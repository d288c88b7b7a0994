package workbook

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ndewijer/Investment-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Investment-Ledger-Backend/internal/model"
)

// RowKind classifies one ledger row for position derivation.
type RowKind int

const (
	// KindOpenBuy is a buy row with no realised annotation.
	KindOpenBuy RowKind = iota
	// KindColumnClosedBuy is a buy row whose sale is recorded in the realised block.
	KindColumnClosedBuy
	// KindRowSell is an explicit sell row.
	KindRowSell
	// KindIgnored is any other row with content, such as marker rows.
	KindIgnored
)

func (k RowKind) String() string {
	switch k {
	case KindOpenBuy:
		return "open-buy"
	case KindColumnClosedBuy:
		return "column-closed-buy"
	case KindRowSell:
		return "row-sell"
	default:
		return "ignored"
	}
}

// Row is one classified ledger row. Sale is set only for KindColumnClosedBuy.
type Row struct {
	Kind  RowKind
	Event model.LedgerEvent
	Sale  *RealisedSale
}

// Sheet is the parsed event log of one ledger file.
type Sheet struct {
	File      string
	SheetName string
	Meta      model.InstrumentMeta
	HasHeader bool
	Layout    Layout
	Realised  *RealisedColumns
	Rows      []Row
	Dividends []model.Dividend
	Dropped   int
}

// Read opens the workbook at path and classifies its rows.
// A sheet without a header row yields a Sheet with no rows, not an error.
func Read(path string) (*Sheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrWorkbookUnreadable, filepath.Base(path), err)
	}
	defer f.Close()

	return readFile(f, path)
}

func readFile(f *excelize.File, path string) (*Sheet, error) {
	name, err := ledgerSheetName(f)
	if err != nil {
		return nil, err
	}

	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrWorkbookUnreadable, filepath.Base(path), err)
	}

	sheet := &Sheet{
		File:      path,
		SheetName: name,
		Meta:      readMeta(f),
	}

	headerRow, dateCol, ok := findHeader(rows)
	if !ok {
		return sheet, nil
	}
	sheet.HasHeader = true
	sheet.Realised = detectRealised(rows, headerRow)

	realisedStart := -1
	if sheet.Realised != nil {
		realisedStart = sheet.Realised.Start
	}
	sheet.Layout = resolveLayout(rows[headerRow], headerRow, dateCol, realisedStart)

	for i := headerRow + 1; i < len(rows); i++ {
		sheet.classify(rows[i], i, len(rows)-i)
	}
	return sheet, nil
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// classify appends the row at 0-based index i to the sheet. Malformed buy and sell rows are
// counted as dropped and otherwise ignored.
func (s *Sheet) classify(row []string, i, ordinal int) {
	if blank(row) {
		return
	}
	l := s.Layout
	exchange := cell(row, l.Col(colExchange))

	if dividendExchanges[strings.ToLower(exchange)] {
		date, err := ParseDate(cell(row, l.Col(colDate)))
		if err != nil {
			s.Dropped++
			return
		}
		amount := optionalNumber(cell(row, l.Col(colCost)))
		if amount == 0 {
			amount = optionalNumber(cell(row, l.Col(colPrice)))
		}
		s.Dividends = append(s.Dividends, model.Dividend{
			Date:   date,
			Amount: amount,
			Remark: cell(row, l.Col(colRemarks)),
			File:   s.File,
			Row:    i + 1,
		})
		return
	}

	action := model.ParseAction(cell(row, l.Col(colAction)))
	if action == model.ActionOther {
		s.Rows = append(s.Rows, Row{Kind: KindIgnored, Event: model.LedgerEvent{File: s.File, Row: i + 1, Ordinal: ordinal}})
		return
	}

	date, err := ParseDate(cell(row, l.Col(colDate)))
	if err != nil {
		s.Dropped++
		return
	}
	quantity, err := ParseNumber(cell(row, l.Col(colQuantity)))
	if err != nil || quantity <= 0 {
		s.Dropped++
		return
	}
	price, err := ParseNumber(cell(row, l.Col(colPrice)))
	if err != nil || price <= 0 {
		s.Dropped++
		return
	}
	cost := optionalNumber(cell(row, l.Col(colCost)))
	if cost <= 0 {
		cost = quantity * price
	}

	event := model.LedgerEvent{
		Date:     date,
		Exchange: exchange,
		Action:   action,
		Quantity: quantity,
		Price:    price,
		Cost:     cost,
		Remark:   cell(row, l.Col(colRemarks)),
		Tax:      optionalNumber(cell(row, l.Col(colTax))),
		Charges:  optionalNumber(cell(row, l.Col(colCharges))),
		File:     s.File,
		Row:      i + 1,
		Ordinal:  ordinal,
	}

	if action == model.ActionSell {
		s.Rows = append(s.Rows, Row{Kind: KindRowSell, Event: event})
		return
	}

	if s.Realised != nil {
		if sale := s.Realised.sale(row, quantity, price); sale != nil {
			s.Rows = append(s.Rows, Row{Kind: KindColumnClosedBuy, Event: event, Sale: sale})
			return
		}
	}
	s.Rows = append(s.Rows, Row{Kind: KindOpenBuy, Event: event})
}

// ledgerSheetName returns the event-log sheet: the one named Ledger, otherwise the first
// sheet that is not the metadata sheet.
func ledgerSheetName(f *excelize.File) (string, error) {
	var fallback string
	for _, name := range f.GetSheetList() {
		if strings.EqualFold(name, LedgerSheet) {
			return name, nil
		}
		if fallback == "" && !strings.EqualFold(name, MetadataSheet) {
			fallback = name
		}
	}
	if fallback == "" {
		return "", apperrors.ErrNoLedgerSheet
	}
	return fallback, nil
}

func metadataSheetName(f *excelize.File) string {
	for _, name := range f.GetSheetList() {
		if strings.EqualFold(name, MetadataSheet) {
			return name
		}
	}
	return ""
}

// readMeta reads key/value pairs from the metadata sheet. A missing sheet yields zero values.
func readMeta(f *excelize.File) model.InstrumentMeta {
	var meta model.InstrumentMeta
	name := metadataSheetName(f)
	if name == "" {
		return meta
	}
	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return meta
	}

	for _, row := range rows {
		value := cell(row, 1)
		switch normalizeLabel(cell(row, 0)) {
		case "name":
			meta.Name = value
		case "code":
			meta.Code = value
		case "exchange":
			meta.Exchange = value
		case "class":
			meta.Class = model.InstrumentClass(strings.ToLower(value))
		case "last price":
			meta.LastPrice = optionalNumber(value)
		case "52w high":
			meta.High52W = optionalNumber(value)
		case "52w low":
			meta.Low52W = optionalNumber(value)
		case "updated":
			if d, err := ParseDate(value); err == nil {
				meta.UpdatedAt = d
			}
		}
	}

	if meta.Exchange == "" {
		if exch, _, found := strings.Cut(meta.Code, ":"); found {
			meta.Exchange = exch
		}
	}
	return meta
}
