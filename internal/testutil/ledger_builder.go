package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/ndewijer/Investment-Ledger-Backend/internal/model"
)

// Legacy ledgers carry a Realised block starting at column J and an UnRealised block at column P.
const (
	realisedCol   = 9
	unrealisedCol = 15
)

var headerLabels = []interface{}{"Date", "Exchange", "Action", "Quantity", "Price", "Cost", "Remarks", "Tax", "Additional Charges"}

// LedgerBuilder provides a fluent interface for writing ledger workbooks in tests.
// Rows are written top to bottom in the order they are added, so add the newest row first
// to mimic a ledger maintained by the writer.
//
// Example usage:
//
//	// Current-format ledger with two buys and a sell
//	path := testutil.NewLedger().
//	    WithMeta(model.InstrumentMeta{Name: "Infosys", Code: "NSE:INFY"}).
//	    Sell("10-03-2024", 12, 150, "").
//	    Buy("10-02-2024", 10, 110, "").
//	    Buy("10-01-2024", 10, 100, "").
//	    Save(t, filepath.Join(dir, "INFY.xlsx"))
//
//	// Legacy ledger recording a sale in the realised block
//	path := testutil.NewLedger().
//	    Legacy().
//	    RealisedBuy("01-01-2020", 10, 100, "01-06-2020", 150, 10).
//	    Save(t, path)
type LedgerBuilder struct {
	sheetName  string
	meta       *model.InstrumentMeta
	legacy     bool
	unrealised bool
	leading    int
	rows       [][]interface{}
}

// NewLedger creates a LedgerBuilder for a current-format ledger with no rows.
func NewLedger() *LedgerBuilder {
	return &LedgerBuilder{sheetName: "Ledger"}
}

// WithSheetName names the event sheet.
func (b *LedgerBuilder) WithSheetName(name string) *LedgerBuilder {
	b.sheetName = name
	return b
}

// WithMeta adds a metadata sheet.
func (b *LedgerBuilder) WithMeta(meta model.InstrumentMeta) *LedgerBuilder {
	b.meta = &meta
	return b
}

// WithLeadingRows puts n title rows above the header.
func (b *LedgerBuilder) WithLeadingRows(n int) *LedgerBuilder {
	b.leading = n
	return b
}

// Legacy adds the Realised block label and sub-headers.
func (b *LedgerBuilder) Legacy() *LedgerBuilder {
	b.legacy = true
	return b
}

// WithUnrealised adds an UnRealised block next to the Realised block. Open buys get values in
// it, which readers must ignore.
func (b *LedgerBuilder) WithUnrealised() *LedgerBuilder {
	b.legacy = true
	b.unrealised = true
	return b
}

// Buy adds a buy row. Dates are day-month-year text.
func (b *LedgerBuilder) Buy(date string, quantity, price float64, remark string) *LedgerBuilder {
	row := []interface{}{date, "NSE", "Buy", quantity, price, quantity * price, remark}
	if b.unrealised {
		row = padTo(row, unrealisedCol)
		row = append(row, price*1.1, quantity*price*0.1)
	}
	b.rows = append(b.rows, row)
	return b
}

// Sell adds a sell row.
func (b *LedgerBuilder) Sell(date string, quantity, price float64, remark string) *LedgerBuilder {
	b.rows = append(b.rows, []interface{}{date, "NSE", "Sell", quantity, price, quantity * price, remark})
	return b
}

// RealisedBuy adds a legacy buy row whose sale of units at salePrice is recorded in the
// Realised block.
func (b *LedgerBuilder) RealisedBuy(date string, quantity, price float64, saleDate string, salePrice, units float64) *LedgerBuilder {
	row := padTo([]interface{}{date, "NSE", "Buy", quantity, price, quantity * price, ""}, realisedCol)
	row = append(row, salePrice, saleDate, (salePrice-price)*units, units)
	b.rows = append(b.rows, row)
	return b
}

// Dividend adds a dividend row.
func (b *LedgerBuilder) Dividend(date string, amount float64) *LedgerBuilder {
	b.rows = append(b.rows, []interface{}{date, "DIV", "", "", "", amount, "dividend"})
	return b
}

// Row adds a row with arbitrary cells, starting at column A.
func (b *LedgerBuilder) Row(cells ...interface{}) *LedgerBuilder {
	b.rows = append(b.rows, cells)
	return b
}

// Save writes the workbook to path, creating parent directories, and returns path.
func (b *LedgerBuilder) Save(t *testing.T, path string) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), b.sheetName); err != nil {
		t.Fatalf("Failed to name sheet: %v", err)
	}

	rowNum := 1
	setRow := func(cells []interface{}) {
		addr, _ := excelize.CoordinatesToCellName(1, rowNum)
		if err := f.SetSheetRow(b.sheetName, addr, &cells); err != nil {
			t.Fatalf("Failed to write row %d: %v", rowNum, err)
		}
		rowNum++
	}

	for i := 0; i < b.leading; i++ {
		setRow([]interface{}{"Transactions"})
	}

	header := append([]interface{}(nil), headerLabels...)
	if b.legacy {
		label := padTo(nil, realisedCol)
		label = append(label, "Realised")
		if b.unrealised {
			label = padTo(label, unrealisedCol)
			label = append(label, "UnRealised")
		}
		setRow(label)

		header = padTo(header, realisedCol)
		header = append(header, "Price", "Date", "Gain", "Units")
		if b.unrealised {
			header = padTo(header, unrealisedCol)
			header = append(header, "Price", "Gain")
		}
	}
	setRow(header)

	for _, row := range b.rows {
		setRow(row)
	}

	if b.meta != nil {
		if _, err := f.NewSheet("Metadata"); err != nil {
			t.Fatalf("Failed to create metadata sheet: %v", err)
		}
		metaRows := [][]interface{}{
			{"Name", b.meta.Name},
			{"Code", b.meta.Code},
			{"Exchange", b.meta.Exchange},
			{"Class", string(b.meta.Class)},
		}
		for i, row := range metaRows {
			addr, _ := excelize.CoordinatesToCellName(1, i+1)
			if err := f.SetSheetRow("Metadata", addr, &row); err != nil {
				t.Fatalf("Failed to write metadata: %v", err)
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("Failed to save workbook: %v", err)
	}
	return path
}

// padTo extends row with empty cells up to column index col.
func padTo(row []interface{}, col int) []interface{} {
	for len(row) < col {
		row = append(row, nil)
	}
	return row
}

// LedgerRowCount returns the number of non-empty rows on the named sheet of the workbook at path.
func LedgerRowCount(t *testing.T, path, sheet string) int {
	t.Helper()

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("Failed to open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		t.Fatalf("Failed to read rows: %v", err)
	}
	count := 0
	for _, r := range rows {
		if len(r) > 0 {
			count++
		}
	}
	return count
}

// WriteCorruptFile writes bytes that are not a workbook to path.
func WriteCorruptFile(t *testing.T, path string) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte("not a workbook"), 0o600); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	return path
}
