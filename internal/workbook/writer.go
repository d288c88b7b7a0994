package workbook

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ndewijer/Investment-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Investment-Ledger-Backend/internal/model"
)

// Create writes a minimal ledger: an event sheet holding only the header row and a metadata
// sheet seeded from meta. An existing file at path is replaced.
func Create(path string, meta model.InstrumentMeta) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), LedgerSheet); err != nil {
		return fmt.Errorf("failed to name ledger sheet: %w", err)
	}
	header := make([]interface{}, len(HeaderLabels))
	for i, label := range HeaderLabels {
		header[i] = label
	}
	if err := f.SetSheetRow(LedgerSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	if _, err := f.NewSheet(MetadataSheet); err != nil {
		return fmt.Errorf("failed to create metadata sheet: %w", err)
	}
	class := meta.Class
	if class == "" {
		class = model.ClassEquity
	}
	metaRows := [][]interface{}{
		{"Name", meta.Name},
		{"Code", meta.Code},
		{"Exchange", meta.Exchange},
		{"Class", string(class)},
		{"Last Price", meta.LastPrice},
		{"52W High", meta.High52W},
		{"52W Low", meta.Low52W},
	}
	for i, row := range metaRows {
		addr, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(MetadataSheet, addr, &row); err != nil {
			return fmt.Errorf("failed to write metadata: %w", err)
		}
	}

	return saveAtomic(f, path)
}

// Insert writes e as a new row directly under the header, keeping the sheet newest-first.
// It returns the 1-based sheet row of the new event.
func Insert(path string, e model.LedgerEvent) (int, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", apperrors.ErrWorkbookUnreadable, filepath.Base(path), err)
	}
	defer f.Close()

	sheet, err := readFile(f, path)
	if err != nil {
		return 0, err
	}
	if !sheet.HasHeader {
		return 0, fmt.Errorf("%w: %s", apperrors.ErrNoHeader, filepath.Base(path))
	}

	rowNum := sheet.Layout.HeaderRow + 2
	if err := f.InsertRows(sheet.SheetName, rowNum, 1); err != nil {
		return 0, fmt.Errorf("failed to insert row: %w", err)
	}
	if err := writeEvent(f, sheet.SheetName, sheet.Layout, rowNum, e); err != nil {
		return 0, err
	}
	if err := saveAtomic(f, path); err != nil {
		return 0, err
	}
	return rowNum, nil
}

func writeEvent(f *excelize.File, sheetName string, l Layout, rowNum int, e model.LedgerEvent) error {
	numFmt := dateFormat
	dateStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
	if err != nil {
		return fmt.Errorf("failed to create date style: %w", err)
	}

	set := func(col int, value interface{}) error {
		if col < 0 {
			return nil
		}
		addr, err := excelize.CoordinatesToCellName(col+1, rowNum)
		if err != nil {
			return err
		}
		return f.SetCellValue(sheetName, addr, value)
	}

	dateAddr, err := excelize.CoordinatesToCellName(l.Col(colDate)+1, rowNum)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, dateAddr, dateAddr, dateStyle); err != nil {
		return fmt.Errorf("failed to style date cell: %w", err)
	}

	type cellValue struct {
		col   int
		value interface{}
	}
	values := []cellValue{
		{l.Col(colDate), e.Date},
		{l.Col(colExchange), e.Exchange},
		{l.Col(colAction), string(e.Action)},
		{l.Col(colQuantity), e.Quantity},
		{l.Col(colPrice), e.Price},
		{l.Col(colCost), e.Cost},
		{l.Col(colRemarks), e.Remark},
	}
	if e.Tax != 0 {
		values = append(values, cellValue{l.Col(colTax), e.Tax})
	}
	if e.Charges != 0 {
		values = append(values, cellValue{l.Col(colCharges), e.Charges})
	}

	for _, v := range values {
		if err := set(v.col, v.value); err != nil {
			return fmt.Errorf("failed to write cell: %w", err)
		}
	}
	return nil
}

// RemoveRow deletes the buy row at the 1-based sheet row after confirming that match still
// accepts it. A row that changed since it was read yields apperrors.ErrLotChanged.
func RemoveRow(path string, row int, match func(model.LedgerEvent) bool) error {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", apperrors.ErrWorkbookUnreadable, filepath.Base(path), err)
	}
	defer f.Close()

	sheet, err := readFile(f, path)
	if err != nil {
		return err
	}

	found := false
	for _, r := range sheet.Rows {
		if r.Event.Row != row {
			continue
		}
		if (r.Kind == KindOpenBuy || r.Kind == KindColumnClosedBuy) && match(r.Event) {
			found = true
		}
		break
	}
	if !found {
		return fmt.Errorf("%w: %s row %d", apperrors.ErrLotChanged, filepath.Base(path), row)
	}

	if err := f.RemoveRow(sheet.SheetName, row); err != nil {
		return fmt.Errorf("failed to remove row: %w", err)
	}
	return saveAtomic(f, path)
}

// saveAtomic writes the workbook to a temporary file in the target directory and renames it
// into place, so readers only ever open a complete file.
func saveAtomic(f *excelize.File, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create ledger directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".ledger-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if _, statErr := os.Stat(tmpName); statErr == nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := f.WriteTo(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync workbook: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close workbook: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

// MarkAppOriginated appends the application marker to a remark unless already present.
func MarkAppOriginated(remark string) string {
	if HasAppMarker(remark) {
		return remark
	}
	return strings.TrimSpace(remark + " " + AppMarker)
}

// HasAppMarker reports whether a remark carries the application marker.
func HasAppMarker(remark string) bool {
	return strings.Contains(strings.ToLower(remark), AppMarker)
}
