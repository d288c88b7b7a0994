package workbook

// findHeader scans the leading rows for one holding both the date and the action marker in
// its leading columns. It returns the 0-based row and the date column.
func findHeader(rows [][]string) (row, dateCol int, ok bool) {
	for r := 0; r < len(rows) && r < headerScanRows; r++ {
		dateCol, actionCol := -1, -1
		for c := 0; c < len(rows[r]) && c < headerScanCols; c++ {
			switch normalizeLabel(rows[r][c]) {
			case "date":
				if dateCol == -1 {
					dateCol = c
				}
			case "action":
				if actionCol == -1 {
					actionCol = c
				}
			}
		}
		if dateCol >= 0 && actionCol >= 0 {
			return r, dateCol, true
		}
	}
	return -1, -1, false
}
