package workbook

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// dateLayouts are the day-month-year string formats accepted in the date column, plus ISO.
var dateLayouts = []string{
	"02-01-2006",
	"02/01/2006",
	"02-Jan-2006",
	"02 Jan 2006",
	"2-1-2006",
	"2/1/2006",
	"2006-01-02",
}

// ParseDate parses a date cell read in raw mode: either a native spreadsheet serial number
// or one of the accepted text layouts. The result is a UTC midnight.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if !(serial > 0) || math.IsInf(serial, 0) {
			return time.Time{}, fmt.Errorf("invalid date serial %q", s)
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, fmt.Errorf("failed to parse date: %w", err)
		}
		return truncateDay(t), nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return truncateDay(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("failed to parse date %q", s)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

var numberReplacer = strings.NewReplacer(",", "", " ", "", "₹", "", "Rs.", "", "Rs", "", "INR", "")

// ParseNumber parses a numeric cell, tolerating thousands separators and currency symbols.
// NaN and infinities are rejected.
func ParseNumber(s string) (float64, error) {
	s = numberReplacer.Replace(strings.TrimSpace(s))
	if s == "" {
		return 0, fmt.Errorf("empty number")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("number %q is not finite", s)
	}
	return v, nil
}

// optionalNumber parses s, returning 0 for empty or non-numeric cells.
func optionalNumber(s string) float64 {
	v, err := ParseNumber(s)
	if err != nil {
		return 0
	}
	return v
}
