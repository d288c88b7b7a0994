package service

import (
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Investment-Ledger-Backend/internal/model"
)

// RoundingPrecision is the scale used when rounding monetary values in summaries.
const RoundingPrecision = 100

// round rounds a float64 value to two decimal places using the package RoundingPrecision constant.
// This function is used for summary values in API responses; ledger values are stored unrounded.
//
// Example:
//
//	round(123.456789)  // returns 123.46
//	round(1.994)       // returns 1.99
func round(value float64) float64 {
	return math.Round(value*RoundingPrecision) / RoundingPrecision
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// totalCost returns quantity * price rounded to paise, computed in decimal so that
// 3 * 0.1 is stored as 0.3 rather than 0.30000000000000004.
func totalCost(quantity, price float64) float64 {
	cost, _ := decimal.NewFromFloat(quantity).Mul(decimal.NewFromFloat(price)).Round(2).Float64()
	return cost
}

// eventID returns the identifier of a buy or sell event of instrument key, stored under the
// ledger directory dir. A buy event's identifier is also the identifier of its lot.
// Ordinal counts from the bottom of the sheet, so rows inserted under the header never shift it.
func eventID(dir, key string, e model.LedgerEvent) string {
	return model.LotID(
		key,
		strings.ToUpper(e.Exchange),
		e.Date.Format("2006-01-02"),
		strconv.FormatFloat(e.Price, 'f', -1, 64),
		ledgerRelPath(dir, e.File),
		strconv.Itoa(e.Ordinal),
	)
}

// ledgerRelPath returns file relative to dir, lower-cased with forward slashes, so that a
// primary and an archival file sharing a name stay distinct.
func ledgerRelPath(dir, file string) string {
	rel, err := filepath.Rel(dir, file)
	if err != nil {
		rel = filepath.Base(file)
	}
	return strings.ToLower(filepath.ToSlash(rel))
}

var fundExchanges = map[string]bool{"MF": true, "AMFI": true}

// inferClass guesses the instrument class when the metadata sheet does not record it.
// Mutual-fund scheme codes are numeric and carry no exchange; BSE scrip codes are numeric too,
// so anything listed on an exchange is an equity.
func inferClass(code, exchange string) model.InstrumentClass {
	if exch, symbol, found := strings.Cut(code, ":"); found {
		code, exchange = symbol, exch
	}
	if code == "" || (exchange != "" && !fundExchanges[strings.ToUpper(exchange)]) {
		return model.ClassEquity
	}
	for _, r := range code {
		if !unicode.IsDigit(r) {
			return model.ClassEquity
		}
	}
	return model.ClassFund
}
