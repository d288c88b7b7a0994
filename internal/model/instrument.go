package model

import "time"

// InstrumentClass distinguishes whole-unit equities from fractional mutual-fund units.
type InstrumentClass string

const (
	ClassEquity InstrumentClass = "equity"
	ClassFund   InstrumentClass = "fund"
)

// Fractional reports whether quantities of this class may carry a fractional part.
func (c InstrumentClass) Fractional() bool {
	return c == ClassFund
}

// Instrument is one traded equity or mutual-fund scheme and the ledger files that hold its history.
// Files are never merged on disk; the primary and archival files are combined at read time.
type Instrument struct {
	Key          string          `json:"key"` // Upper-cased file stem, stable across renames of the display name
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	Exchange     string          `json:"exchange"`
	Class        InstrumentClass `json:"class"`
	PrimaryFile  string          `json:"primaryFile,omitempty"`
	ArchiveFiles []string        `json:"archiveFiles,omitempty"`
}

// Files returns every ledger file of the instrument, primary first.
func (i Instrument) Files() []string {
	files := make([]string, 0, len(i.ArchiveFiles)+1)
	if i.PrimaryFile != "" {
		files = append(files, i.PrimaryFile)
	}
	return append(files, i.ArchiveFiles...)
}

// InstrumentMeta is the identity block stored on the metadata sheet of a ledger file.
type InstrumentMeta struct {
	Name      string
	Code      string
	Exchange  string
	Class     InstrumentClass
	LastPrice float64
	High52W   float64
	Low52W    float64
	UpdatedAt time.Time
}
