package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog"

	"github.com/ndewijer/Investment-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Investment-Ledger-Backend/internal/model"
	"github.com/ndewijer/Investment-Ledger-Backend/internal/workbook"
)

// ImportRecord is one normalized transaction as produced by the statement parsers.
// Fields are kept as text so that a bad value fails only its own record.
type ImportRecord struct {
	Date       string `csv:"date"`
	Action     string `csv:"action"`
	Instrument string `csv:"instrument"`
	Quantity   string `csv:"quantity"`
	Price      string `csv:"price"`
	TotalCost  string `csv:"total_cost"`
	Remark     string `csv:"remark"`
}

// requiredImportHeaders must all appear in the header line of an import file.
var requiredImportHeaders = []string{"date", "action", "instrument", "quantity", "price"}

// ImportIssue describes a record that was not written.
type ImportIssue struct {
	Line       int    `json:"line"`
	Instrument string `json:"instrument"`
	Reason     string `json:"reason"`
}

// ImportResult summarizes one import run.
type ImportResult struct {
	Imported int           `json:"imported"`
	Skipped  []ImportIssue `json:"skipped"`
	Failed   []ImportIssue `json:"failed"`
}

// ImportService feeds normalized transaction records into the ledger through the writer.
type ImportService struct {
	writer    *LedgerWriter
	positions *PositionService
	log       zerolog.Logger
}

// NewImportService creates a new ImportService.
func NewImportService(writer *LedgerWriter, positions *PositionService, log zerolog.Logger) *ImportService {
	return &ImportService{
		writer:    writer,
		positions: positions,
		log:       log.With().Str("service", "import_service").Logger(),
	}
}

// ParseRecords reads CSV records with a header line naming at least date, action, instrument,
// quantity and price. Column order is free and unknown columns are ignored.
//
// Returns apperrors.ErrInvalidCSVHeaders if a required column is missing.
func ParseRecords(r io.Reader) ([]ImportRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read import file: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\ufeff"))

	header, err := csv.NewReader(bytes.NewReader(data)).Read()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidCSVHeaders, err)
	}
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[strings.ToLower(strings.TrimSpace(h))] = true
	}
	var missing []string
	for _, h := range requiredImportHeaders {
		if !present[h] {
			missing = append(missing, h)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", apperrors.ErrInvalidCSVHeaders, strings.Join(missing, ", "))
	}

	var records []ImportRecord
	if err := gocsv.Unmarshal(bytes.NewReader(data), &records); err != nil {
		return nil, fmt.Errorf("failed to parse import file: %w", err)
	}
	return records, nil
}

// Import parses r and appends every record through the writer, in file order.
//
// A record whose fingerprint already exists in its instrument's ledger is skipped unless
// allowDuplicates is set. A record that fails to parse or is rejected by the writer is reported
// in the result and does not stop the remaining records.
//
// Returns an error only when the file itself cannot be parsed or ctx is cancelled.
func (s *ImportService) Import(ctx context.Context, r io.Reader, allowDuplicates bool) (ImportResult, error) {
	records, err := ParseRecords(r)
	if err != nil {
		return ImportResult{}, err
	}

	result := ImportResult{Skipped: []ImportIssue{}, Failed: []ImportIssue{}}
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		// Line 1 is the header.
		line := i + 2
		issue := ImportIssue{Line: line, Instrument: rec.Instrument}

		req, err := rec.appendRequest()
		if err != nil {
			issue.Reason = err.Error()
			result.Failed = append(result.Failed, issue)
			continue
		}

		if !allowDuplicates {
			check, err := s.positions.FindDuplicates(rec.Instrument, req.Date, req.Action, req.Quantity, req.Price)
			if err != nil && !errors.Is(err, apperrors.ErrInvalidInstrumentKey) {
				issue.Reason = err.Error()
				result.Failed = append(result.Failed, issue)
				continue
			}
			if check.Matches > 0 {
				issue.Reason = apperrors.ErrDuplicateEntry.Error()
				result.Skipped = append(result.Skipped, issue)
				continue
			}
		}

		if _, err := s.writer.Append(ctx, rec.Instrument, req); err != nil {
			issue.Reason = err.Error()
			result.Failed = append(result.Failed, issue)
			continue
		}
		result.Imported++
	}

	s.log.Info().
		Int("imported", result.Imported).
		Int("skipped", len(result.Skipped)).
		Int("failed", len(result.Failed)).
		Msg("import finished")
	return result, nil
}

// appendRequest converts the text fields of rec into a writer request.
func (rec ImportRecord) appendRequest() (AppendRequest, error) {
	date, err := workbook.ParseDate(rec.Date)
	if err != nil {
		return AppendRequest{}, fmt.Errorf("%w: date %q", apperrors.ErrInvalidEvent, rec.Date)
	}
	action := model.ParseAction(rec.Action)
	if action == model.ActionOther {
		return AppendRequest{}, fmt.Errorf("%w: action %q", apperrors.ErrInvalidEvent, rec.Action)
	}
	quantity, err := workbook.ParseNumber(rec.Quantity)
	if err != nil {
		return AppendRequest{}, fmt.Errorf("%w: quantity %q", apperrors.ErrInvalidEvent, rec.Quantity)
	}
	price, err := workbook.ParseNumber(rec.Price)
	if err != nil {
		return AppendRequest{}, fmt.Errorf("%w: price %q", apperrors.ErrInvalidEvent, rec.Price)
	}

	req := AppendRequest{
		Date:     date,
		Action:   action,
		Quantity: quantity,
		Price:    price,
		Remark:   strings.TrimSpace(rec.Remark),
	}
	if strings.TrimSpace(rec.TotalCost) != "" {
		cost, err := workbook.ParseNumber(rec.TotalCost)
		if err != nil {
			return AppendRequest{}, fmt.Errorf("%w: total_cost %q", apperrors.ErrInvalidEvent, rec.TotalCost)
		}
		req.Cost = &cost
	}
	return req, nil
}
