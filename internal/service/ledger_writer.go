package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ndewijer/Investment-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Investment-Ledger-Backend/internal/model"
	"github.com/ndewijer/Investment-Ledger-Backend/internal/repository"
	"github.com/ndewijer/Investment-Ledger-Backend/internal/workbook"
)

// AppendRequest is one event to record, either entered by hand or produced by an importer.
type AppendRequest struct {
	Date     time.Time
	Action   model.Action
	Quantity float64
	Price    float64
	// Cost overrides quantity * price when the true cost includes fees, e.g. on imported records.
	Cost     *float64
	Exchange string
	Remark   string
	Tax      float64
	Charges  float64

	// Name and Class seed the metadata sheet when the primary file has to be created.
	Name  string
	Class model.InstrumentClass
}

// LedgerWriter is the only path that mutates ledger files.
//
// Writes to one instrument are serialized; writes to different instruments run independently.
// Every write saves the file atomically and then invalidates the instrument in the cache that
// readers consult, whether or not the write succeeded.
type LedgerWriter struct {
	repo  *repository.InstrumentRepository
	cache *PositionCache
	log   zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLedgerWriter creates a new LedgerWriter invalidating cache after each write.
func NewLedgerWriter(repo *repository.InstrumentRepository, cache *PositionCache, log zerolog.Logger) *LedgerWriter {
	return &LedgerWriter{
		repo:  repo,
		cache: cache,
		log:   log.With().Str("service", "ledger_writer").Logger(),
		locks: make(map[string]*sync.Mutex),
	}
}

// lock acquires the write lock of key and returns its release function.
func (w *LedgerWriter) lock(key string) func() {
	w.mu.Lock()
	l, ok := w.locks[key]
	if !ok {
		l = &sync.Mutex{}
		w.locks[key] = l
	}
	w.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Append records one event in the primary ledger of key, directly under the header.
//
// The primary file is created with a header and metadata sheet if it does not exist yet.
// A sell is validated against the open quantity of the instrument before anything is written,
// and its remark gets the application marker so derivation always counts it.
//
// Returns:
//   - model.LedgerEvent: The event as written, located by file and row
//   - error: apperrors.ErrInvalidEvent for a malformed request, apperrors.ErrInstrumentNotFound
//     for a sell of an unknown instrument, apperrors.ErrInsufficientQuantity for an over-sell,
//     or a wrapped write failure. No event row is written when an error is returned.
func (w *LedgerWriter) Append(ctx context.Context, key string, req AppendRequest) (model.LedgerEvent, error) {
	if err := ctx.Err(); err != nil {
		return model.LedgerEvent{}, err
	}
	key, err := repository.NormalizeKey(key)
	if err != nil {
		return model.LedgerEvent{}, err
	}
	if err := checkRequest(req); err != nil {
		return model.LedgerEvent{}, err
	}

	unlock := w.lock(key)
	defer unlock()
	defer w.cache.Invalidate(key)

	pos, err := w.cache.Get(key)
	exists := err == nil
	if err != nil && !errors.Is(err, apperrors.ErrInstrumentNotFound) {
		return model.LedgerEvent{}, err
	}

	class := req.Class
	exchange := strings.TrimSpace(req.Exchange)
	if exists {
		class = pos.Instrument.Class
		if exchange == "" {
			exchange = pos.Instrument.Exchange
		}
	} else if class == "" {
		class = inferClass(key, exchange)
	}

	if !class.Fractional() && req.Quantity != math.Trunc(req.Quantity) {
		return model.LedgerEvent{}, fmt.Errorf("%w: %s trades in whole units, got %v", apperrors.ErrInvalidEvent, key, req.Quantity)
	}

	if req.Action == model.ActionSell {
		if !exists {
			return model.LedgerEvent{}, fmt.Errorf("%w: %s", apperrors.ErrInstrumentNotFound, key)
		}
		if open := pos.OpenQuantity(); req.Quantity > open+model.QuantityEpsilon {
			return model.LedgerEvent{}, fmt.Errorf("%w: %s holds %v, cannot sell %v", apperrors.ErrInsufficientQuantity, key, open, req.Quantity)
		}
	}

	path := w.repo.PrimaryPath(key)
	if exists && pos.Instrument.PrimaryFile != "" {
		path = pos.Instrument.PrimaryFile
	}
	if !exists || pos.Instrument.PrimaryFile == "" {
		meta := model.InstrumentMeta{Name: req.Name, Code: key, Exchange: exchange, Class: class}
		if exists {
			meta.Name, meta.Code = pos.Instrument.Name, pos.Instrument.Code
		}
		if err := workbook.Create(path, meta); err != nil {
			return model.LedgerEvent{}, fmt.Errorf("%w: %w", apperrors.ErrFailedToAppendEvent, err)
		}
		w.log.Info().Str("instrument", key).Str("file", filepath.Base(path)).Msg("created primary ledger")
	}

	event := model.LedgerEvent{
		Date:     req.Date,
		Exchange: exchange,
		Action:   req.Action,
		Quantity: req.Quantity,
		Price:    req.Price,
		Cost:     totalCost(req.Quantity, req.Price),
		Remark:   strings.TrimSpace(req.Remark),
		Tax:      req.Tax,
		Charges:  req.Charges,
		File:     path,
	}
	if req.Cost != nil {
		event.Cost = *req.Cost
	}
	if event.Action == model.ActionSell {
		event.Remark = workbook.MarkAppOriginated(event.Remark)
	}

	row, err := workbook.Insert(path, event)
	if err != nil {
		return model.LedgerEvent{}, fmt.Errorf("%w: %w", apperrors.ErrFailedToAppendEvent, err)
	}
	event.Row = row

	w.log.Info().
		Str("instrument", key).
		Str("action", string(event.Action)).
		Float64("quantity", event.Quantity).
		Float64("price", event.Price).
		Int("row", row).
		Msg("appended ledger event")
	return event, nil
}

// checkRequest validates the fields of req that do not depend on the ledger.
func checkRequest(req AppendRequest) error {
	switch {
	case req.Date.IsZero():
		return fmt.Errorf("%w: date is required", apperrors.ErrInvalidEvent)
	case req.Action != model.ActionBuy && req.Action != model.ActionSell:
		return fmt.Errorf("%w: action must be Buy or Sell", apperrors.ErrInvalidEvent)
	case !(req.Quantity > 0) || math.IsInf(req.Quantity, 0):
		return fmt.Errorf("%w: quantity must be positive", apperrors.ErrInvalidEvent)
	case !(req.Price > 0) || math.IsInf(req.Price, 0):
		return fmt.Errorf("%w: price must be positive", apperrors.ErrInvalidEvent)
	case req.Cost != nil && !(*req.Cost > 0):
		return fmt.Errorf("%w: cost override must be positive", apperrors.ErrInvalidEvent)
	case req.Tax < 0 || req.Charges < 0:
		return fmt.Errorf("%w: tax and charges cannot be negative", apperrors.ErrInvalidEvent)
	}
	return nil
}

// RemoveLot deletes the buy row backing an open lot. It exists for manual corrections only.
//
// The row is re-read and compared with the lot before deletion, so a row edited by hand since the
// position was derived is never removed by mistake.
//
// Returns apperrors.ErrLotNotFound if no open lot has the identifier, apperrors.ErrLotReadOnly
// if the lot lives in an archival file, apperrors.ErrInsufficientQuantity if sells already matched
// against the lot would be left uncovered, and apperrors.ErrLotChanged if the row changed.
func (w *LedgerWriter) RemoveLot(ctx context.Context, key, lotID string) (model.OpenLot, error) {
	if err := ctx.Err(); err != nil {
		return model.OpenLot{}, err
	}
	key, err := repository.NormalizeKey(key)
	if err != nil {
		return model.OpenLot{}, err
	}

	unlock := w.lock(key)
	defer unlock()
	defer w.cache.Invalidate(key)

	pos, err := w.cache.Get(key)
	if err != nil {
		return model.OpenLot{}, err
	}
	lot, ok := pos.FindOpenLot(lotID)
	if !ok {
		return model.OpenLot{}, fmt.Errorf("%w: %s", apperrors.ErrLotNotFound, lotID)
	}
	if lot.File != pos.Instrument.PrimaryFile {
		return model.OpenLot{}, fmt.Errorf("%w: %s", apperrors.ErrLotReadOnly, filepath.Base(lot.File))
	}

	// Units the realised block records as sold leave with the row; only the rest must stay covered.
	var realised float64
	for _, c := range pos.ClosedLots {
		if c.BuyLotID == lot.ID && c.Source == model.SourceRealisedColumns {
			realised += c.Quantity
		}
	}
	if required := lot.OriginalQuantity - realised; pos.OpenQuantity()+model.QuantityEpsilon < required {
		return model.OpenLot{}, fmt.Errorf("%w: lot %s is already matched against sells", apperrors.ErrInsufficientQuantity, lotID)
	}

	err = workbook.RemoveRow(lot.File, lot.Row, func(e model.LedgerEvent) bool {
		return eventID(w.repo.Dir(), key, e) == lotID
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrLotChanged) {
			return model.OpenLot{}, err
		}
		return model.OpenLot{}, fmt.Errorf("%w: %w", apperrors.ErrFailedToRemoveLot, err)
	}

	w.log.Info().Str("instrument", key).Str("lot", lotID).Int("row", lot.Row).Msg("removed lot")
	return lot, nil
}
