package service

import (
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"

	"github.com/ndewijer/Investment-Ledger-Backend/internal/fifo"
	"github.com/ndewijer/Investment-Ledger-Backend/internal/model"
	"github.com/ndewijer/Investment-Ledger-Backend/internal/repository"
	"github.com/ndewijer/Investment-Ledger-Backend/internal/workbook"
)

// PositionEngine derives the open and closed lots of one instrument from its ledger files.
// It performs file I/O only; it holds no state between derivations and never touches the network.
type PositionEngine struct {
	repo *repository.InstrumentRepository
	log  zerolog.Logger
}

// NewPositionEngine creates a new PositionEngine reading through repo.
func NewPositionEngine(repo *repository.InstrumentRepository, log zerolog.Logger) *PositionEngine {
	return &PositionEngine{
		repo: repo,
		log:  log.With().Str("service", "position_engine").Logger(),
	}
}

// Derive reads every file of inst and assembles its position.
//
// Each buy row becomes one of:
//   - an open lot, when the file records no sale for it
//   - a closed lot from the realised block, plus an open lot for any units the block left unsold
//
// Sell rows are collected only from files without a realised block, or when the remark carries
// the application marker. In legacy files a hand-entered sell and the realised block of its buy
// row describe the same sale, so taking both would count it twice.
//
// The open lots and collected sells are then FIFO-matched across all files together. Files are
// walked archival first and each sheet from its bottom row up, so events sharing a date reach
// the matcher in the order they were traded.
//
// Derivation never fails: unreadable files are logged and listed in Position.SkippedFiles, and an
// instrument with no readable file yields an empty position.
func (e *PositionEngine) Derive(inst model.Instrument) model.Position {
	pos := model.Position{
		Instrument: inst,
		AsOf:       e.repo.ModTime(inst),
	}

	var (
		lots         []model.OpenLot
		sells        []model.LedgerEvent
		columnClosed []model.ClosedLot
		meta         model.InstrumentMeta
		haveMeta     bool
	)

	for _, path := range chronologicalFiles(inst) {
		sheet, err := workbook.Read(path)
		if err != nil {
			e.log.Warn().Err(err).Str("instrument", inst.Key).Str("file", filepath.Base(path)).Msg("skipping unreadable ledger file")
			pos.SkippedFiles = append(pos.SkippedFiles, path)
			continue
		}

		// Metadata of the primary file wins over archival files.
		if sheet.Meta.Name != "" || sheet.Meta.Code != "" {
			if !haveMeta || path == inst.PrimaryFile {
				meta, haveMeta = sheet.Meta, true
			}
		}
		if sheet.Dropped > 0 {
			e.log.Debug().Str("instrument", inst.Key).Str("file", filepath.Base(path)).Int("rows", sheet.Dropped).Msg("dropped malformed rows")
		}
		pos.Dividends = append(pos.Dividends, sheet.Dividends...)

		legacy := sheet.Realised != nil
		for i := len(sheet.Rows) - 1; i >= 0; i-- {
			row := sheet.Rows[i]
			ev := row.Event
			switch row.Kind {
			case workbook.KindOpenBuy:
				ev.ID = eventID(e.repo.Dir(), inst.Key, ev)
				pos.Fingerprints = append(pos.Fingerprints, model.FingerprintOf(ev))
				lots = append(lots, openLot(ev, ev.Quantity))

			case workbook.KindColumnClosedBuy:
				ev.ID = eventID(e.repo.Dir(), inst.Key, ev)
				pos.Fingerprints = append(pos.Fingerprints, model.FingerprintOf(ev))
				lot := openLot(ev, ev.Quantity)
				sold := min(row.Sale.Units, ev.Quantity)
				columnClosed = append(columnClosed, model.ClosedLot{
					ID:        model.LotID(lot.ID, string(model.SourceRealisedColumns)),
					BuyLotID:  lot.ID,
					BuyDate:   ev.Date,
					BuyPrice:  ev.Price,
					SellDate:  row.Sale.Date,
					SellPrice: row.Sale.Price,
					Quantity:  sold,
					Gain:      (row.Sale.Price - ev.Price) * sold,
					Source:    model.SourceRealisedColumns,
				})
				if residual := ev.Quantity - sold; residual > model.QuantityEpsilon {
					lot.RemainingQuantity = residual
					lots = append(lots, lot)
				}

			case workbook.KindRowSell:
				ev.ID = eventID(e.repo.Dir(), inst.Key, ev)
				pos.Fingerprints = append(pos.Fingerprints, model.FingerprintOf(ev))
				if !legacy || workbook.HasAppMarker(ev.Remark) {
					sells = append(sells, ev)
				}
			}
		}
	}

	matched := fifo.Match(lots, sells)
	if matched.Unmatched > model.QuantityEpsilon {
		e.log.Warn().Str("instrument", inst.Key).Float64("quantity", matched.Unmatched).Msg("sell quantity exceeds open lots")
	}

	closed := append(columnClosed, matched.ClosedLots...)
	sort.SliceStable(closed, func(i, j int) bool { return closed[i].SellDate.Before(closed[j].SellDate) })
	sort.SliceStable(pos.Dividends, func(i, j int) bool { return pos.Dividends[i].Date.Before(pos.Dividends[j].Date) })

	pos.OpenLots = matched.OpenLots
	pos.ClosedLots = closed
	pos.UnmatchedSellQuantity = matched.Unmatched
	applyMeta(&pos.Instrument, meta)
	return pos
}

// chronologicalFiles orders the files of inst oldest first: archival files by name, then the
// primary file.
func chronologicalFiles(inst model.Instrument) []string {
	files := make([]string, 0, len(inst.ArchiveFiles)+1)
	files = append(files, inst.ArchiveFiles...)
	if inst.PrimaryFile != "" {
		files = append(files, inst.PrimaryFile)
	}
	return files
}

func openLot(ev model.LedgerEvent, remaining float64) model.OpenLot {
	return model.OpenLot{
		ID:                ev.ID,
		Date:              ev.Date,
		Exchange:          ev.Exchange,
		Price:             ev.Price,
		OriginalQuantity:  ev.Quantity,
		RemainingQuantity: remaining,
		Remark:            ev.Remark,
		File:              ev.File,
		Row:               ev.Row,
	}
}

// applyMeta fills the display fields of inst from the metadata sheet, keeping the key as the
// fallback code and inferring the class when the sheet does not name one.
func applyMeta(inst *model.Instrument, meta model.InstrumentMeta) {
	if meta.Name != "" {
		inst.Name = meta.Name
	}
	if meta.Code != "" {
		inst.Code = meta.Code
	}
	if meta.Exchange != "" {
		inst.Exchange = meta.Exchange
	}
	if inst.Name == "" {
		inst.Name = inst.Key
	}

	switch meta.Class {
	case model.ClassEquity, model.ClassFund:
		inst.Class = meta.Class
	default:
		inst.Class = inferClass(inst.Code, inst.Exchange)
	}
}
