package service

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/Investment-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Investment-Ledger-Backend/internal/model"
	"github.com/ndewijer/Investment-Ledger-Backend/internal/testutil"
	"github.com/ndewijer/Investment-Ledger-Backend/internal/workbook"
)

func jan(day int) time.Time {
	return time.Date(2024, time.January, day, 0, 0, 0, 0, time.UTC)
}

func buy(day int, qty, price float64) AppendRequest {
	return AppendRequest{Date: jan(day), Action: model.ActionBuy, Quantity: qty, Price: price}
}

func sellReq(day int, qty, price float64) AppendRequest {
	return AppendRequest{Date: jan(day), Action: model.ActionSell, Quantity: qty, Price: price}
}

// TestLedgerWriter_Append tests recording events in primary ledgers.
//
// WHY: The writer is the only path that changes ledger files. A rejected write must leave the
// file untouched, and an accepted one must be visible to the very next read.
func TestLedgerWriter_Append(t *testing.T) {
	ctx := context.Background()

	t.Run("first buy creates the primary ledger", func(t *testing.T) {
		l, dir := newTestLedger(t)

		req := buy(10, 10, 100)
		req.Name = "New Co"
		event, err := l.Writer.Append(ctx, "newco", req)
		require.NoError(t, err)

		assert.Equal(t, filepath.Join(dir, "NEWCO.xlsx"), event.File)
		assert.Equal(t, 2, event.Row)
		assert.InDelta(t, 1000, event.Cost, 1e-9)

		pos, err := l.Positions.GetPosition("NEWCO")
		require.NoError(t, err)
		assert.Equal(t, "New Co", pos.Instrument.Name)
		assert.Equal(t, model.ClassEquity, pos.Instrument.Class)
		assert.InDelta(t, 10, pos.OpenQuantity(), 1e-9)
	})

	t.Run("over-sell is rejected without writing", func(t *testing.T) {
		l, dir := newTestLedger(t)
		path := testutil.NewLedger().
			Buy("01-01-2024", 10, 100, "").
			Save(t, filepath.Join(dir, "INFY.xlsx"))
		rowsBefore := testutil.LedgerRowCount(t, path, "Ledger")

		_, err := l.Writer.Append(ctx, "INFY", sellReq(5, 15, 120))
		assert.ErrorIs(t, err, apperrors.ErrInsufficientQuantity)
		assert.Equal(t, rowsBefore, testutil.LedgerRowCount(t, path, "Ledger"))
	})

	t.Run("sell of the full holding closes it", func(t *testing.T) {
		l, dir := newTestLedger(t)
		testutil.NewLedger().
			Buy("01-01-2024", 10, 100, "").
			Save(t, filepath.Join(dir, "INFY.xlsx"))

		// Prime the cache so the write has to invalidate it.
		_, err := l.Positions.GetPosition("INFY")
		require.NoError(t, err)

		req := sellReq(5, 10, 120)
		req.Remark = "exit"
		event, err := l.Writer.Append(ctx, "INFY", req)
		require.NoError(t, err)
		assert.Equal(t, "exit [app]", event.Remark)

		pos, err := l.Positions.GetPosition("INFY")
		require.NoError(t, err)
		assert.Zero(t, pos.OpenQuantity())
		require.Len(t, pos.ClosedLots, 1)
		assert.InDelta(t, 200, pos.ClosedLots[0].Gain, 1e-9)

		_, err = l.Writer.Append(ctx, "INFY", sellReq(6, 1, 120))
		assert.ErrorIs(t, err, apperrors.ErrInsufficientQuantity)
	})

	t.Run("sell of an unknown instrument", func(t *testing.T) {
		l, dir := newTestLedger(t)

		_, err := l.Writer.Append(ctx, "GHOST", sellReq(5, 1, 120))
		assert.ErrorIs(t, err, apperrors.ErrInstrumentNotFound)
		_, statErr := os.Stat(filepath.Join(dir, "GHOST.xlsx"))
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("cost override and decimal cost", func(t *testing.T) {
		l, _ := newTestLedger(t)

		req := buy(10, 3, 0.1)
		event, err := l.Writer.Append(ctx, "PENNY", req)
		require.NoError(t, err)
		assert.Equal(t, 0.3, event.Cost)

		cost := 1005.5
		req = buy(11, 10, 100)
		req.Cost = &cost
		event, err = l.Writer.Append(ctx, "PENNY", req)
		require.NoError(t, err)

		sheet, err := workbook.Read(event.File)
		require.NoError(t, err)
		assert.InDelta(t, 1005.5, sheet.Rows[0].Event.Cost, 1e-9)
	})

	t.Run("equities trade in whole units and funds do not", func(t *testing.T) {
		l, _ := newTestLedger(t)

		_, err := l.Writer.Append(ctx, "INFY", buy(10, 1.5, 100))
		assert.ErrorIs(t, err, apperrors.ErrInvalidEvent)

		req := buy(10, 12.345, 50.5)
		req.Class = model.ClassFund
		req.Name = "Axis Bluechip"
		_, err = l.Writer.Append(ctx, "120503", req)
		require.NoError(t, err)

		pos, err := l.Positions.GetPosition("120503")
		require.NoError(t, err)
		assert.Equal(t, model.ClassFund, pos.Instrument.Class)
		assert.InDelta(t, 12.345, pos.OpenQuantity(), 1e-9)
	})

	t.Run("malformed requests", func(t *testing.T) {
		l, _ := newTestLedger(t)

		negativeTax := buy(10, 1, 100)
		negativeTax.Tax = -1
		zeroCost := buy(10, 1, 100)
		zero := 0.0
		zeroCost.Cost = &zero

		for name, req := range map[string]AppendRequest{
			"no date":        {Action: model.ActionBuy, Quantity: 1, Price: 1},
			"no action":      {Date: jan(1), Quantity: 1, Price: 1},
			"zero quantity":  buy(1, 0, 100),
			"negative price": buy(1, 1, -100),
			"negative tax":   negativeTax,
			"zero cost":      zeroCost,
		} {
			_, err := l.Writer.Append(ctx, "INFY", req)
			assert.ErrorIs(t, err, apperrors.ErrInvalidEvent, name)
		}

		_, err := l.Writer.Append(ctx, "../INFY", buy(1, 1, 100))
		assert.ErrorIs(t, err, apperrors.ErrInvalidInstrumentKey)
	})

	t.Run("existing lot identifiers survive appends", func(t *testing.T) {
		l, dir := newTestLedger(t)
		testutil.NewLedger().
			Buy("02-01-2024", 5, 110, "").
			Buy("01-01-2024", 10, 100, "").
			Save(t, filepath.Join(dir, "INFY.xlsx"))

		before, err := l.Positions.GetPosition("INFY")
		require.NoError(t, err)

		_, err = l.Writer.Append(ctx, "INFY", buy(3, 1, 120))
		require.NoError(t, err)

		after, err := l.Positions.GetPosition("INFY")
		require.NoError(t, err)
		require.Len(t, after.OpenLots, 3)
		for _, lot := range before.OpenLots {
			_, ok := after.FindOpenLot(lot.ID)
			assert.True(t, ok, lot.ID)
		}
	})

	t.Run("concurrent appends to one instrument are serialized", func(t *testing.T) {
		l, dir := newTestLedger(t)
		_, err := l.Writer.Append(ctx, "INFY", buy(1, 1, 100))
		require.NoError(t, err)

		var wg sync.WaitGroup
		errs := make([]error, 9)
		for i := range errs {
			i := i
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, errs[i] = l.Writer.Append(ctx, "INFY", buy(2+i, 1, 100))
			}()
		}
		wg.Wait()

		for _, err := range errs {
			assert.NoError(t, err)
		}
		pos, err := l.Positions.GetPosition("INFY")
		require.NoError(t, err)
		assert.InDelta(t, 10, pos.OpenQuantity(), 1e-9)
		assert.Equal(t, 11, testutil.LedgerRowCount(t, filepath.Join(dir, "INFY.xlsx"), "Ledger"))
	})

	t.Run("archive-only instrument gets a primary file", func(t *testing.T) {
		l, dir := newTestLedger(t)
		testutil.NewLedger().
			WithMeta(model.InstrumentMeta{Name: "Wipro", Code: "NSE:WIPRO"}).
			Buy("01-01-2010", 5, 300, "").
			Save(t, filepath.Join(dir, "archive", "WIPRO_2010.xlsx"))

		event, err := l.Writer.Append(ctx, "WIPRO", sellReq(5, 2, 400))
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "WIPRO.xlsx"), event.File)
		assert.Equal(t, "NSE", event.Exchange)

		pos, err := l.Positions.GetPosition("WIPRO")
		require.NoError(t, err)
		assert.Equal(t, "Wipro", pos.Instrument.Name)
		assert.InDelta(t, 3, pos.OpenQuantity(), 1e-9)
	})

	t.Run("cancelled context", func(t *testing.T) {
		l, _ := newTestLedger(t)
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := l.Writer.Append(cancelled, "INFY", buy(1, 1, 100))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

// TestLedgerWriter_RemoveLot tests manual lot removal.
//
// WHY: Removing a buy row rewrites history. It must refuse anything that would leave sells
// uncovered, touch archival files, or delete a row that no longer is the lot the caller saw.
func TestLedgerWriter_RemoveLot(t *testing.T) {
	ctx := context.Background()

	t.Run("removes an unsold lot", func(t *testing.T) {
		l, dir := newTestLedger(t)
		path := testutil.NewLedger().
			Buy("02-01-2024", 5, 110, "").
			Buy("01-01-2024", 10, 100, "").
			Save(t, filepath.Join(dir, "INFY.xlsx"))

		pos, err := l.Positions.GetPosition("INFY")
		require.NoError(t, err)
		var target model.OpenLot
		for _, lot := range pos.OpenLots {
			if lot.Price == 110 {
				target = lot
			}
		}

		removed, err := l.Writer.RemoveLot(ctx, "INFY", target.ID)
		require.NoError(t, err)
		assert.Equal(t, target.ID, removed.ID)
		assert.Equal(t, 2, testutil.LedgerRowCount(t, path, "Ledger"))

		pos, err = l.Positions.GetPosition("INFY")
		require.NoError(t, err)
		assert.InDelta(t, 10, pos.OpenQuantity(), 1e-9)
	})

	t.Run("unknown lot", func(t *testing.T) {
		l, dir := newTestLedger(t)
		testutil.NewLedger().Buy("01-01-2024", 10, 100, "").Save(t, filepath.Join(dir, "INFY.xlsx"))

		_, err := l.Writer.RemoveLot(ctx, "INFY", uuid.NewString())
		assert.ErrorIs(t, err, apperrors.ErrLotNotFound)
	})

	t.Run("lot matched against sells", func(t *testing.T) {
		l, dir := newTestLedger(t)
		testutil.NewLedger().
			Sell("10-03-2024", 12, 150, "").
			Buy("10-02-2024", 10, 110, "").
			Buy("10-01-2024", 10, 100, "").
			Save(t, filepath.Join(dir, "INFY.xlsx"))

		pos, err := l.Positions.GetPosition("INFY")
		require.NoError(t, err)
		require.Len(t, pos.OpenLots, 1)

		_, err = l.Writer.RemoveLot(ctx, "INFY", pos.OpenLots[0].ID)
		assert.ErrorIs(t, err, apperrors.ErrInsufficientQuantity)
	})

	t.Run("archival lots are read-only", func(t *testing.T) {
		l, dir := newTestLedger(t)
		testutil.NewLedger().Buy("01-01-2024", 1, 100, "").Save(t, filepath.Join(dir, "INFY.xlsx"))
		testutil.NewLedger().Buy("01-01-2015", 10, 50, "").Save(t, filepath.Join(dir, "archive", "INFY_2015.xlsx"))

		pos, err := l.Positions.GetPosition("INFY")
		require.NoError(t, err)
		var archived model.OpenLot
		for _, lot := range pos.OpenLots {
			if lot.Price == 50 {
				archived = lot
			}
		}

		_, err = l.Writer.RemoveLot(ctx, "INFY", archived.ID)
		assert.ErrorIs(t, err, apperrors.ErrLotReadOnly)
	})

	t.Run("row edited since the position was read", func(t *testing.T) {
		l, dir := newTestLedger(t)
		path := testutil.NewLedger().Buy("01-01-2024", 10, 100, "").Save(t, filepath.Join(dir, "INFY.xlsx"))

		pos, err := l.Positions.GetPosition("INFY")
		require.NoError(t, err)
		rewrite(t, path, testutil.NewLedger().Buy("01-01-2024", 10, 101, ""))

		_, err = l.Writer.RemoveLot(ctx, "INFY", pos.OpenLots[0].ID)
		assert.ErrorIs(t, err, apperrors.ErrLotChanged)
		assert.Equal(t, 2, testutil.LedgerRowCount(t, path, "Ledger"))
	})
}
