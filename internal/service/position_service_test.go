package service

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/Investment-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Investment-Ledger-Backend/internal/model"
	"github.com/ndewijer/Investment-Ledger-Backend/internal/testutil"
)

// seedPortfolio writes an equity with a partial sale, a flat equity and a fund.
func seedPortfolio(t *testing.T, dir string) {
	t.Helper()
	testutil.NewLedger().
		WithMeta(model.InstrumentMeta{Name: "Infosys", Code: "NSE:INFY"}).
		Sell("10-03-2024", 12, 150, "").
		Buy("10-02-2024", 10, 110, "").
		Buy("10-01-2024", 10, 100, "").
		Save(t, filepath.Join(dir, "INFY.xlsx"))
	testutil.NewLedger().
		WithMeta(model.InstrumentMeta{Name: "Tata Consultancy", Code: "NSE:TCS"}).
		Sell("10-03-2024", 3, 3333.333, "").
		Buy("10-01-2024", 3, 3000, "").
		Save(t, filepath.Join(dir, "TCS.xlsx"))
	testutil.NewLedger().
		WithMeta(model.InstrumentMeta{Name: "Axis Bluechip", Code: "120503", Class: model.ClassFund}).
		Buy("10-01-2024", 12.5, 40, "").
		Save(t, filepath.Join(dir, "120503.xlsx"))
}

// TestPositionService tests the read operations over derived positions.
//
// WHY: Listings and lot lookups back every screen of the ledger. They must agree with the
// derived position and report missing lots and instruments as such.
func TestPositionService(t *testing.T) {
	l, dir := newTestLedger(t)
	seedPortfolio(t, dir)
	ctx := context.Background()

	t.Run("lists summaries in key order", func(t *testing.T) {
		summaries, err := l.Positions.ListPositions(ctx)
		require.NoError(t, err)
		require.Len(t, summaries, 3)

		assert.Equal(t, "120503", summaries[0].Key)
		assert.Equal(t, "fund", summaries[0].Class)
		assert.Equal(t, "INFY", summaries[1].Key)
		assert.Equal(t, "Infosys", summaries[1].Name)
		assert.InDelta(t, 8, summaries[1].OpenQuantity, 1e-9)
		assert.Equal(t, 580.0, summaries[1].RealisedGain)
		assert.Equal(t, 880.0, summaries[1].InvestedCost)

		tcs := summaries[2]
		assert.Zero(t, tcs.OpenQuantity)
		assert.Equal(t, 1000.0, tcs.RealisedGain)
		assert.Equal(t, 1, tcs.ClosedLots)
	})

	t.Run("instrument that vanished after listing is skipped", func(t *testing.T) {
		instruments, err := l.Positions.ListInstruments()
		require.NoError(t, err)
		instruments = append(instruments, model.Instrument{Key: "GONE"})

		summaries, err := l.Positions.summarize(ctx, instruments)
		require.NoError(t, err)
		require.Len(t, summaries, 3)
		assert.Equal(t, "TCS", summaries[2].Key)
	})

	t.Run("cancelled listing fails", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := l.Positions.ListPositions(cancelled)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("lists instruments without deriving", func(t *testing.T) {
		instruments, err := l.Positions.ListInstruments()
		require.NoError(t, err)
		assert.Len(t, instruments, 3)
	})

	t.Run("gets open and closed lots", func(t *testing.T) {
		pos, err := l.Positions.GetPosition("INFY")
		require.NoError(t, err)

		open := pos.OpenLots[0]
		detail, err := l.Positions.GetLot("INFY", open.ID)
		require.NoError(t, err)
		require.NotNil(t, detail.Open)
		assert.InDelta(t, 8, detail.Open.RemainingQuantity, 1e-9)
		assert.Len(t, detail.Closed, 1)

		closedOnly := pos.ClosedLots[0].BuyLotID
		detail, err = l.Positions.GetLot("INFY", closedOnly)
		require.NoError(t, err)
		assert.Nil(t, detail.Open)
		assert.Len(t, detail.Closed, 1)

		_, err = l.Positions.GetLot("INFY", uuid.NewString())
		assert.ErrorIs(t, err, apperrors.ErrLotNotFound)
	})

	t.Run("counts fingerprint matches", func(t *testing.T) {
		check, err := l.Positions.FindDuplicates("INFY", jan(10), model.ActionBuy, 10, 100.001)
		require.NoError(t, err)
		assert.Equal(t, 1, check.Matches)
		assert.Equal(t, "2024-01-10", check.Fingerprint.Date)

		check, err = l.Positions.FindDuplicates("INFY", jan(11), model.ActionBuy, 10, 100)
		require.NoError(t, err)
		assert.Zero(t, check.Matches)

		check, err = l.Positions.FindDuplicates("HDFC", jan(10), model.ActionBuy, 10, 100)
		require.NoError(t, err)
		assert.Zero(t, check.Matches)

		_, err = l.Positions.FindDuplicates("../x", jan(10), model.ActionBuy, 10, 100)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInstrumentKey)

		_, err = l.Positions.FindDuplicates("INFY", jan(10), model.ActionBuy, math.NaN(), 100)
		assert.ErrorIs(t, err, apperrors.ErrInvalidEvent)
		_, err = l.Positions.FindDuplicates("INFY", jan(10), model.ActionBuy, 10, math.Inf(1))
		assert.ErrorIs(t, err, apperrors.ErrInvalidEvent)
	})

	t.Run("open symbols are equities still held", func(t *testing.T) {
		targets, err := l.Positions.OpenSymbols(ctx)
		require.NoError(t, err)
		assert.Equal(t, []PriceTarget{{Key: "INFY", Code: "NSE:INFY", Exchange: "NSE"}}, targets)
	})

	t.Run("unknown instrument", func(t *testing.T) {
		_, err := l.Positions.GetPosition("HDFC")
		assert.ErrorIs(t, err, apperrors.ErrInstrumentNotFound)
	})
}

func TestSummarize(t *testing.T) {
	pos := model.Position{
		Instrument: model.Instrument{Key: "X", Name: "X Ltd", Class: model.ClassEquity},
		OpenLots: []model.OpenLot{
			{RemainingQuantity: 3, Price: 10},
			{RemainingQuantity: 1, Price: 20.5},
		},
		ClosedLots: []model.ClosedLot{{Gain: 1.25}, {Gain: 2.004}},
	}

	s := Summarize(pos)
	assert.Equal(t, "X", s.Key)
	assert.InDelta(t, 4, s.OpenQuantity, 1e-9)
	assert.Equal(t, 50.5, s.InvestedCost)
	assert.Equal(t, 12.63, s.AverageCost)
	assert.Equal(t, 3.25, s.RealisedGain)
	assert.Equal(t, 2, s.OpenLots)
}
