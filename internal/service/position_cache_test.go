package service

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/Investment-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Investment-Ledger-Backend/internal/testutil"
)

// rewrite replaces the ledger at path and restores its previous modification time, as a
// write finishing within the same mtime tick would.
func rewrite(t *testing.T, path string, b *testutil.LedgerBuilder) {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	b.Save(t, path)
	require.NoError(t, os.Chtimes(path, info.ModTime(), info.ModTime()))
}

// TestPositionCache tests memoization and invalidation of derived positions.
//
// WHY: Reads are served from the cache. A stale entry after a write would let the ledger
// accept a sell against units that were already sold, so invalidation must work even when the
// file's modification time does not move.
func TestPositionCache(t *testing.T) {
	l, dir := newTestLedger(t)
	path := testutil.NewLedger().
		Buy("10-01-2024", 10, 100, "").
		Save(t, filepath.Join(dir, "INFY.xlsx"))

	t.Run("hits reuse the derived position", func(t *testing.T) {
		first, err := l.Cache.Get("INFY")
		require.NoError(t, err)
		second, err := l.Cache.Get("infy")
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, 1, l.Cache.Len())
	})

	t.Run("returned positions are copies", func(t *testing.T) {
		pos, err := l.Cache.Get("INFY")
		require.NoError(t, err)
		pos.OpenLots[0].RemainingQuantity = 0

		again, err := l.Cache.Get("INFY")
		require.NoError(t, err)
		assert.InDelta(t, 10, again.OpenLots[0].RemainingQuantity, 1e-9)
	})

	t.Run("invalidate picks up writes the mtime missed", func(t *testing.T) {
		rewrite(t, path, testutil.NewLedger().
			Buy("11-01-2024", 5, 105, "").
			Buy("10-01-2024", 10, 100, ""))

		stale, err := l.Cache.Get("INFY")
		require.NoError(t, err)
		assert.InDelta(t, 10, stale.OpenQuantity(), 1e-9)

		l.Cache.Invalidate("infy")
		fresh, err := l.Cache.Get("INFY")
		require.NoError(t, err)
		assert.InDelta(t, 15, fresh.OpenQuantity(), 1e-9)
	})

	t.Run("a newer mtime re-derives", func(t *testing.T) {
		testutil.NewLedger().Buy("10-01-2024", 1, 100, "").Save(t, path)
		later := time.Now().Add(time.Hour)
		require.NoError(t, os.Chtimes(path, later, later))

		pos, err := l.Cache.Get("INFY")
		require.NoError(t, err)
		assert.InDelta(t, 1, pos.OpenQuantity(), 1e-9)
	})

	t.Run("a new archival file re-derives", func(t *testing.T) {
		info, err := os.Stat(path)
		require.NoError(t, err)
		archive := testutil.NewLedger().
			Buy("10-01-2020", 2, 50, "").
			Save(t, filepath.Join(dir, "archive", "INFY_2020.xlsx"))
		older := info.ModTime().Add(-time.Hour)
		require.NoError(t, os.Chtimes(archive, older, older))

		pos, err := l.Cache.Get("INFY")
		require.NoError(t, err)
		assert.InDelta(t, 3, pos.OpenQuantity(), 1e-9)
	})

	t.Run("concurrent readers agree", func(t *testing.T) {
		l.Cache.Invalidate("INFY")

		var wg sync.WaitGroup
		results := make([]float64, 8)
		for i := range results {
			i := i
			wg.Add(1)
			go func() {
				defer wg.Done()
				pos, err := l.Cache.Get("INFY")
				if err == nil {
					results[i] = pos.OpenQuantity()
				}
			}()
		}
		wg.Wait()

		for _, q := range results {
			assert.InDelta(t, 3, q, 1e-9)
		}
	})

	t.Run("unknown instrument", func(t *testing.T) {
		_, err := l.Cache.Get("NOPE")
		assert.ErrorIs(t, err, apperrors.ErrInstrumentNotFound)
	})
}
