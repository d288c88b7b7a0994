package repository

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/Investment-Ledger-Backend/internal/apperrors"
)

func touch(t *testing.T, path string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
	return path
}

// TestNormalizeKey tests instrument key validation.
//
// WHY: Keys come straight from URLs and CLI arguments and become file names. Anything that
// could escape the ledger directory must be rejected before a path is built.
func TestNormalizeKey(t *testing.T) {
	for in, want := range map[string]string{"infy": "INFY", " tcs ": "TCS", "M&M": "M&M", "BAJAJ-AUTO": "BAJAJ-AUTO", "120503": "120503"} {
		got, err := NormalizeKey(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	for _, in := range []string{"", "../etc", "A/B", "A..B", "_X", "has space"} {
		_, err := NormalizeKey(in)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInstrumentKey, in)
	}
}

// TestInstrumentRepository tests listing and resolving ledger files.
//
// WHY: An instrument's history may be split between its primary file and archival files.
// Missing an archival file drops history from the position; attributing one to the wrong
// instrument mixes two histories.
func TestInstrumentRepository(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "INFY.xlsx"))
	touch(t, filepath.Join(dir, "tcs.xlsx"))
	touch(t, filepath.Join(dir, "BAJAJ.xlsx"))
	touch(t, filepath.Join(dir, "BAJAJ_AUTO.xlsx"))
	touch(t, filepath.Join(dir, "~$INFY.xlsx"))
	touch(t, filepath.Join(dir, ".ledger-123.tmp"))
	touch(t, filepath.Join(dir, "notes.txt"))
	touch(t, filepath.Join(dir, "archive", "INFY_2019.xlsx"))
	touch(t, filepath.Join(dir, "archive", "INFY_2015.xlsx"))
	touch(t, filepath.Join(dir, "archive", "BAJAJ_AUTO_2018.xlsx"))
	touch(t, filepath.Join(dir, "archive", "WIPRO_2010.xlsx"))

	repo := NewInstrumentRepository(dir, "archive")

	t.Run("lists every instrument sorted by key", func(t *testing.T) {
		instruments, err := repo.List()
		require.NoError(t, err)

		keys := make([]string, len(instruments))
		for i, inst := range instruments {
			keys[i] = inst.Key
		}
		assert.Equal(t, []string{"BAJAJ", "BAJAJ_AUTO", "INFY", "TCS", "WIPRO"}, keys)

		infy := instruments[2]
		assert.Equal(t, filepath.Join(dir, "INFY.xlsx"), infy.PrimaryFile)
		assert.Equal(t, []string{
			filepath.Join(dir, "archive", "INFY_2015.xlsx"),
			filepath.Join(dir, "archive", "INFY_2019.xlsx"),
		}, infy.ArchiveFiles)

		// The longest matching key claims the archival file.
		assert.Empty(t, instruments[0].ArchiveFiles)
		assert.Len(t, instruments[1].ArchiveFiles, 1)

		assert.Empty(t, instruments[4].PrimaryFile)
		assert.Len(t, instruments[4].ArchiveFiles, 1)
	})

	t.Run("gets an instrument case-insensitively", func(t *testing.T) {
		inst, err := repo.Get("tcs")
		require.NoError(t, err)
		assert.Equal(t, "TCS", inst.Key)
		assert.Equal(t, filepath.Join(dir, "tcs.xlsx"), inst.PrimaryFile)
	})

	t.Run("archive-only instrument", func(t *testing.T) {
		inst, err := repo.Get("wipro")
		require.NoError(t, err)
		assert.Empty(t, inst.PrimaryFile)
		assert.Equal(t, []string{filepath.Join(dir, "archive", "WIPRO_2010.xlsx")}, inst.Files())
	})

	t.Run("get attributes archives like list", func(t *testing.T) {
		bajaj, err := repo.Get("BAJAJ")
		require.NoError(t, err)
		assert.Empty(t, bajaj.ArchiveFiles)

		auto, err := repo.Get("bajaj_auto")
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(dir, "archive", "BAJAJ_AUTO_2018.xlsx")}, auto.ArchiveFiles)
	})

	t.Run("unknown instrument", func(t *testing.T) {
		_, err := repo.Get("HDFC")
		assert.ErrorIs(t, err, apperrors.ErrInstrumentNotFound)
	})

	t.Run("invalid key", func(t *testing.T) {
		_, err := repo.Get("../INFY")
		assert.ErrorIs(t, err, apperrors.ErrInvalidInstrumentKey)
	})

	t.Run("missing archive directory", func(t *testing.T) {
		other := t.TempDir()
		touch(t, filepath.Join(other, "INFY.xlsx"))

		instruments, err := NewInstrumentRepository(other, "archive").List()
		require.NoError(t, err)
		require.Len(t, instruments, 1)
		assert.Empty(t, instruments[0].ArchiveFiles)
	})

	t.Run("missing ledger directory", func(t *testing.T) {
		_, err := NewInstrumentRepository(filepath.Join(dir, "nope"), "archive").List()
		assert.Error(t, err)
	})

	t.Run("mod time is the latest across files", func(t *testing.T) {
		inst, err := repo.Get("INFY")
		require.NoError(t, err)

		latest := time.Date(2030, time.January, 1, 0, 0, 0, 0, time.UTC)
		require.NoError(t, os.Chtimes(inst.ArchiveFiles[0], latest, latest))
		assert.True(t, repo.ModTime(inst).Equal(latest))
	})
}
