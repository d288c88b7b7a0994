package service

import (
	"github.com/rs/zerolog"

	"github.com/ndewijer/Investment-Ledger-Backend/internal/repository"
)

// Ledger wires the services that share one ledger directory and one position cache.
// The writer invalidates the same cache that the read services consult.
type Ledger struct {
	Repo      *repository.InstrumentRepository
	Engine    *PositionEngine
	Cache     *PositionCache
	Writer    *LedgerWriter
	Positions *PositionService
	Import    *ImportService
	System    *SystemService
}

// NewLedger creates the ledger services over dir.
//
// Parameters:
//   - dir: Directory holding the primary ledger files
//   - archiveSubdir: Subdirectory of dir holding archival files
//   - concurrency: Upper bound on positions derived in parallel by bulk reads
//   - log: Parent logger; each service adds its own name
func NewLedger(dir, archiveSubdir string, concurrency int, log zerolog.Logger) *Ledger {
	repo := repository.NewInstrumentRepository(dir, archiveSubdir)
	engine := NewPositionEngine(repo, log)
	cache := NewPositionCache(repo, engine, log)
	writer := NewLedgerWriter(repo, cache, log)
	positions := NewPositionService(repo, cache, concurrency, log)

	return &Ledger{
		Repo:      repo,
		Engine:    engine,
		Cache:     cache,
		Writer:    writer,
		Positions: positions,
		Import:    NewImportService(writer, positions, log),
		System:    NewSystemService(dir),
	}
}
