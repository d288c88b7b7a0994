package service

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/ndewijer/Investment-Ledger-Backend/internal/model"
	"github.com/ndewijer/Investment-Ledger-Backend/internal/repository"
)

// cacheEntry is one memoized derivation, valid while the instrument's file set and
// latest modification time are unchanged.
type cacheEntry struct {
	modTime  time.Time
	files    string
	position model.Position
}

// PositionCache memoizes derived positions per instrument.
//
// A lookup re-derives when the latest modification time or the file set of the instrument
// differs from the cached entry. Because modification times can be too coarse to notice a write
// finished within the same second, writers call Invalidate after every mutation; each
// invalidation bumps a generation counter so a derivation that started before it is never stored.
//
// Concurrent misses for the same instrument and generation share one derivation.
type PositionCache struct {
	repo   *repository.InstrumentRepository
	engine *PositionEngine
	log    zerolog.Logger

	mu          sync.Mutex
	entries     map[string]cacheEntry
	generations map[string]uint64
	group       singleflight.Group
}

// NewPositionCache creates an empty PositionCache over engine.
func NewPositionCache(repo *repository.InstrumentRepository, engine *PositionEngine, log zerolog.Logger) *PositionCache {
	return &PositionCache{
		repo:        repo,
		engine:      engine,
		log:         log.With().Str("service", "position_cache").Logger(),
		entries:     make(map[string]cacheEntry),
		generations: make(map[string]uint64),
	}
}

// Get returns the current position of the instrument with the given key.
// The returned position is a copy; callers may modify it freely.
//
// Returns apperrors.ErrInstrumentNotFound if the instrument has no ledger file.
func (c *PositionCache) Get(key string) (model.Position, error) {
	inst, err := c.repo.Get(key)
	if err != nil {
		return model.Position{}, err
	}
	modTime := c.repo.ModTime(inst)
	files := strings.Join(inst.Files(), "\x00")

	c.mu.Lock()
	entry, ok := c.entries[inst.Key]
	gen := c.generations[inst.Key]
	c.mu.Unlock()

	if ok && entry.modTime.Equal(modTime) && entry.files == files {
		return clonePosition(entry.position), nil
	}

	flightKey := fmt.Sprintf("%s#%d#%d#%s", inst.Key, gen, modTime.UnixNano(), files)
	v, _, _ := c.group.Do(flightKey, func() (interface{}, error) {
		c.log.Debug().Str("instrument", inst.Key).Uint64("generation", gen).Msg("deriving position")
		pos := c.engine.Derive(inst)

		c.mu.Lock()
		if c.generations[inst.Key] == gen {
			c.entries[inst.Key] = cacheEntry{modTime: modTime, files: files, position: pos}
		}
		c.mu.Unlock()
		return pos, nil
	})

	return clonePosition(v.(model.Position)), nil
}

// Invalidate drops the cached position of key. Derivations already in flight for the
// instrument finish for their callers but are not stored.
func (c *PositionCache) Invalidate(key string) {
	key, err := repository.NormalizeKey(key)
	if err != nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	c.generations[key]++
}

// Len returns the number of cached positions.
func (c *PositionCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// clonePosition deep-copies the slices of p. Lot and dividend slices are never nil so that
// they encode as empty JSON arrays.
func clonePosition(p model.Position) model.Position {
	out := p
	out.Instrument.ArchiveFiles = cloneSlice(p.Instrument.ArchiveFiles)
	out.OpenLots = cloneSlice(p.OpenLots)
	out.ClosedLots = cloneSlice(p.ClosedLots)
	out.Dividends = cloneSlice(p.Dividends)
	out.SkippedFiles = cloneSlice(p.SkippedFiles)
	out.Fingerprints = cloneSlice(p.Fingerprints)
	return out
}

func cloneSlice[T any](s []T) []T {
	out := make([]T, len(s))
	copy(out, s)
	return out
}
