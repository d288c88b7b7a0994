package repository

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/ndewijer/Investment-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Investment-Ledger-Backend/internal/model"
)

const ledgerExt = ".xlsx"

var validKey = regexp.MustCompile(`^[A-Z0-9][A-Z0-9_.&-]*$`)

// InstrumentRepository provides access to the ledger files of a ledger directory.
// Primary files live at <dir>/<KEY>.xlsx and archival files at <dir>/<archive>/<KEY>_<suffix>.xlsx.
// The files are the only persisted state; the repository never caches listings.
type InstrumentRepository struct {
	dir        string
	archiveDir string
}

// NewInstrumentRepository creates a new InstrumentRepository rooted at dir.
// archiveSubdir is resolved relative to dir.
func NewInstrumentRepository(dir, archiveSubdir string) *InstrumentRepository {
	return &InstrumentRepository{
		dir:        dir,
		archiveDir: filepath.Join(dir, archiveSubdir),
	}
}

// Dir returns the ledger directory.
func (r *InstrumentRepository) Dir() string {
	return r.dir
}

// NormalizeKey upper-cases a key and checks that it is safe to use as a file stem.
func NormalizeKey(key string) (string, error) {
	k := strings.ToUpper(strings.TrimSpace(key))
	if !validKey.MatchString(k) || strings.Contains(k, "..") {
		return "", fmt.Errorf("%w: %q", apperrors.ErrInvalidInstrumentKey, key)
	}
	return k, nil
}

// PrimaryPath returns where the primary ledger of key lives, whether or not it exists.
func (r *InstrumentRepository) PrimaryPath(key string) string {
	return filepath.Join(r.dir, key+ledgerExt)
}

// List returns every instrument with at least one ledger file, sorted by key.
//
// Returns an error only if the ledger directory itself cannot be read. A missing archive
// directory simply means no instrument has archival files.
func (r *InstrumentRepository) List() ([]model.Instrument, error) {
	primaries, err := ledgerStems(r.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger directory: %w", err)
	}
	archives, err := ledgerStems(r.archiveDir)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read archive directory: %w", err)
	}

	byKey := make(map[string]*model.Instrument)
	keys := make([]string, 0, len(primaries))
	for stem, path := range primaries {
		key := strings.ToUpper(stem)
		if _, err := NormalizeKey(key); err != nil {
			continue
		}
		byKey[key] = &model.Instrument{Key: key, Code: key, PrimaryFile: path}
		keys = append(keys, key)
	}
	known := primaryKeys(primaries)

	for stem, path := range archives {
		key := archiveKey(strings.ToUpper(stem), known)
		if _, err := NormalizeKey(key); err != nil {
			continue
		}
		inst, ok := byKey[key]
		if !ok {
			inst = &model.Instrument{Key: key, Code: key}
			byKey[key] = inst
			keys = append(keys, key)
		}
		inst.ArchiveFiles = append(inst.ArchiveFiles, path)
	}

	sort.Strings(keys)
	instruments := make([]model.Instrument, 0, len(keys))
	for _, key := range keys {
		inst := byKey[key]
		sort.Strings(inst.ArchiveFiles)
		instruments = append(instruments, *inst)
	}
	return instruments, nil
}

// Get returns the instrument for key with its current file set.
//
// Returns apperrors.ErrInstrumentNotFound if neither a primary nor an archival file exists.
func (r *InstrumentRepository) Get(key string) (model.Instrument, error) {
	key, err := NormalizeKey(key)
	if err != nil {
		return model.Instrument{}, err
	}

	primaries, err := ledgerStems(r.dir)
	if err != nil && !os.IsNotExist(err) {
		return model.Instrument{}, fmt.Errorf("failed to read ledger directory: %w", err)
	}

	inst := model.Instrument{Key: key, Code: key}
	if fileExists(r.PrimaryPath(key)) {
		inst.PrimaryFile = r.PrimaryPath(key)
	} else {
		for stem, path := range primaries {
			if strings.EqualFold(stem, key) {
				inst.PrimaryFile = path
				break
			}
		}
	}

	archives, err := ledgerStems(r.archiveDir)
	if err != nil && !os.IsNotExist(err) {
		return model.Instrument{}, fmt.Errorf("failed to read archive directory: %w", err)
	}
	known := primaryKeys(primaries)
	for stem, path := range archives {
		if archiveKey(strings.ToUpper(stem), known) == key {
			inst.ArchiveFiles = append(inst.ArchiveFiles, path)
		}
	}
	sort.Strings(inst.ArchiveFiles)

	if inst.PrimaryFile == "" && len(inst.ArchiveFiles) == 0 {
		return model.Instrument{}, fmt.Errorf("%w: %s", apperrors.ErrInstrumentNotFound, key)
	}
	return inst, nil
}

// ModTime returns the latest modification time across the instrument's files.
// Files that vanished since listing are ignored; the zero time means no file was found.
func (r *InstrumentRepository) ModTime(inst model.Instrument) time.Time {
	var latest time.Time
	for _, path := range inst.Files() {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if info.ModTime().After(latest) {
			latest = info.ModTime()
		}
	}
	return latest
}

func primaryKeys(primaries map[string]string) map[string]bool {
	keys := make(map[string]bool, len(primaries))
	for stem := range primaries {
		keys[strings.ToUpper(stem)] = true
	}
	return keys
}

// archiveKey picks the longest primary key that the archival stem belongs to, falling back to
// everything before the first underscore. List and Get attribute archival files the same way.
func archiveKey(stem string, known map[string]bool) string {
	best := ""
	for key := range known {
		if (stem == key || strings.HasPrefix(stem, key+"_")) && len(key) > len(best) {
			best = key
		}
	}
	if best != "" {
		return best
	}
	if before, _, found := strings.Cut(stem, "_"); found {
		return before
	}
	return stem
}

// ledgerStems maps file stems to paths for every ledger file directly inside dir.
// Hidden files, spreadsheet lock files and temporary files are skipped.
func ledgerStems(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	stems := make(map[string]string, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$") {
			continue
		}
		if !strings.EqualFold(filepath.Ext(name), ledgerExt) {
			continue
		}
		stems[strings.TrimSuffix(name, filepath.Ext(name))] = filepath.Join(dir, name)
	}
	return stems, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
