package service

import (
	"fmt"
	"os"

	"github.com/ndewijer/Investment-Ledger-Backend/internal/model"
	"github.com/ndewijer/Investment-Ledger-Backend/internal/version"
)

// SystemService handles system-related operations
type SystemService struct {
	ledgerDir string
}

// NewSystemService creates a new SystemService
func NewSystemService(ledgerDir string) *SystemService {
	return &SystemService{
		ledgerDir: ledgerDir,
	}
}

// CheckHealth checks that the ledger directory exists and can be listed.
func (s *SystemService) CheckHealth() error {
	info, err := os.Stat(s.ledgerDir)
	if err != nil {
		return fmt.Errorf("ledger directory unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("ledger path %s is not a directory", s.ledgerDir)
	}
	if _, err := os.ReadDir(s.ledgerDir); err != nil {
		return fmt.Errorf("ledger directory unreadable: %w", err)
	}
	return nil
}

// VersionInfo reports the running version and the ledger directory in use.
func (s *SystemService) VersionInfo() model.VersionInfo {
	return model.VersionInfo{
		AppVersion: version.Version,
		LedgerDir:  s.ledgerDir,
	}
}
