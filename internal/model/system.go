package model

// VersionInfo contains version information for the application.
type VersionInfo struct {
	AppVersion string `json:"app_version"`
	LedgerDir  string `json:"ledger_dir"`
}
