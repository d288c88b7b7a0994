// Package version holds build information, overridden at link time:
//
//	go build -ldflags "-X github.com/ndewijer/Investment-Ledger-Backend/internal/version.Version=1.2.0"
package version

// Version is the application version.
var Version = "dev"
