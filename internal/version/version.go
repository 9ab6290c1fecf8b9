// Package version provides build metadata for PortScout binaries.
package version

import (
	"fmt"
	"strings"
)

// Build metadata, overridden at build time via -ldflags, e.g.:
//
//	go build -ldflags "-X github.com/HerbHall/portscout/internal/version.Version=1.0.0"
var (
	Version = "0.1.0"
	Commit  = "none"
	Date    = "unknown"
)

// Short returns the version with a "v" prefix, e.g. "v0.1.0".
func Short() string {
	if strings.HasPrefix(Version, "v") {
		return Version
	}
	return "v" + Version
}

// Info returns a one-line human-readable version string.
func Info() string {
	return fmt.Sprintf("PortScout %s (commit %s, built %s)", Short(), Commit, Date)
}
