package version

import "fmt"

var (
	// Version is the release of the orchestrator binary, overridden via ldflags.
	Version = "0.1.0"
	// Commit is the short git SHA stamped at build time, or "none" for local builds.
	Commit = "none"
	// BuildTime is the UTC timestamp stamped at build time.
	BuildTime = "unknown"
)

// Short returns the bare release string, suitable for logs.
func Short() string {
	return Version
}

// Full renders the release together with its build provenance.
func Full() string {
	return fmt.Sprintf("jenkins-updater %s (commit %s, built %s)", Version, Commit, BuildTime)
}
