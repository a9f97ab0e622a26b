package version

import "fmt"

var (
	// Version is the installer's semantic version. Overridden via ldflags.
	Version = "0.1.0-dev"
	// Commit is the short git SHA embedded at build time.
	Commit = "none"
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = "unknown"
)

// Short returns only the semantic version string.
func Short() string {
	return Version
}

// Full returns the version with commit and build time.
func Full() string {
	return fmt.Sprintf("passcli-installer %s (commit %s, built %s)", Version, Commit, BuildTime)
}
