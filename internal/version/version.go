// Package version provides build version information for the cix tools.
package version

import "fmt"

// Set with -ldflags "-X github.com/albertocavalcante/cix/internal/version.Version=...".
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String formats the build information for -version output.
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, Date)
}
