package version

import "fmt"

// Version contains the application version information.
// Set via ldflags in release builds:
// go build -ldflags "-X git.home.luguber.info/inful/texbuilder/internal/version.Version=v1.2.0".
var Version = "dev"

// Build metadata, also injected through ldflags.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String renders the version line printed by --version.
func String() string {
	if GitCommit == "unknown" {
		return fmt.Sprintf("texbuilder %s", Version)
	}
	return fmt.Sprintf("texbuilder %s (%s, built %s)", Version, GitCommit, BuildTime)
}
