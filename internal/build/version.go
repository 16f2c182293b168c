// Package build provides version and build information for copilot-notifier.
// It has no dependencies on other internal packages.
package build

var (
	// Version information - set via ldflags during build
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// IsDevBuild returns true if running a development build (not a release)
func IsDevBuild() bool {
	return Version == "dev"
}
