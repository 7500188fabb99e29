// Package version holds build metadata injected via ldflags.
package version

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String returns the full build identifier for logs and CLI output.
func String() string {
	return Version + " (commit " + Commit + ", built " + Date + ")"
}
