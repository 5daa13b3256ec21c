// Package version provides build version information for mapdex.
package version

// Overridden at build time:
// go build -ldflags "-X mapdex/internal/version.Version=0.4.0 -X mapdex/internal/version.Commit=abc123"
var (
	// Version is the semantic version of mapdex
	Version = "0.3.0"

	// Commit is the git commit hash (set at build time)
	Commit = "unknown"

	// BuildDate is the build timestamp (set at build time)
	BuildDate = "unknown"
)

// Info returns a formatted version string
func Info() string {
	if Commit != "unknown" && len(Commit) > 7 {
		return Version + " (" + Commit[:7] + ")"
	}
	return Version
}

// Full returns complete version information
func Full() string {
	return "mapdex " + Version + "\n" +
		"commit: " + Commit + "\n" +
		"built: " + BuildDate
}
