// Package buildinfo contains build-time information embedded via ldflags
package buildinfo

// Version is the application version, set at build time via ldflags
// Example: go build -ldflags "-X github.com/YoshitsuguKoike/align/internal/buildinfo.Version=v0.1.0"
var Version = "dev"

// Commit is the VCS revision the binary was built from, set via ldflags like Version
var Commit = ""

// GetVersion returns the current version, with "dev" as default for development builds
func GetVersion() string {
	if Version == "" {
		return "dev"
	}
	return Version
}

// GetCommit returns the short build revision or "unknown"
func GetCommit() string {
	switch {
	case Commit == "":
		return "unknown"
	case len(Commit) > 7:
		return Commit[:7]
	default:
		return Commit
	}
}
