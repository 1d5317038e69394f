// Package buildinfo holds build-time metadata injected via -ldflags.
package buildinfo

// Version is the semantic version or tag for this build.
// Inject via: -X github.com/tulul/tululbot/internal/buildinfo.Version=...
var Version = ""

// Commit is the git commit SHA for this build.
// Inject via: -X github.com/tulul/tululbot/internal/buildinfo.Commit=...
var Commit = ""

// BuildDate is the RFC3339 build timestamp.
// Inject via: -X github.com/tulul/tululbot/internal/buildinfo.BuildDate=...
var BuildDate = ""

// String renders the build metadata for logs and the manage CLI.
func String() string {
	v := Version
	if v == "" {
		v = "dev"
	}
	if Commit != "" {
		c := Commit
		if len(c) > 7 {
			c = c[:7]
		}
		v += " (" + c + ")"
	}
	if BuildDate != "" {
		v += " built " + BuildDate
	}
	return v
}
