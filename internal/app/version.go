package app

import "fmt"

// Set via ldflags, e.g.
// go build -ldflags "-X github.com/sakif/pollboard/internal/app.Version=1.2.0"
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// BuildVersion is the version string shown in startup logs and /healthz.
func BuildVersion() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildTime)
}
