// Package version reports the build of the bestway-cfg and bestway-bridge
// binaries.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"time"
)

// Set at build time:
//
//	go build -ldflags="-X github.com/muurk/bestway-spa/internal/version.Version=v1.2.3 \
//	                   -X github.com/muurk/bestway-spa/internal/version.Commit=abc123"
//
// Unset values are filled from the VCS stamp in the binary, then from "dev"
// and "unknown".
var (
	Version = ""
	Commit  = ""
)

const shortCommit = 7

func init() {
	if bi, ok := debug.ReadBuildInfo(); ok {
		fillFromVCS(bi.Settings)
	}
	if Version == "" {
		Version = "dev-" + time.Now().Format("20060102-150405")
	}
	if Commit == "" {
		Commit = "unknown"
	}
}

// fillFromVCS sets whichever of Version and Commit is still empty from the
// vcs.* build settings
func fillFromVCS(settings []debug.BuildSetting) {
	vcs := make(map[string]string, len(settings))
	for _, s := range settings {
		vcs[s.Key] = s.Value
	}

	if rev := vcs["vcs.revision"]; Commit == "" && rev != "" {
		if len(rev) > shortCommit {
			rev = rev[:shortCommit]
		}
		if vcs["vcs.modified"] == "true" {
			rev += "-dirty"
		}
		Commit = rev
	}

	if Version == "" {
		if t, err := time.Parse(time.RFC3339, vcs["vcs.time"]); err == nil {
			Version = "dev-" + t.Format("20060102")
		}
	}
}

// BuildInfo is the version block served on /healthz
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

func (b BuildInfo) String() string {
	return fmt.Sprintf("%s (commit: %s, %s, %s)", b.Version, b.Commit, b.GoVersion, b.Platform)
}

// Info returns the build of the running binary
func Info() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// Full is the one-line form printed by the version commands
func Full() string {
	return Info().String()
}
