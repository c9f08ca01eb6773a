// Package version reports the tool version and the defmt wire-format
// version this decoder implements.
package version

import (
	"fmt"
	"runtime/debug"
)

// WireFormat is the defmt wire-format version this decoder implements.
// Firmware built against the same major version and an equal or older
// minor/patch can be decoded.
const WireFormat = "0.3.0"

// Version and Commit may be set at link time:
//
//	go build -ldflags="-X github.com/muurk/defmt-print/internal/version.Version=v1.2.3 \
//	                   -X github.com/muurk/defmt-print/internal/version.Commit=abc123"
//
// Values left empty are filled from the module build info.
var (
	Version = ""
	Commit  = ""
)

func init() {
	info, _ := debug.ReadBuildInfo()
	Version, Commit = resolve(Version, Commit, info)
}

// resolve fills version and commit from build info where they were not set
// at link time.
func resolve(version, commit string, info *debug.BuildInfo) (string, string) {
	if info != nil {
		if version == "" && info.Main.Version != "" && info.Main.Version != "(devel)" {
			version = info.Main.Version
		}
		if commit == "" {
			commit = vcsCommit(info.Settings)
		}
	}
	if version == "" {
		version = "dev"
	}
	if commit == "" {
		commit = "unknown"
	}
	return version, commit
}

// vcsCommit returns the short revision, marked "-dirty" for modified trees.
func vcsCommit(settings []debug.BuildSetting) string {
	var rev string
	var dirty bool
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if rev == "" {
		return ""
	}
	if len(rev) > 7 {
		rev = rev[:7]
	}
	if dirty {
		rev += "-dirty"
	}
	return rev
}

// Full returns the version with its commit.
func Full() string {
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}

// Supported returns the line printed by the version command describing the
// supported wire format.
func Supported() string {
	return fmt.Sprintf("supported defmt version: %s", WireFormat)
}
