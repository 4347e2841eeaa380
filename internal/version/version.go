package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	// Version is the release tag, set with -ldflags "-X .../version.Version=...".
	Version = "0.1.0"
	// Commit is the short git SHA, or "none" for local builds.
	Commit = "none"
	// BuildTime is the UTC build timestamp.
	BuildTime = "unknown"
)

// Short returns only the release tag.
func Short() string {
	return Version
}

// Full returns the release tag with commit, build time and Go toolchain.
func Full() string {
	return fmt.Sprintf("lookout-monitor %s (commit %s, built %s, %s)", Version, commit(), BuildTime, runtime.Version())
}

// KV returns build metadata as logger key-value pairs.
func KV() []any {
	return []any{"version", Version, "commit", commit(), "built_at", BuildTime}
}

// commit falls back to the VCS revision stamped by the Go toolchain.
func commit() string {
	if Commit != "none" {
		return Commit
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return Commit
	}

	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" && len(setting.Value) >= 7 {
			return setting.Value[:7]
		}
	}

	return Commit
}
