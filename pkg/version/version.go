// Package version exposes build metadata stamped in with -ldflags.
package version

import (
	"fmt"
	"runtime"
)

// Build metadata, overridden at link time:
//
//	-X github.com/zero-day-ai/cortex/pkg/version.Version=v0.3.0
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// String is the long form printed by `cortex version`.
func String() string {
	return fmt.Sprintf("Cortex %s (commit: %s, built: %s, go: %s)",
		Version, GitCommit, BuildTime, runtime.Version())
}

// UserAgent identifies the server in response headers and trace resources.
func UserAgent() string {
	return "cortex/" + Version
}

// Info returns the metadata as a flat map for JSON output.
func Info() map[string]string {
	return map[string]string{
		"version":   Version,
		"commit":    GitCommit,
		"buildTime": BuildTime,
		"goVersion": runtime.Version(),
		"platform":  runtime.GOOS + "/" + runtime.GOARCH,
	}
}
