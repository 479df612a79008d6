// Package misc keeps build time program identity.
package misc

import "runtime/debug"

// set with -ldflags "-X rflow/misc.version=..."
var (
	version = "dev"
	gitHash = ""
)

const appName = "rflow"

// GetAppName returns program name used for logs and file names.
func GetAppName() string {
	return appName
}

// GetVersion returns program version.
func GetVersion() string {
	return version
}

// GetGitHash returns revision program was built from, falls back to VCS
// information recorded by the toolchain.
func GetGitHash() string {
	if len(gitHash) > 0 {
		return gitHash
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" {
				return s.Value
			}
		}
	}
	return "unknown"
}
