// Package misc holds build time information.
package misc

// Set by the linker: -ldflags "-X geocss/misc.version=... -X geocss/misc.gitHash=...".
var (
	version = "dev"
	gitHash = "unknown"
)

// GetVersion returns program version.
func GetVersion() string {
	return version
}

// GetGitHash returns git hash the program was built from.
func GetGitHash() string {
	return gitHash
}

// GetAppName returns program name used for logs, reports and temporary files.
func GetAppName() string {
	return "geocss"
}
