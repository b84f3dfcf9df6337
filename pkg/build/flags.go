// Package build manages build information embedded into the binary at
// compile time via linker flags (application name, build timestamp, Git
// commit hash, and semantic version). Used for logging and the version
// output of the CLI.
package build

import "fmt"

type ldFlags struct {
	Name    string
	Time    string
	Commit  string
	Version string
}

// Package-level variables for build information. These are populated by
// -ldflags during compilation. Default values of "dev" are used during
// development so that `go run` works without a full build invocation.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = &ldFlags{
		Name:    "lumitone",
		Time:    "dev",
		Commit:  "dev",
		Version: "dev",
	}
)

// Initialize validates and copies build information from ldflags variables
// into the buildFlags struct. Returns an error if any required build flag
// is missing; callers may treat that as non-fatal for development builds.
func Initialize() error {
	if buildName == "" {
		return fmt.Errorf("BuildName is required")
	}
	if buildTime == "" {
		return fmt.Errorf("BuildTime is required")
	}
	if buildCommit == "" {
		return fmt.Errorf("BuildCommit is required")
	}
	if buildVersion == "" {
		return fmt.Errorf("BuildVersion is required")
	}

	buildFlags.Name = buildName
	buildFlags.Time = buildTime
	buildFlags.Commit = buildCommit
	buildFlags.Version = buildVersion

	return nil
}

// GetBuildFlags returns the current build information. Values are the
// development defaults until Initialize succeeds.
func GetBuildFlags() *ldFlags {
	return buildFlags
}
