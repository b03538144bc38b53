package build

import "fmt"

// Version components. Overridable at link time via -ldflags.
var (
	// appMajor defines the major version of this binary.
	appMajor uint = 0

	// appMinor defines the minor version of this binary.
	appMinor uint = 2

	// appPatch defines the application patch for this binary.
	appPatch uint = 0

	// appPreRelease marks the version as a pre-release when non-empty.
	appPreRelease = "beta"

	// Commit is the full git commit hash the binary was built from, set
	// by the build script.
	Commit string
)

// Version returns the application version as a properly formed string.
func Version() string {
	version := fmt.Sprintf("%d.%d.%d", appMajor, appMinor, appPatch)

	if appPreRelease != "" {
		version = fmt.Sprintf("%s-%s", version, appPreRelease)
	}

	return version
}
