package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Version represents the current version of neil-logger
const Version = "0.4.0"

// BuildVersion returns the version string for display
func BuildVersion() string {
	return "neil-logger version " + Version
}

// Details returns the version line followed by the Go toolchain and, when the
// binary was built from a VCS checkout, the revision.
func Details() string {
	s := fmt.Sprintf("%s (%s %s/%s)", BuildVersion(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
	if rev := revision(); rev != "" {
		s += " rev " + rev
	}
	return s
}

func revision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" {
			if len(setting.Value) > 12 {
				return setting.Value[:12]
			}
			return setting.Value
		}
	}
	return ""
}
