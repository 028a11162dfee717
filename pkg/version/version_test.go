package version

import (
	"strings"
	"testing"
)

func TestBuildVersion(t *testing.T) {
	if got := BuildVersion(); got != "neil-logger version "+Version {
		t.Errorf("BuildVersion() = %q", got)
	}
	if !strings.HasPrefix(Details(), BuildVersion()+" (go") {
		t.Errorf("Details() = %q, want build version and toolchain", Details())
	}
}
