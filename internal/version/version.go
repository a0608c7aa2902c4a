package version

import (
	"runtime/debug"
	"strings"
)

// Version is stamped on every result and every stored run. Release builds set it with
//
//	-ldflags "-X github.com/rxtech-lab/argo-backtest/internal/version.Version=v1.2.3"
var Version = "v1.0.0"

// GetVersion returns Version. When Version is cleared it falls back to the
// module version recorded in the binary, then to DevelopmentVersion.
func GetVersion() string {
	if Version != "" {
		return Version
	}

	if info, ok := debug.ReadBuildInfo(); ok {
		if v := info.Main.Version; v != "" && v != "(devel)" {
			return v
		}
	}

	return DevelopmentVersion
}

// IsDevelopment reports whether v names a development build.
func IsDevelopment(v string) bool {
	return strings.TrimPrefix(v, "v") == DevelopmentVersion
}
