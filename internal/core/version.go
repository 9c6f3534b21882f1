package core

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

var Version string

// Build describes the running binary
type Build struct {
	Version   string `json:"version" yaml:"version"`
	Revision  string `json:"revision,omitempty" yaml:"revision,omitempty"`
	GoVersion string `json:"go_version" yaml:"go_version"`
	Platform  string `json:"platform" yaml:"platform"`
}

var build Build

func init() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		info = nil
	}
	build = resolveBuild(info)
	Version = build.Version
}

// CurrentBuild returns the build description of this binary.
func CurrentBuild() Build {
	return build
}

// resolveBuild prefers a tagged module version and falls back to VCS
// settings for local builds.
func resolveBuild(info *debug.BuildInfo) Build {
	b := Build{
		Version:   "devel",
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if info == nil {
		return b
	}
	if info.GoVersion != "" {
		b.GoVersion = info.GoVersion
	}

	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			b.Revision = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}

	// Go 1.24+ stamps pseudo-versions on local builds; VCS info reads better.
	if v := info.Main.Version; v != "" && v != "(devel)" && !isPseudoVersion(v) {
		b.Version = v
		return b
	}
	if b.Revision == "" {
		return b
	}

	short := b.Revision
	if len(short) > 7 {
		short = short[:7]
	}
	b.Version = fmt.Sprintf("devel-%s", short)
	if dirty {
		b.Version += "-dirty"
	}
	return b
}

// FormatVersion strips the "v" prefix of tagged releases for display.
func FormatVersion(v string) string {
	return strings.TrimPrefix(v, "v")
}

// isPseudoVersion reports whether v ends in the 12 character commit hash of
// a Go module pseudo-version.
func isPseudoVersion(v string) bool {
	if i := strings.Index(v, "+"); i >= 0 {
		v = v[:i]
	}
	i := strings.LastIndex(v, "-")
	if i < 0 {
		return false
	}
	hash := v[i+1:]
	if len(hash) != 12 {
		return false
	}
	for _, c := range hash {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return false
		}
	}
	return true
}
