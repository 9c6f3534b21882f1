package core

import (
	"runtime/debug"
	"testing"
)

func TestFormatVersion(t *testing.T) {
	tests := map[string]string{
		"v1.2.0":              "1.2.0",
		"1.2.0":               "1.2.0",
		"devel-ad721b3":       "devel-ad721b3",
		"devel-ad721b3-dirty": "devel-ad721b3-dirty",
		"":                    "",
	}
	for in, want := range tests {
		if got := FormatVersion(in); got != want {
			t.Errorf("FormatVersion(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsPseudoVersion(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"v0.0.0-20260217105831-82903d1d8810", true},
		{"v0.0.0-20260217105831-82903d1d8810+dirty", true},
		{"v1.2.1-0.20260217105831-82903d1d8810", true},
		{"v1.2.0", false},
		{"v2.0.0-rc1", false},
		{"(devel)", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := isPseudoVersion(tt.input); got != tt.want {
				t.Errorf("isPseudoVersion(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestResolveBuild(t *testing.T) {
	vcs := func(rev, modified string) []debug.BuildSetting {
		return []debug.BuildSetting{
			{Key: "vcs.revision", Value: rev},
			{Key: "vcs.modified", Value: modified},
		}
	}

	tests := []struct {
		name string
		info *debug.BuildInfo
		want string
	}{
		{"no build info", nil, "devel"},
		{
			name: "tagged release",
			info: &debug.BuildInfo{Main: debug.Module{Version: "v1.4.0"}},
			want: "v1.4.0",
		},
		{
			name: "pseudo-version uses vcs",
			info: &debug.BuildInfo{
				Main:     debug.Module{Version: "v0.0.0-20260217105831-82903d1d8810"},
				Settings: vcs("82903d1d8810aa", "false"),
			},
			want: "devel-82903d1",
		},
		{
			name: "dirty tree",
			info: &debug.BuildInfo{
				Main:     debug.Module{Version: "(devel)"},
				Settings: vcs("ad721b3ffff", "true"),
			},
			want: "devel-ad721b3-dirty",
		},
		{
			name: "no vcs",
			info: &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}},
			want: "devel",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveBuild(tt.info)
			if got.Version != tt.want {
				t.Errorf("resolveBuild().Version = %q, want %q", got.Version, tt.want)
			}
			if got.GoVersion == "" || got.Platform == "" {
				t.Errorf("resolveBuild() missing runtime fields: %+v", got)
			}
		})
	}
}
