package cmd

import "testing"

func TestIsDebugLog(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"2026-03-02 09:00:00 DBG Pointer moved\n", true},
		{"2026-03-02 09:00:00 \033[90mDBG\033[0m Pointer moved\n", true},
		{"2026-03-02 09:00:00 INF Tracking started\n", false},
		{"Connected to idlewatch daemon logs.\n", false},
	}
	for _, tt := range tests {
		if got := isDebugLog(tt.line); got != tt.want {
			t.Errorf("isDebugLog(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestMatchesFilter(t *testing.T) {
	tests := []struct {
		line, filter string
		want         bool
	}{
		{"INF System suspended", "power", true},
		{"INF Session locked", "power", true},
		{"WRN Keyboard hook unavailable", "keyboard", true},
		{"DBG Cursor query failed", "pointer", true},
		{"INF User inactive inactive_ms=31000", "alert", true},
		{"INF Configuration reloaded successfully", "config", true},
		{"INF Inactivity threshold updated", "config", true},
		{"INF Tracking started", "power", false},
		{"INF HTTP bridge listening", "http", true},
		{"INF HTTP bridge listening", "HTTP", true},
		{"INF HTTP bridge listening", "socket", false},
	}
	for _, tt := range tests {
		if got := matchesFilter(tt.line, tt.filter); got != tt.want {
			t.Errorf("matchesFilter(%q, %q) = %v, want %v", tt.line, tt.filter, got, tt.want)
		}
	}
}

func TestStripANSI(t *testing.T) {
	tests := map[string]string{
		"plain":                              "plain",
		"\033[1;32mgreen\033[0m":             "green",
		"\033[90mDBG\033[0m message \033[2m": "DBG message ",
		"":                                   "",
	}
	for in, want := range tests {
		if got := stripANSI(in); got != want {
			t.Errorf("stripANSI(%q) = %q, want %q", in, got, want)
		}
	}
}
