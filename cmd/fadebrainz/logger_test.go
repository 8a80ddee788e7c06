package main

import (
	"log/slog"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
		ok   bool
	}{
		{"debug", slog.LevelDebug, true},
		{"info", slog.LevelInfo, true},
		{"warn", slog.LevelWarn, true},
		{"warning", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"ERROR", slog.LevelError, true},
		{"trace", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		got, err := parseLogLevel(tt.in)
		if tt.ok && (err != nil || got != tt.want) {
			t.Errorf("parseLogLevel(%q) = (%v, %v), want %v", tt.in, got, err, tt.want)
		}
		if !tt.ok && err == nil {
			t.Errorf("parseLogLevel(%q) succeeded, want error", tt.in)
		}
	}
}
