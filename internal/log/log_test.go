package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewLoggerText(t *testing.T) {
	t.Setenv("GO_ENV", "")
	var buf bytes.Buffer
	l := NewLogger(&buf, "warn")

	l.Info("hidden")
	l.Warn("shown", "servo", "port")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line written at warn level: %q", out)
	}
	if !strings.Contains(out, "servo=port") {
		t.Errorf("output %q missing attribute", out)
	}
}

func TestNewLoggerProductionJSON(t *testing.T) {
	t.Setenv("GO_ENV", "production")
	var buf bytes.Buffer
	NewLogger(&buf, "info").Info("connected", "system_name", "buv-petinga")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("production output is not JSON: %v (%q)", err, buf.String())
	}
	if line["system_name"] != "buv-petinga" {
		t.Errorf("line = %v", line)
	}
}
