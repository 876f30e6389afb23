package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "error", want: slog.LevelError},
		{in: "WARN", want: slog.LevelWarn},
		{in: "warning", want: slog.LevelWarn},
		{in: "info", want: slog.LevelInfo},
		{in: "debug", want: slog.LevelDebug},
		{in: "trace", wantErr: true},
	}

	for _, tt := range tests {
		lvl, err := parseLogLevel(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseLogLevel(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseLogLevel(%q): %v", tt.in, err)
			continue
		}
		if got := lvl.slogLevel(); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSetupLogger_Formats(t *testing.T) {
	var buf bytes.Buffer
	setupLogger(&buf, LogLevelWarn, "json").Info("hidden")
	setupLogger(&buf, LogLevelWarn, "json").Warn("wheel event", "event", "name: press, val: up")

	line := strings.TrimSpace(buf.String())
	var rec map[string]any
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		t.Fatalf("json log line %q: %v", line, err)
	}
	if rec["msg"] != "wheel event" || rec["event"] != "name: press, val: up" {
		t.Fatalf("record = %v", rec)
	}

	buf.Reset()
	setupLogger(&buf, LogLevelInfo, "text").Info("wheel event", "position", -2)
	if !strings.Contains(buf.String(), "position=-2") {
		t.Fatalf("text log = %q", buf.String())
	}
}
