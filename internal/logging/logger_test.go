package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestNewWithFormat_JSONRenamesErrorKey(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithFormat(&buf, slog.LevelInfo, "json")

	log.Error("route.error", "error", errors.New("boom"), "status", 500)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%s)", err, buf.String())
	}
	if entry["err"] != "boom" {
		t.Errorf("err = %v, want boom", entry["err"])
	}
	if _, ok := entry["error"]; ok {
		t.Error("error key should be renamed")
	}
}

func TestNewWithFormat_TextRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithFormat(&buf, slog.LevelWarn, "text")

	log.Info("hidden")
	log.Warn("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Error("info line should be filtered")
	}
	if !strings.Contains(buf.String(), "msg=shown") {
		t.Errorf("missing warn line: %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"debug", slog.LevelDebug, false},
		{"WARN", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v", tt.in, got, err)
		}
	}
}
