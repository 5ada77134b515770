package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestNewRewritesKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelInfo, "shiftd", "test")
	logger.Debug("hidden")
	logger.Warn("transaction rejected", "code", "AssertionFailed")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected exactly one JSON line, got %q: %v", buf.String(), err)
	}
	for key, want := range map[string]string{
		"message":  "transaction rejected",
		"severity": "WARN",
		"service":  "shiftd",
		"env":      "test",
		"code":     "AssertionFailed",
	} {
		if line[key] != want {
			t.Fatalf("%s = %v, want %q", key, line[key], want)
		}
	}
	if _, ok := line["timestamp"]; !ok {
		t.Fatalf("missing timestamp in %v", line)
	}
}

func TestParseLevel(t *testing.T) {
	if level, err := ParseLevel("DEBUG"); err != nil || level != slog.LevelDebug {
		t.Fatalf("unexpected result %v, %v", level, err)
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestMaskField(t *testing.T) {
	if attr := MaskField("telemetryHeaders", "authorization=secret"); attr.Value.String() != RedactedValue {
		t.Fatalf("expected redaction, got %v", attr)
	}
	if attr := MaskField("endpoint", "collector:4318"); attr.Value.String() != "collector:4318" {
		t.Fatalf("allowlisted key was redacted: %v", attr)
	}
	if attr := MaskField("telemetryHeaders", ""); attr.Value.String() != "" {
		t.Fatalf("empty value should pass through: %v", attr)
	}
}
