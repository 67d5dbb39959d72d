package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestSetLevel(t *testing.T) {
	tests := []struct {
		name  string
		level Level
	}{
		{"Debug", LevelDebug},
		{"Info", LevelInfo},
		{"Warn", LevelWarn},
		{"Error", LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetLevel(tt.level)
			if Default().GetLevel() != tt.level {
				t.Errorf("SetLevel(%v) = %v, want %v", tt.level, Default().GetLevel(), tt.level)
			}
		})
	}
}

func TestSetLevelFromString(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"INFO", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"ERROR", LevelError},
		{"invalid", LevelInfo}, // defaults to info
		{"", LevelInfo},        // defaults to info
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			SetLevelFromString(tt.input)
			if Default().GetLevel() != tt.expected {
				t.Errorf("SetLevelFromString(%q) = %v, want %v", tt.input, Default().GetLevel(), tt.expected)
			}
		})
	}
}

func TestLoggingOutput(t *testing.T) {
	// Create a custom logger for testing
	var buf bytes.Buffer
	testLogger := New(&buf)

	// Test Debug level
	testLogger.SetLevel(LevelDebug)
	buf.Reset()
	testLogger.Debug("test debug %d", 1)
	if !strings.Contains(buf.String(), "[DEBUG]") || !strings.Contains(buf.String(), "test debug 1") {
		t.Errorf("Debug() output = %q, want to contain [DEBUG] and 'test debug 1'", buf.String())
	}

	// Test that Debug is suppressed at Info level
	testLogger.SetLevel(LevelInfo)
	buf.Reset()
	testLogger.Debug("should not appear")
	if buf.Len() != 0 {
		t.Errorf("Debug() at Info level should produce no output, got %q", buf.String())
	}

	// Test Info at Info level
	buf.Reset()
	testLogger.Info("test info")
	if !strings.Contains(buf.String(), "[INFO]") {
		t.Errorf("Info() output = %q, want to contain [INFO]", buf.String())
	}

	// Test Warn
	buf.Reset()
	testLogger.Warn("test warn")
	if !strings.Contains(buf.String(), "[WARN]") {
		t.Errorf("Warn() output = %q, want to contain [WARN]", buf.String())
	}

	// Test Error
	buf.Reset()
	testLogger.Error("test error")
	if !strings.Contains(buf.String(), "[ERROR]") {
		t.Errorf("Error() output = %q, want to contain [ERROR]", buf.String())
	}
}

func TestGetLevel(t *testing.T) {
	SetLevel(LevelWarn)
	if Default().GetLevel() != LevelWarn {
		t.Errorf("GetLevel() = %v, want %v", Default().GetLevel(), LevelWarn)
	}
}

func TestGetLevelString(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			SetLevel(tt.level)
			result := GetLevelString()
			if result != tt.expected {
				t.Errorf("GetLevelString() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestComponentOutput(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)
	l.SetLevel(LevelDebug)

	l.With("tileset").Debug("tile %d out of range", 0x500)
	if !strings.Contains(buf.String(), "[DEBUG] tileset: tile 1280 out of range") {
		t.Errorf("component output = %q", buf.String())
	}
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)
	l.SetFormatFromString("JSON")

	l.With("rom").Warn("checksum mismatch")
	var line jsonLine
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("output %q is not JSON: %v", buf.String(), err)
	}
	if line.Level != "WARN" || line.Component != "rom" || line.Msg != "checksum mismatch" {
		t.Errorf("unexpected JSON line %+v", line)
	}

	buf.Reset()
	l.SetFormatFromString("text")
	l.Info("plain")
	if !strings.Contains(buf.String(), "[INFO] plain") {
		t.Errorf("text output = %q", buf.String())
	}
}

func TestSetOutput(t *testing.T) {
	var first, second bytes.Buffer
	l := New(&first)
	l.SetOutput(&second)
	l.Error("moved")
	if first.Len() != 0 || !strings.Contains(second.String(), "moved") {
		t.Errorf("SetOutput did not redirect: first=%q second=%q", first.String(), second.String())
	}
}
