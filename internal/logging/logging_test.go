package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNew(t *testing.T) {
	for _, env := range []string{"production", "development"} {
		for _, format := range []string{"json", "console"} {
			logger, err := New(env, "debug", format)
			if err != nil {
				t.Fatalf("New(%s, %s): %v", env, format, err)
			}
			if !logger.Core().Enabled(zapcore.DebugLevel) {
				t.Errorf("New(%s, %s): debug level should be enabled", env, format)
			}
		}
	}
}

func TestNew_RejectsUnknownFormat(t *testing.T) {
	if _, err := New("production", "info", "xml"); err == nil {
		t.Error("expected error for unsupported format")
	}
}
