package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"

	"authcore/internal/config"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"WARN":    zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(config.LogConfig{Env: "development", Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestNewProductionJSON(t *testing.T) {
	log, err := New(config.LogConfig{Env: "production", Level: "warn", Format: "json"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if log.Core().Enabled(zapcore.InfoLevel) {
		t.Fatal("info should be disabled at warn level")
	}
	if !log.Core().Enabled(zapcore.ErrorLevel) {
		t.Fatal("error should be enabled at warn level")
	}
}
