package logging

import (
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitialize_SilentByDefault(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "")

	if err := Initialize(""); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	if GetLogger().Core().Enabled(zapcore.ErrorLevel) {
		t.Error("logger should be silent when no level is configured")
	}
}

func TestInitialize_FromEnv(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "warn")

	if err := InitializeFromEnv(); err != nil {
		t.Fatalf("InitializeFromEnv() error = %v", err)
	}
	defer SetLogger(zap.NewNop())

	if GetLogger().Core().Enabled(zapcore.InfoLevel) {
		t.Error("info should be disabled at warn level")
	}
	if !GetLogger().Core().Enabled(zapcore.WarnLevel) {
		t.Error("warn should be enabled at warn level")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{" warn ", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"verbose", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLogAPIResponse_TruncatesBody(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(zap.NewNop())

	body := []byte(strings.Repeat("x", maxLoggedBody+100))
	LogAPIResponse("fetch", 200, 150*time.Millisecond, body, false)

	entries := logs.FilterMessage("API response").All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}

	logged := entries[0].ContextMap()["body"].(string)
	if len(logged) != maxLoggedBody+3 || !strings.HasSuffix(logged, "...") {
		t.Errorf("body not truncated: len=%d", len(logged))
	}
	if entries[0].ContextMap()["length"] != int64(len(body)) {
		t.Errorf("length = %v, want %d", entries[0].ContextMap()["length"], len(body))
	}
}

func TestLogAPIResponse_SensitiveBody(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(zap.NewNop())

	body := []byte(`{"data":{"token":"secret-token"}}`)
	LogAPIResponse("token", 200, time.Millisecond, body, true)

	entries := logs.FilterMessage("API response").All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	ctx := entries[0].ContextMap()
	if ctx["body"] != "[redacted]" {
		t.Errorf("body = %v, want [redacted]", ctx["body"])
	}
	if ctx["length"] != int64(len(body)) {
		t.Errorf("length = %v, want %d", ctx["length"], len(body))
	}
}

func TestLogCommand_Levels(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	SetLogger(zap.New(core))
	defer SetLogger(zap.NewNop())

	LogCommand("abc", "heater_state", 2, nil)
	LogCommand("def", "power_state", 1, errTest)

	if n := logs.FilterLevelExact(zapcore.InfoLevel).Len(); n != 1 {
		t.Errorf("info entries = %d, want 1", n)
	}
	if n := logs.FilterLevelExact(zapcore.WarnLevel).Len(); n != 1 {
		t.Errorf("warn entries = %d, want 1", n)
	}
}

func TestRedact(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"abc", "***"},
		{"abcdef", "******"},
		{"abcdefgh", "ab****gh"},
	}

	for _, tt := range tests {
		if got := Redact(tt.in); got != tt.want {
			t.Errorf("Redact(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

type testError string

func (e testError) Error() string { return string(e) }

const errTest = testError("boom")
