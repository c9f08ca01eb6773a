package logging

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitializeSilentByDefault(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "")
	if err := Initialize(""); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if GetLogger().Core().Enabled(zapcore.ErrorLevel) {
		t.Error("logger should be silent when no level is configured")
	}
}

func TestInitializeFromEnv(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "warn")
	if err := InitializeFromEnv(); err != nil {
		t.Fatalf("InitializeFromEnv() error = %v", err)
	}
	core := GetLogger().Core()
	if core.Enabled(zapcore.InfoLevel) {
		t.Error("info should be disabled at warn level")
	}
	if !core.Enabled(zapcore.WarnLevel) {
		t.Error("warn should be enabled at warn level")
	}
}

func TestLogDecodeError(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	LogDecodeError("stdin", errors.New("boom"), []byte{0x01, 0xff})

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d log entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["hex"] != "01ff" {
		t.Errorf("hex field = %v, want 01ff", fields["hex"])
	}
	if fields["source"] != "stdin" {
		t.Errorf("source field = %v, want stdin", fields["source"])
	}
}

func TestDumps(t *testing.T) {
	data := []byte("ok\x00\x7f")
	if got := hexDump(data); got != "6f6b007f" {
		t.Errorf("hexDump() = %q", got)
	}
	if got := asciiDump(data); got != "ok.." {
		t.Errorf("asciiDump() = %q", got)
	}
	big := make([]byte, 300)
	if got := hexDump(big); len(got) != 512+3 {
		t.Errorf("hexDump() of 300 bytes has length %d, want %d", len(got), 512+3)
	}
}
