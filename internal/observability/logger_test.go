package observability

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// TestParseLogLevel verifies that parseLogLevel correctly parses log level
// strings from environment variables, handling case-insensitivity and whitespace.
func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		env    string
		expect zapcore.Level
	}{
		{"", zap.InfoLevel},
		{"INFO", zap.InfoLevel},
		{"DEBUG", zap.DebugLevel},
		{"WARN", zap.WarnLevel},
		{"ERROR", zap.ErrorLevel},
		{"debug", zap.DebugLevel},
		{"  warn  ", zap.WarnLevel},
		{"invalid", zap.InfoLevel},
	}
	for _, tt := range tests {
		level := parseLogLevel(tt.env)
		if got := level.Level(); got != tt.expect {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.env, got, tt.expect)
		}
	}
}

// TestNewLogger verifies that NewLogger creates a usable logger.
func TestNewLogger(t *testing.T) {
	logger, err := NewLogger()
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	if logger == nil {
		t.Fatal("NewLogger() returned nil logger")
	}

	logger.Info("test message")
	_ = logger.Sync() // best-effort; can fail on /dev/stderr in test env
}

// TestLoggerFromContext verifies the request logger wins over the fallback,
// and that a nil fallback never yields a nil logger.
func TestLoggerFromContext(t *testing.T) {
	fallback := zap.NewNop()
	reqLogger := zap.NewExample()

	if got := LoggerFromContext(context.Background(), fallback); got != fallback {
		t.Error("LoggerFromContext() without logger should return fallback")
	}
	ctx := WithLogger(context.Background(), reqLogger)
	if got := LoggerFromContext(ctx, fallback); got != reqLogger {
		t.Error("LoggerFromContext() should return the context logger")
	}
	if got := LoggerFromContext(context.Background(), nil); got == nil {
		t.Error("LoggerFromContext() with nil fallback returned nil")
	}
}

func TestFlushTelemetry_NilLogger(t *testing.T) {
	if err := FlushTelemetry(context.Background(), nil); err != nil {
		t.Errorf("FlushTelemetry(nil) error = %v", err)
	}
}

func TestCorrelationID(t *testing.T) {
	if got := CorrelationID(context.Background()); got != "" {
		t.Errorf("CorrelationID() = %q, want empty", got)
	}
	ctx := WithCorrelationID(context.Background(), "abc-123")
	if got := CorrelationID(ctx); got != "abc-123" {
		t.Errorf("CorrelationID() = %q, want abc-123", got)
	}
}
