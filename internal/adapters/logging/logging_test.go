package logging

import (
	"log/slog"
	"testing"

	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestHandler_ForwardsAttributes verifies slog records reach the zap core.
func TestHandler_ForwardsAttributes(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := slog.New(NewHandler(core))

	logger.Info("booking_created", "booking_id", "b-1", "member_id", "m-1")
	logger.Debug("request", "status", 200)

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	first := entries[0]
	if first.Message != "booking_created" || first.Level != zapcore.InfoLevel {
		t.Errorf("entry = %s/%s", first.Level, first.Message)
	}
	fields := first.ContextMap()
	if fields["booking_id"] != "b-1" || fields["member_id"] != "m-1" {
		t.Errorf("fields = %v", fields)
	}
}

// TestHandler_RespectsLevel verifies records below the core level are dropped.
func TestHandler_RespectsLevel(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	logger := slog.New(NewHandler(core))

	logger.Info("promotion_sweep_completed")
	logger.Warn("slow_request", "duration_ms", 250.0)

	if logs.Len() != 1 {
		t.Fatalf("entries = %d, want 1", logs.Len())
	}
	if logs.All()[0].Message != "slow_request" {
		t.Errorf("message = %q", logs.All()[0].Message)
	}
}

// TestNewLogger builds both environment variants.
func TestNewLogger(t *testing.T) {
	for _, env := range []string{"production", "development"} {
		logger, err := NewLogger(env)
		if err != nil {
			t.Fatalf("NewLogger(%s): %v", env, err)
		}
		if logger == nil {
			t.Fatalf("NewLogger(%s) = nil", env)
		}
	}
}
