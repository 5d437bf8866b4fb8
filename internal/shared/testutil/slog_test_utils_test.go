package testutil

import (
	"log/slog"
	"testing"
)

func TestBufferedSlogHandler(t *testing.T) {
	t.Run("captures log records", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Info("test message", slog.String("key", "value"))
		logger.Error("error message", slog.Int("code", 500))

		if got := len(handler.Records()); got != 2 {
			t.Errorf("expected 2 records, got %d", got)
		}
		if !handler.ContainsMessage("test message") {
			t.Error("expected to find 'test message'")
		}
		if !handler.ContainsAttr("key", "value") {
			t.Error("expected to find attribute key=value")
		}
	})

	t.Run("filters by level", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Debug("debug msg")
		logger.Info("info msg")
		logger.Warn("warn msg")
		logger.Error("error msg")

		if got := len(handler.RecordsByLevel(slog.LevelInfo)); got != 1 {
			t.Errorf("expected 1 info record, got %d", got)
		}
		if got := len(handler.RecordsByLevel(slog.LevelError)); got != 1 {
			t.Errorf("expected 1 error record, got %d", got)
		}
	})

	t.Run("captures logger With attributes", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.With(slog.String("component", "backfill")).
			With(slog.String("period", "2025-07")).
			Warn("period fetch retry", slog.Int("attempt", 1))

		if !handler.ContainsAttr("component", "backfill") {
			t.Error("expected attribute from With to be captured")
		}
		if !handler.ContainsAttr("period", "2025-07") {
			t.Error("expected chained With attribute to be captured")
		}
		if !handler.ContainsAttr("attempt", int64(1)) {
			t.Error("expected record attribute to be captured")
		}
	})

	t.Run("derived handlers share the buffer", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Info("plain")
		logger.With(slog.String("k", "v")).Info("derived")

		if handler.Count() != 2 {
			t.Errorf("expected both records in one buffer, got %d", handler.Count())
		}
	})

	t.Run("clear", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Info("message 1")
		logger.Info("message 2")
		if handler.Count() != 2 {
			t.Errorf("expected 2 records, got %d", handler.Count())
		}

		handler.Clear()
		if handler.Count() != 0 {
			t.Errorf("expected 0 records after clear, got %d", handler.Count())
		}
	})

	t.Run("thread safety", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		done := make(chan bool)
		for i := 0; i < 10; i++ {
			go func(n int) {
				logger.Info("concurrent log", slog.Int("goroutine", n))
				done <- true
			}(i)
		}
		for i := 0; i < 10; i++ {
			<-done
		}

		if handler.Count() != 10 {
			t.Errorf("expected 10 records from concurrent logging, got %d", handler.Count())
		}
	})
}

func TestAssertionHelpers(t *testing.T) {
	logger, handler := NewTestLogger(t)

	logger.Info("important message", slog.String("component", "test"))
	logger.Warn("document fetch failed", slog.Int("retry", 3))

	AssertLogContains(t, handler, slog.LevelInfo, "important")
	AssertLogContains(t, handler, slog.LevelWarn, "fetch failed")
	AssertNoErrors(t, handler)

	logger.Error("something went wrong")
	if got := len(handler.RecordsByLevel(slog.LevelError)); got != 1 {
		t.Errorf("expected to capture the error log, got %d records", got)
	}
}
