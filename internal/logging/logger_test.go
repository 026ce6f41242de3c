package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLoggerHonoursLevel(t *testing.T) {
	testCases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"":        zapcore.InfoLevel,
		"WARNING": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"chatty":  zapcore.InfoLevel,
	}
	for level, expected := range testCases {
		for _, format := range []string{"json", "console"} {
			logger, err := NewLogger(level, format)
			if err != nil {
				t.Fatalf("unexpected error for level %q format %q: %v", level, format, err)
			}
			if !logger.Core().Enabled(expected) {
				t.Fatalf("expected level %s to be enabled for %q", expected, level)
			}
			if expected > zapcore.DebugLevel && logger.Core().Enabled(expected-1) {
				t.Fatalf("expected level below %s to be disabled for %q", expected, level)
			}
		}
	}
}
