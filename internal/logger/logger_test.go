package logger

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestNewRespectsLogLevelEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	if got := New().GetLevel(); got != zerolog.WarnLevel {
		t.Errorf("level = %v, want warn", got)
	}
}

func TestNewDefaultsToInfo(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	if got := New().GetLevel(); got != zerolog.InfoLevel {
		t.Errorf("level with no LOG_LEVEL = %v, want info", got)
	}

	t.Setenv("LOG_LEVEL", "bogus")
	if got := New().GetLevel(); got != zerolog.InfoLevel {
		t.Errorf("level with invalid LOG_LEVEL = %v, want info", got)
	}
}
