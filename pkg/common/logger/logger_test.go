package logger

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func TestInitDefaultsToJSON(t *testing.T) {
	t.Setenv("LOG_FORMAT", "")
	Init()

	if _, ok := Log.Formatter.(*logrus.JSONFormatter); !ok {
		t.Fatalf("expected JSON formatter, got %T", Log.Formatter)
	}
}

func TestInitTextFormat(t *testing.T) {
	t.Setenv("LOG_FORMAT", "text")
	Init()

	if _, ok := Log.Formatter.(*logrus.TextFormatter); !ok {
		t.Fatalf("expected text formatter, got %T", Log.Formatter)
	}
}

func TestInitFallsBackToInfoLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "not-a-level")
	Init()

	if Log.GetLevel() != logrus.InfoLevel {
		t.Fatalf("expected info level fallback, got %v", Log.GetLevel())
	}
}
