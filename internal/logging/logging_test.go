package logging

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func TestPrintf_RespectsLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New("test", LevelInfo).WithOutput(log.New(&buf, "", 0))

	logger.Debugf("hidden %d", 1)
	logger.Infof("shown %d", 2)
	logger.Errorf("shown %d", 3)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug message written at info level: %q", out)
	}
	if !strings.Contains(out, "test: shown 2") {
		t.Errorf("expected prefixed info message, got %q", out)
	}
	if !strings.Contains(out, "test: shown 3") {
		t.Errorf("expected prefixed error message, got %q", out)
	}
}

func TestPrintf_NilLoggerDiscards(t *testing.T) {
	t.Parallel()

	var logger *Logger
	logger.Errorf("nothing happens")
	if logger.Level() != LevelNone {
		t.Errorf("expected LevelNone for nil logger, got %d", logger.Level())
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]Level{
		"":      LevelError,
		"none":  LevelNone,
		"ERROR": LevelError,
		"info":  LevelInfo,
		" debug": LevelDebug,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil {
			t.Errorf("ParseLevel(%q) failed: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseLevel(%q) = %d, want %d", in, got, want)
		}
	}

	if _, err := ParseLevel("verbose"); err == nil {
		t.Error("expected error for unknown level")
	}
}
