package logger

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("warn")
	if err != nil {
		t.Fatalf("parse level: %v", err)
	}
	if level != LevelWarn {
		t.Fatalf("expected warn, got %v", level)
	}

	if _, err := ParseLevel("shouting"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)
	prev := GetLevel()
	defer SetLevel(prev)

	SetLevel(LevelWarn)
	Debug("hidden %d", 1)
	Warn("shown %d", 2)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug message leaked at warn level: %s", out)
	}
	if !strings.Contains(out, "[WARN] shown 2") {
		t.Fatalf("warn message missing: %s", out)
	}
}
