package log

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"
)

func TestTestLoggerCapturesEntries(t *testing.T) {
	tl := NewTestLogger()

	tl.Info("fit complete", "rows", 100, "features", 5)
	tl.Warn("slow fold")

	entries := tl.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Level != LevelInfo || entries[0].Message != "fit complete" {
		t.Errorf("unexpected first entry: %+v", entries[0])
	}
	if entries[0].Fields["rows"] != 100 {
		t.Errorf("field rows = %v, want 100", entries[0].Fields["rows"])
	}
}

func TestTestLoggerWithScopesFields(t *testing.T) {
	tl := NewTestLogger()

	child := tl.With("component", "dataset")
	child.Debug("loaded", "rows", 20)

	entries := tl.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected child records to reach the parent, got %d entries", len(entries))
	}
	if entries[0].Fields["component"] != "dataset" {
		t.Errorf("scoped field lost: %+v", entries[0].Fields)
	}
	if entries[0].Fields["rows"] != 20 {
		t.Errorf("call-site field lost: %+v", entries[0].Fields)
	}
}

func TestSetLoggerReplacesDefault(t *testing.T) {
	tl := NewTestLogger()
	SetLogger(tl)
	defer SetLogger(nil)

	GetLoggerWithName("test.component").Info("hello")

	entries := tl.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Fields["component"] != "test.component" {
		t.Errorf("component tag missing: %+v", entries[0].Fields)
	}
}

func TestZerologBackendWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	GetLogger().Error("boom", "op", "Fit")

	out := buf.String()
	if !strings.Contains(out, `"message":"boom"`) || !strings.Contains(out, `"op":"Fit"`) {
		t.Errorf("unexpected zerolog output: %s", out)
	}
}

func TestLevelStrings(t *testing.T) {
	cases := map[Level]string{
		LevelDebug: "DEBUG",
		LevelInfo:  "INFO",
		LevelWarn:  "WARN",
		LevelError: "ERROR",
	}
	for level, want := range cases {
		if got := level.String(); got != want {
			t.Errorf("Level(%d).String() = %q, want %q", level, got, want)
		}
	}
	if !NewTestLogger().Enabled(context.Background(), LevelDebug) {
		t.Error("TestLogger should report all levels enabled")
	}
}
