package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestBasicLoggerWritesArgs(t *testing.T) {
	var buf bytes.Buffer
	lgr := &BasicLogger{Writer: &buf}

	lgr.Info("view applied", "type", "role")
	output := buf.String()
	if !strings.Contains(output, "[INFO] view applied") {
		t.Fatalf("expected output to contain message, got %q", output)
	}
	if !strings.Contains(output, "type") || !strings.Contains(output, "role") {
		t.Fatalf("expected output to include args, got %q", output)
	}
}

func TestWithFieldsHelper(t *testing.T) {
	var buf bytes.Buffer
	lgr := WithFields(&BasicLogger{Writer: &buf}, map[string]any{
		"operator": "7",
	})

	lgr.Debug("resolve", "mode", "browse")
	output := buf.String()
	if !strings.Contains(output, "operator") || !strings.Contains(output, "7") {
		t.Fatalf("expected output to include fields, got %q", output)
	}
	if !strings.Contains(output, "mode") || !strings.Contains(output, "browse") {
		t.Fatalf("expected output to include args, got %q", output)
	}
}

func TestWithFieldsOnDiscardIsNoop(t *testing.T) {
	lgr := WithFields(Discard(), map[string]any{"a": 1})
	if lgr == nil {
		t.Fatalf("expected logger")
	}
	lgr.Info("ignored")
}
