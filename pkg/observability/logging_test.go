package observability

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(WARN, &buf)

	logger.Debug("hidden")
	logger.Info("hidden too")
	logger.Warn("visible")
	logger.Error("also visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("low-severity messages leaked: %q", out)
	}
	if !strings.Contains(out, "WARN: visible") {
		t.Errorf("warn message missing: %q", out)
	}
	if !strings.Contains(out, "ERROR: also visible") {
		t.Errorf("error message missing: %q", out)
	}
}

func TestLogger_FieldsAreSortedAndInherited(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(INFO, &buf).WithField("b", 2).WithField("a", 1)

	logger.Info("msg", map[string]interface{}{"c": 3})

	out := buf.String()
	if !strings.Contains(out, "a=1 b=2 c=3") {
		t.Errorf("fields missing or unordered: %q", out)
	}
}

func TestLogger_WithFieldsDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := NewLogger(INFO, &buf)
	parent.WithField("child", true)

	parent.Info("msg")
	if strings.Contains(buf.String(), "child") {
		t.Error("child field leaked into parent logger")
	}
}

func TestLogger_Formatf(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(DEBUG, &buf)

	logger.Infof("answer=%d", 42)
	if !strings.Contains(buf.String(), "answer=42") {
		t.Errorf("formatted message missing: %q", buf.String())
	}
}

func TestLogOperation(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(DEBUG, &buf)

	if err := logger.LogOperation("noop", func() error { return nil }); err != nil {
		t.Fatalf("LogOperation returned %v", err)
	}
	if !strings.Contains(buf.String(), "noop completed") {
		t.Errorf("completion line missing: %q", buf.String())
	}

	buf.Reset()
	wantErr := errors.New("boom")
	if err := logger.LogOperation("broken", func() error { return wantErr }); !errors.Is(err, wantErr) {
		t.Fatalf("LogOperation swallowed the error, got %v", err)
	}
	if !strings.Contains(buf.String(), "broken failed") {
		t.Errorf("failure line missing: %q", buf.String())
	}
}
