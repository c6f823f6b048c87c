package telemetry

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"
)

func TestInfoWritesJSONWithFields(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stdout) })

	Info("task.status", map[string]any{"task_id": "t-1", "status_transition": "pending->processing"})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log line %q: %v", buf.String(), err)
	}
	if entry["msg"] != "task.status" {
		t.Fatalf("expected msg task.status, got %v", entry["msg"])
	}
	if entry["level"] != "info" {
		t.Fatalf("expected level info, got %v", entry["level"])
	}
	if entry["task_id"] != "t-1" {
		t.Fatalf("expected task_id field, got %v", entry["task_id"])
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("expected ts field in %v", entry)
	}
}

func TestSetLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(os.Stdout)
		SetLevel("info")
	})

	SetLevel("warn")
	Info("dropped", nil)
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered at warn level, got %q", buf.String())
	}
	Warn("kept", nil)
	if buf.Len() == 0 {
		t.Fatalf("expected warn line to be written")
	}
}
