package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoggerEmitNDJSON(t *testing.T) {
	var out bytes.Buffer
	l, closer, err := New(&out, "")
	if err != nil {
		t.Fatal(err)
	}
	if closer != nil {
		t.Fatalf("expected nil closer without log file")
	}
	l.Emit(Event{Event: "wrap_file", File: "units.csv", Count: 3})
	l.Emit(Event{Level: "error", Event: "scan_issue", File: "units.csv", Row: 12, Key: "UNIT_A_DESC", Error: "invalid_m_literal_dots"})

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("unexpected line count: %d", len(lines))
	}
	var ev Event
	if err := json.Unmarshal([]byte(lines[0]), &ev); err != nil {
		t.Fatalf("line not json: %v", err)
	}
	if ev.Event != "wrap_file" || ev.Count != 3 || ev.Level != "info" || ev.TS == "" {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if !strings.Contains(lines[1], "\"level\":\"error\"") || !strings.Contains(lines[1], "\"row\":12") {
		t.Fatalf("unexpected second line: %s", lines[1])
	}
}

func TestLoggerLogFileAppend(t *testing.T) {
	var out bytes.Buffer
	path := filepath.Join(t.TempDir(), "run.log")
	l, closer, err := New(&out, path)
	if err != nil {
		t.Fatal(err)
	}
	l.Emit(Event{Event: "startup"})
	if closer != nil {
		_ = closer.Close()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "\"event\":\"startup\"") {
		t.Fatalf("log file missing event: %s", b)
	}
	if out.String() == "" {
		t.Fatalf("stdout should mirror the log file")
	}
}

func TestNilLoggerEmit(t *testing.T) {
	var l *Logger
	l.Emit(Event{Event: "noop"})
}
