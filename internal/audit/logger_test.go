package audit

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"testing"
)

func TestLoggerWritesJSONL(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLogger(dir)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	defer func() { _ = l.Close() }()

	l.LogAction("set_preferred", 1, map[string]interface{}{"rowId": int64(7)}, nil)
	l.LogAction("rebuild", 1, nil, errors.New("STORE_UNAVAILABLE: query failed"))

	file, err := os.Open(l.FilePath())
	if err != nil {
		t.Fatalf("open audit log: %v", err)
	}
	defer func() { _ = file.Close() }()

	var entries []Entry
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("invalid JSONL line: %v", err)
		}
		entries = append(entries, e)
	}

	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Action != "set_preferred" || entries[0].Code != "SUCCESS" || entries[0].Outcome != "success" {
		t.Errorf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].Code != "STORE_UNAVAILABLE" || entries[1].Outcome != "failure" {
		t.Errorf("unexpected second entry: %+v", entries[1])
	}
	if entries[0].Timestamp.IsZero() {
		t.Error("timestamp not set")
	}
}

func TestLoggerAppends(t *testing.T) {
	dir := t.TempDir()

	l1, err := NewLogger(dir)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	l1.LogAction("rebuild", 1, nil, nil)
	_ = l1.Close()

	l2, err := NewLogger(dir)
	if err != nil {
		t.Fatalf("NewLogger reopen: %v", err)
	}
	l2.LogAction("rebuild", 1, nil, nil)
	_ = l2.Close()

	data, err := os.ReadFile(l2.FilePath())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := 0
	for _, b := range data {
		if b == '\n' {
			lines++
		}
	}
	if lines != 2 {
		t.Errorf("expected 2 lines after reopen, got %d", lines)
	}
}

func TestCodeFromError(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, "SUCCESS"},
		{errors.New("NO_MATCHING_CAPABILITY"), "NO_MATCH"},
		{errors.New("modem BUSY"), "BUSY"},
		{errors.New("boom"), "ERROR"},
	}
	for _, tc := range cases {
		if got := codeFromError(tc.err); got != tc.want {
			t.Errorf("codeFromError(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestLoggerCloseIdempotent(t *testing.T) {
	l, err := NewLogger(t.TempDir())
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	// Writes after close are dropped, not panics.
	l.LogAction("rebuild", 1, nil, nil)
}
