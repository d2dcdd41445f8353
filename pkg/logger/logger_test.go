package logger

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileLoggingWritesJSONLines(t *testing.T) {
	SetConsoleOutput(io.Discard)
	defer SetConsoleOutput(os.Stderr)

	path := filepath.Join(t.TempDir(), "logs", "cardbot.log")
	if err := EnableFileLoggingWithRotation(path, 1, 1); err != nil {
		t.Fatalf("enable file logging: %v", err)
	}
	defer DisableFileLogging()

	InfoCF("dispatcher", "card sent", map[string]interface{}{
		FieldCardPath: "Resources/Adaptivecard1.json",
	})
	DebugC("dispatcher", "below threshold")

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log file: %v", err)
	}
	defer f.Close()

	var lines []map[string]interface{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry map[string]interface{}
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("log line is not JSON: %q: %v", scanner.Text(), err)
		}
		lines = append(lines, entry)
	}
	if len(lines) != 1 {
		t.Fatalf("expected 1 log line, got %d", len(lines))
	}
	entry := lines[0]
	if entry["level"] != "info" || entry["component"] != "dispatcher" || entry["message"] != "card sent" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if entry[FieldCardPath] != "Resources/Adaptivecard1.json" {
		t.Fatalf("missing card_path field: %v", entry)
	}
	if caller, _ := entry["caller"].(string); !strings.Contains(caller, "logger_test.go") {
		t.Fatalf("caller should point at the test, got %q", caller)
	}
}

func TestRotateIfNeededRenamesFullFile(t *testing.T) {
	dir := t.TempDir()
	r := &rotatingFile{}
	if err := r.open(filepath.Join(dir, "cardbot.log"), 16, 1); err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.close()

	if _, err := r.Write([]byte("0123456789abcdef\n")); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if _, err := r.Write([]byte("next\n")); err != nil {
		t.Fatalf("second write: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected active file plus one rotated file, got %d", len(entries))
	}
	data, err := os.ReadFile(filepath.Join(dir, "cardbot.log"))
	if err != nil {
		t.Fatalf("read active file: %v", err)
	}
	if string(data) != "next\n" {
		t.Fatalf("active file should only hold the post-rotation write, got %q", data)
	}
}

func TestFatalExits(t *testing.T) {
	SetConsoleOutput(io.Discard)
	defer SetConsoleOutput(os.Stderr)

	code := -1
	exit = func(c int) { code = c }
	defer func() { exit = os.Exit }()

	FatalC("main", "boom")
	if code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
}

func TestRotationRecoversWhenRenameFails(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cardbot.log")
	r := &rotatingFile{}
	if err := r.open(path, 10, 1); err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.close()

	if _, err := r.Write([]byte("0123456789")); err != nil {
		t.Fatalf("first write: %v", err)
	}
	// The open handle keeps its size, but renaming the missing path fails.
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := r.Write([]byte("rotate\n")); err == nil {
		t.Fatalf("expected the failed rotation to be reported")
	}

	if _, err := r.Write([]byte("after\n")); err != nil {
		t.Fatalf("write after failed rotation: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file should have been reopened: %v", err)
	}
	if string(data) != "after\n" {
		t.Fatalf("unexpected log content %q", data)
	}
}
