package debug

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOpen(t *testing.T) {
	t.Run("writes_json_lines", func(t *testing.T) {
		logDir := filepath.Join(t.TempDir(), "logs")

		logger, closeLog := Open(logDir, "debug")
		logger.WithField("paths", 3).Debug("built ranges")
		closeLog()

		data, err := os.ReadFile(filepath.Join(logDir, FileName))
		if err != nil {
			t.Fatalf("failed to read log file: %v", err)
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(strings.TrimSpace(string(data))), &entry); err != nil {
			t.Fatalf("log line is not JSON: %v\n%s", err, data)
		}
		if entry["msg"] != "built ranges" {
			t.Errorf("msg = %v, want %q", entry["msg"], "built ranges")
		}
		if entry["paths"] != float64(3) {
			t.Errorf("paths = %v, want 3", entry["paths"])
		}
		if entry["level"] != "debug" {
			t.Errorf("level = %v, want debug", entry["level"])
		}
	})

	t.Run("level_filters", func(t *testing.T) {
		logDir := t.TempDir()

		logger, closeLog := Open(logDir, "warn")
		logger.Info("hidden")
		logger.Warn("shown")
		closeLog()

		data, _ := os.ReadFile(filepath.Join(logDir, FileName))
		if strings.Contains(string(data), "hidden") {
			t.Errorf("info entry should be filtered, got: %s", data)
		}
		if !strings.Contains(string(data), "shown") {
			t.Errorf("warn entry missing, got: %s", data)
		}
	})

	t.Run("unwritable_dir_discards", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file")
		if err := os.WriteFile(file, nil, 0o644); err != nil {
			t.Fatal(err)
		}
		logger, closeLog := Open(filepath.Join(file, "logs"), "info")
		defer closeLog()
		logger.Info("goes nowhere")
	})
}

func TestTail(t *testing.T) {
	logDir := t.TempDir()

	lines, err := Tail(logDir, 5)
	if err != nil || lines != nil {
		t.Fatalf("Tail on missing log = %v, %v", lines, err)
	}

	content := "one\ntwo\nthree\nfour\n"
	if err := os.WriteFile(filepath.Join(logDir, FileName), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	lines, err = Tail(logDir, 2)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(lines, ",") != "three,four" {
		t.Errorf("Tail(2) = %v, want [three four]", lines)
	}
	lines, _ = Tail(logDir, 10)
	if len(lines) != 4 {
		t.Errorf("Tail(10) returned %d lines, want 4", len(lines))
	}
}
