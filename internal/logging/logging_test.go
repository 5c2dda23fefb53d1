package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew_Defaults(t *testing.T) {
	logger, err := New(Config{})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if !logger.Core().Enabled(zapcore.InfoLevel) {
		t.Error("info level disabled by default")
	}
	if logger.Core().Enabled(zapcore.DebugLevel) {
		t.Error("debug level enabled by default")
	}
}

func TestNew_InvalidSettings(t *testing.T) {
	if _, err := New(Config{Level: "loud"}); err == nil {
		t.Error("New() accepted an unknown level")
	}
	if _, err := New(Config{Format: "xml"}); err == nil {
		t.Error("New() accepted an unknown format")
	}
}

func TestNew_FileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "todosync.log")
	logger, err := New(Config{Level: "debug", Format: "json", File: path, MaxBackups: 1})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	logger.Named("facade").Debug("saved todo")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	line := strings.TrimSpace(string(data))
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("log line is not JSON: %q", line)
	}
	if entry["msg"] != "saved todo" || entry["logger"] != "facade" {
		t.Errorf("unexpected entry: %v", entry)
	}
}
