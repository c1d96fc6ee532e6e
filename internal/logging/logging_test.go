package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ziadkadry99/gemchat/internal/config"
)

func TestNewWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, config.LogConfig{Level: "info", Format: "json"})

	log.Info("upload stored", "name", "file-1.png")
	log.Debug("dropped")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid JSON: %v, output: %s", err, buf.String())
	}
	if entry["msg"] != "upload stored" {
		t.Errorf("msg = %q, want %q", entry["msg"], "upload stored")
	}
	if entry["name"] != "file-1.png" {
		t.Errorf("name = %v", entry["name"])
	}
	if strings.Contains(buf.String(), "dropped") {
		t.Error("debug line written at info level")
	}
}

func TestNewWriterText(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, config.LogConfig{Level: "debug", Format: "text"})
	log.Debug("hello", "k", "v")
	if !strings.Contains(buf.String(), "msg=hello") || !strings.Contains(buf.String(), "k=v") {
		t.Errorf("unexpected text output: %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestOpenOutputStd(t *testing.T) {
	for output, want := range map[string]*os.File{"stdout": os.Stdout, "stderr": os.Stderr, "": os.Stderr} {
		w, closer, err := openOutput(output)
		if err != nil {
			t.Fatalf("openOutput(%q): %v", output, err)
		}
		if w != want {
			t.Errorf("openOutput(%q) returned the wrong stream", output)
		}
		closer()
	}
}

func TestNewFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gemchat.log")

	log, closer, err := New(config.LogConfig{Level: "info", Format: "text", Output: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.Info("server started", "addr", ":3000")
	if err := closer(); err != nil {
		t.Fatalf("closer: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "server started") {
		t.Errorf("file content = %q", string(data))
	}
}

func TestNewInvalidPath(t *testing.T) {
	if _, _, err := New(config.LogConfig{Output: "/nonexistent/dir/log.txt"}); err == nil {
		t.Error("expected error for invalid path")
	}
}
