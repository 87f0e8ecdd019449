package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestZerologJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: InfoLevel, Format: FormatJSON, Console: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer logger.Close()

	logger.Info(context.Background(), "Listed tree", Fields{"entries": 3})

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["message"] != "Listed tree" {
		t.Errorf("message = %v, want Listed tree", entry["message"])
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v, want info", entry["level"])
	}
	if entry["entries"] != float64(3) {
		t.Errorf("entries = %v, want 3", entry["entries"])
	}
	if _, ok := entry["time"]; !ok {
		t.Error("entry has no timestamp")
	}
}

func TestZerologLevels(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: WarnLevel, Format: FormatJSON, Console: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()

	logger.Debug(ctx, "debug message", nil)
	logger.Info(ctx, "info message", nil)
	logger.Warn(ctx, "warn message", nil)
	logger.Error(ctx, "error message", errors.New("boom"), nil)

	out := buf.String()
	if strings.Contains(out, "debug message") || strings.Contains(out, "info message") {
		t.Errorf("messages below the level were written: %s", out)
	}
	if !strings.Contains(out, "warn message") {
		t.Error("warn message missing")
	}
	if !strings.Contains(out, "error message") || !strings.Contains(out, "boom") {
		t.Error("error message or cause missing")
	}
}

func TestZerologText(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: DebugLevel, Format: FormatText, Console: &buf, NoColor: true})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	logger.Debug(context.Background(), "Starting walk", Fields{"root": "/tmp/x"})

	out := buf.String()
	if !strings.Contains(out, "Starting walk") {
		t.Errorf("text output missing message: %q", out)
	}
	if !strings.Contains(out, "root=/tmp/x") {
		t.Errorf("text output missing field: %q", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Errorf("text output has colors with NoColor: %q", out)
	}
}

func TestZerologWithFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: InfoLevel, Format: FormatJSON, Console: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	child := logger.WithFields(Fields{"run": "abc"})
	child.Info(context.Background(), "child", Fields{"n": 1})

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["run"] != "abc" {
		t.Errorf("run = %v, want abc", entry["run"])
	}
}

func TestZerologFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "nested", "dir", "rdt.log")
	logger, err := New(Config{Level: InfoLevel, Format: FormatText, File: logPath})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	logger.Info(context.Background(), "to file", nil)
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(data), "to file") {
		t.Errorf("log file content = %q", data)
	}
	if strings.Contains(string(data), "\x1b[") {
		t.Error("log file contains color codes")
	}
}

func TestZerologConsoleLevel(t *testing.T) {
	var console bytes.Buffer
	logPath := filepath.Join(t.TempDir(), "rdt.log")
	logger, err := New(Config{
		Level:        DebugLevel,
		ConsoleLevel: WarnLevel,
		Format:       FormatJSON,
		Console:      &console,
		File:         logPath,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()
	logger.Debug(ctx, "details", nil)
	logger.Warn(ctx, "attention", nil)
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if strings.Contains(console.String(), "details") {
		t.Errorf("console got a debug message: %s", console.String())
	}
	if !strings.Contains(console.String(), "attention") {
		t.Error("console is missing the warning")
	}
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(data), "details") || !strings.Contains(string(data), "attention") {
		t.Errorf("log file content = %q", data)
	}
}

func TestRotatingFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "test.log")
	file, err := OpenRotatingFile(logPath, 100, 2)
	if err != nil {
		t.Fatalf("OpenRotatingFile() error = %v", err)
	}

	line := []byte(strings.Repeat("x", 60) + "\n")
	for i := 0; i < 20; i++ {
		if _, err := file.Write(line); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}
	if err := file.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	for _, name := range []string{logPath, logPath + ".1", logPath + ".2"} {
		if _, err := os.Stat(name); err != nil {
			t.Errorf("%s should exist: %v", filepath.Base(name), err)
		}
	}
	if _, err := os.Stat(logPath + ".3"); !os.IsNotExist(err) {
		t.Error("only two backups should be kept")
	}

	if _, err := file.Write(line); err == nil {
		t.Error("Write after Close should fail")
	}
}

func TestRotatingFileAppends(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "test.log")
	if err := os.WriteFile(logPath, []byte("existing\n"), 0644); err != nil {
		t.Fatal(err)
	}
	file, err := OpenRotatingFile(logPath, 0, 0)
	if err != nil {
		t.Fatalf("OpenRotatingFile() error = %v", err)
	}
	file.Write([]byte("more\n"))
	file.Close()

	data, _ := os.ReadFile(logPath)
	if string(data) != "existing\nmore\n" {
		t.Errorf("content = %q", data)
	}
}

func TestRotatingFileConcurrentWrites(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "test.log")
	logger, err := New(Config{Level: InfoLevel, Format: FormatJSON, File: logPath, MaxSize: 4096, MaxBackups: 3})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				logger.Info(context.Background(), "concurrent", Fields{"worker": n, "j": j})
			}
		}(i)
	}
	wg.Wait()
	if err := logger.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestNullLogger(t *testing.T) {
	logger := NewNullLogger()
	ctx := context.Background()

	// None of these should panic
	logger.Debug(ctx, "debug", nil)
	logger.Info(ctx, "info", nil)
	logger.Warn(ctx, "warn", nil)
	logger.Error(ctx, "error", nil, nil)

	if logger.WithFields(Fields{"key": "value"}) == nil {
		t.Error("WithFields should return a logger")
	}
	if err := logger.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  Level
	}{
		{"debug", DebugLevel},
		{"DEBUG", DebugLevel},
		{"info", InfoLevel},
		{"warn", WarnLevel},
		{"warning", WarnLevel},
		{"error", ErrorLevel},
		{"bogus", InfoLevel},
		{"", InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLevelString(t *testing.T) {
	if LevelString(WarnLevel) != "WARN" {
		t.Errorf("LevelString(WarnLevel) = %s", LevelString(WarnLevel))
	}
	if LevelString(Level(42)) != "UNKNOWN" {
		t.Errorf("LevelString(42) = %s", LevelString(Level(42)))
	}
}

func TestDefaultLogPath(t *testing.T) {
	p := DefaultLogPath()
	if filepath.Base(p) != "rdt.log" || filepath.Base(filepath.Dir(p)) != "rdt" {
		t.Errorf("DefaultLogPath() = %s", p)
	}
}
