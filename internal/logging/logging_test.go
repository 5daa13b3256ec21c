package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"
)

func TestNewLogger(t *testing.T) {
	t.Run("with default output", func(t *testing.T) {
		logger := NewLogger(Config{Level: InfoLevel})
		if logger == nil {
			t.Fatal("NewLogger returned nil")
		}
	})

	t.Run("with custom output", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger := NewLogger(Config{Level: InfoLevel, Output: buf})
		if logger.writer != buf {
			t.Error("Logger should use provided output writer")
		}
	})
}

func TestLogLevelFiltering(t *testing.T) {
	tests := []struct {
		name      string
		configLvl LogLevel
		logLvl    LogLevel
		shouldLog bool
	}{
		{"debug logs debug", DebugLevel, DebugLevel, true},
		{"debug logs error", DebugLevel, ErrorLevel, true},
		{"info skips debug", InfoLevel, DebugLevel, false},
		{"info logs warn", InfoLevel, WarnLevel, true},
		{"warn skips info", WarnLevel, InfoLevel, false},
		{"warn logs warn", WarnLevel, WarnLevel, true},
		{"error skips warn", ErrorLevel, WarnLevel, false},
		{"silent skips error", SilentLevel, ErrorLevel, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := NewLogger(Config{Level: tt.configLvl, Output: buf})

			logger.log(tt.logLvl, "test message", nil)

			hasOutput := buf.Len() > 0
			if hasOutput != tt.shouldLog {
				t.Errorf("shouldLog = %v, but hasOutput = %v", tt.shouldLog, hasOutput)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", DebugLevel},
		{"WARNING", WarnLevel},
		{" error ", ErrorLevel},
		{"quiet", SilentLevel},
		{"", InfoLevel},
		{"verbose", InfoLevel},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestJSONFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLogger(Config{
		Level:  InfoLevel,
		Format: JSONFormat,
		Output: buf,
	})

	logger.Info("cache hit", map[string]interface{}{
		"classes":   42,
		"namespace": "yarn",
	})

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Output is not valid JSON: %v\nOutput: %s", err, buf.String())
	}

	if entry["level"] != "info" {
		t.Errorf("level = %v, want 'info'", entry["level"])
	}
	if entry["message"] != "cache hit" {
		t.Errorf("message = %v, want 'cache hit'", entry["message"])
	}

	fields, ok := entry["fields"].(map[string]interface{})
	if !ok {
		t.Fatal("fields should be a map")
	}
	if fields["classes"] != float64(42) {
		t.Errorf("fields.classes = %v, want 42", fields["classes"])
	}
}

func TestHumanFormatSortedFields(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLogger(Config{Level: InfoLevel, Format: HumanFormat, Output: buf})

	logger.Info("loaded", map[string]interface{}{"c": 3, "a": 1, "b": 2})

	output := buf.String()
	if !strings.Contains(output, "[info]") {
		t.Errorf("Output should contain '[info]', got: %s", output)
	}
	if !strings.Contains(output, "a=1, b=2, c=3") {
		t.Errorf("fields should be sorted and comma-separated, got: %s", output)
	}
}

func TestHumanFormatNoFields(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLogger(Config{Level: InfoLevel, Format: HumanFormat, Output: buf})

	logger.Info("no fields", nil)

	if strings.Contains(buf.String(), "|") {
		t.Errorf("Output without fields should not contain '|', got: %s", buf.String())
	}
}

func TestWith(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLogger(Config{Level: DebugLevel, Output: buf}).
		With(map[string]interface{}{"namespace": "mojang"})

	logger.Debug("parsing", map[string]interface{}{"version": "1.20.1"})

	output := buf.String()
	if !strings.Contains(output, "namespace=mojang") || !strings.Contains(output, "version=1.20.1") {
		t.Errorf("child logger should merge base fields, got: %s", output)
	}
}

func TestDiscardLogger(t *testing.T) {
	logger := NewDiscardLogger()
	logger.Error("dropped", nil)

	var nilLogger *Logger
	nilLogger.Warn("nil logger must not panic", nil)
}

func TestConcurrentWrites(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLogger(Config{Level: InfoLevel, Output: buf})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Info("line", nil)
		}()
	}
	wg.Wait()

	if got := strings.Count(buf.String(), "\n"); got != 8 {
		t.Errorf("line count = %d, want 8", got)
	}
}
