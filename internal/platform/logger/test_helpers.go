package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// TestLogBuffer is a thread-safe buffer for capturing log output in tests.
type TestLogBuffer struct {
	buf bytes.Buffer
	mu  sync.Mutex
}

// Write implements io.Writer for TestLogBuffer.
func (b *TestLogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// String returns the buffer contents as a string.
func (b *TestLogBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// GetLogEntries parses the buffer contents as JSON log entries.
// Each line is assumed to be a separate JSON log entry.
func (b *TestLogBuffer) GetLogEntries() ([]map[string]any, error) {
	lines := strings.Split(b.String(), "\n")
	entries := make([]map[string]any, 0, len(lines))

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}

		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// Messages returns the msg field of every captured entry, in order.
func (b *TestLogBuffer) Messages() []string {
	entries, err := b.GetLogEntries()
	if err != nil {
		return nil
	}
	msgs := make([]string, 0, len(entries))
	for _, e := range entries {
		if m, ok := e["msg"].(string); ok {
			msgs = append(msgs, m)
		}
	}
	return msgs
}

// NewTestLogger returns a debug-level JSON logger writing into a fresh
// buffer. Unlike Setup it leaves the slog default untouched.
func NewTestLogger(t testing.TB) (*slog.Logger, *TestLogBuffer) {
	t.Helper()

	buf := &TestLogBuffer{}
	handler := slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(handler), buf
}

// testWriter forwards log lines to a test's log output.
type testWriter struct {
	t testing.TB
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// NewTestOutputLogger returns a text logger that writes through t.Log, so
// records only surface for failing or verbose tests.
func NewTestOutputLogger(t testing.TB) *slog.Logger {
	return slog.New(slog.NewTextHandler(testWriter{t: t}, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
