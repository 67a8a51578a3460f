package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAppendWritesOneJSONLinePerRecord(t *testing.T) {
	dir := t.TempDir()
	logger, err := Open(dir, "extract-facts", EncodingJSONL)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer logger.Close()

	records := []Record{
		{Command: "extract-facts", RequestHash: "abc123", Attempt: 1, Model: "test/model", Decision: "retry", Diagnostics: []string{"[2023] HCA 99: not found"}},
		{Command: "extract-facts", RequestHash: "abc123", Attempt: 2, Model: "test/model", Decision: "accept"},
	}
	for _, rec := range records {
		if err := logger.Append(rec); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	file, err := os.Open(logger.Path())
	if err != nil {
		t.Fatalf("open log file: %v", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	var lines []Record
	for scanner.Scan() {
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("line %d is not valid json: %v", len(lines)+1, err)
		}
		lines = append(lines, rec)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 records, got %d", len(lines))
	}
	if lines[0].Decision != "retry" || lines[1].Decision != "accept" {
		t.Fatalf("records out of order: %+v", lines)
	}
	if lines[0].Timestamp.IsZero() {
		t.Fatal("timestamp must be filled on write")
	}
	if lines[0].InvocationID != logger.InvocationID() {
		t.Fatalf("invocation id %q does not match logger %q", lines[0].InvocationID, logger.InvocationID())
	}
}

func TestFileNameCarriesCommandAndTimestamp(t *testing.T) {
	dir := t.TempDir()
	logger, err := Open(dir, "brief", EncodingJSONL)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer logger.Close()

	name := filepath.Base(logger.Path())
	if !strings.HasPrefix(name, "brief-") || !strings.HasSuffix(name, ".log") {
		t.Fatalf("unexpected file name %q", name)
	}
}

func TestNarrativeEncoding(t *testing.T) {
	dir := t.TempDir()
	logger, err := Open(dir, "strategize", EncodingNarrative)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer logger.Close()

	if err := logger.Append(Record{
		Command:     "strategize",
		Attempt:     1,
		Model:       "test/model",
		Decision:    "accept",
		Diagnostics: []string{"2 citations verified"},
	}); err != nil {
		t.Fatalf("append: %v", err)
	}

	content, err := os.ReadFile(logger.Path())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	line := strings.TrimSpace(string(content))
	if !strings.Contains(line, "strategize attempt 1 using test/model: accept") {
		t.Fatalf("unexpected narrative line %q", line)
	}
	if !strings.Contains(line, "(2 citations verified)") {
		t.Fatalf("diagnostics missing from narrative line %q", line)
	}
}

func TestAppendRedactsCredentials(t *testing.T) {
	dir := t.TempDir()
	logger, err := Open(dir, "lookup", EncodingJSONL)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer logger.Close()

	if err := logger.Append(Record{
		Command:     "lookup",
		Attempt:     1,
		Decision:    "fail",
		Diagnostics: []string{"provider returned 401: Bearer sk-or-abc123 rejected"},
	}); err != nil {
		t.Fatalf("append: %v", err)
	}

	content, err := os.ReadFile(logger.Path())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if strings.Contains(string(content), "sk-or-abc123") {
		t.Fatalf("credential leaked into log: %s", content)
	}
	if !strings.Contains(string(content), "[redacted]") {
		t.Fatalf("redaction marker missing: %s", content)
	}
}

func TestRedact(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Authorization: Bearer sk-123", "Authorization: Bearer [redacted]"},
		{"api_key=sk-456 refused", "api_key=[redacted] refused"},
		{"token: abc789", "token: [redacted]"},
		{"plain diagnostic", "plain diagnostic"},
	}
	for _, tc := range cases {
		if got := Redact(tc.in); got != tc.want {
			t.Fatalf("Redact(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestAppendAfterCloseFails(t *testing.T) {
	logger, err := Open(t.TempDir(), "note", EncodingJSONL)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := logger.Append(Record{Command: "note", Attempt: 1, Decision: "accept"}); err == nil {
		t.Fatal("append after close must fail")
	}
}

func TestNilLoggerIsTolerated(t *testing.T) {
	var logger *Logger
	if err := logger.Append(Record{Command: "note"}); err != nil {
		t.Fatalf("nil append: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("nil close: %v", err)
	}
}
