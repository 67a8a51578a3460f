// Package audit writes the durable, ordered record of every pipeline
// attempt and decision. One file per invocation, one flushed record per
// attempt, nothing lost on abnormal termination.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Encoding string

const (
	EncodingJSONL     Encoding = "jsonl"
	EncodingNarrative Encoding = "narrative"
)

type Record struct {
	Timestamp    time.Time `json:"timestamp"`
	Command      string    `json:"command"`
	InvocationID string    `json:"invocationId"`
	RequestHash  string    `json:"requestHash"`
	Attempt      int       `json:"attempt"`
	Model        string    `json:"model"`
	Decision     string    `json:"decision"`
	Diagnostics  []string  `json:"diagnostics,omitempty"`
}

// Logger is the single writer for one invocation's log file. Append is
// safe for concurrent use and syncs the file after every record.
type Logger struct {
	mu           sync.Mutex
	file         *os.File
	encoding     Encoding
	path         string
	invocationID string
	closed       bool
}

// Open creates the invocation log file under dir, named by command and UTC
// timestamp with a short unique suffix so concurrent processes never share
// a file.
func Open(dir, command string, encoding Encoding) (*Logger, error) {
	if encoding != EncodingNarrative {
		encoding = EncodingJSONL
	}
	command = strings.TrimSpace(command)
	if command == "" {
		command = "unknown"
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}

	invocationID := uuid.NewString()
	name := fmt.Sprintf("%s-%s-%s.log", command, time.Now().UTC().Format("20060102T150405Z"), invocationID[:8])
	path := filepath.Join(dir, name)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}

	return &Logger{file: file, encoding: encoding, path: path, invocationID: invocationID}, nil
}

func (l *Logger) Path() string {
	return l.path
}

func (l *Logger) InvocationID() string {
	return l.invocationID
}

// Append encodes, writes, and syncs one record. Records are never mutated
// after write; diagnostics are redacted before they touch the file.
func (l *Logger) Append(rec Record) error {
	if l == nil {
		return nil
	}

	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	if rec.InvocationID == "" {
		rec.InvocationID = l.invocationID
	}
	redacted := make([]string, 0, len(rec.Diagnostics))
	for _, diagnostic := range rec.Diagnostics {
		redacted = append(redacted, Redact(diagnostic))
	}
	rec.Diagnostics = redacted

	line, err := l.encode(rec)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return fmt.Errorf("audit log %s is closed", l.path)
	}
	if _, err := l.file.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("write audit record: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("sync audit record: %w", err)
	}
	return nil
}

func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.file.Close()
}

func (l *Logger) encode(rec Record) (string, error) {
	switch l.encoding {
	case EncodingNarrative:
		return narrativeLine(rec), nil
	default:
		encoded, err := json.Marshal(rec)
		if err != nil {
			return "", fmt.Errorf("encode audit record: %w", err)
		}
		return string(encoded), nil
	}
}

func narrativeLine(rec Record) string {
	var b strings.Builder
	b.WriteString(rec.Timestamp.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, " %s attempt %d", rec.Command, rec.Attempt)
	if rec.Model != "" {
		fmt.Fprintf(&b, " using %s", rec.Model)
	}
	fmt.Fprintf(&b, ": %s", rec.Decision)
	if len(rec.Diagnostics) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(rec.Diagnostics, "; "))
		b.WriteString(")")
	}
	return b.String()
}

var credentialPattern = regexp.MustCompile(`(?i)(bearer\s+|api[_-]?key\s*[=:]\s*|token\s*[=:]\s*)\S+`)

// Redact masks anything that looks like a credential so raw keys never
// reach the log file.
func Redact(diagnostic string) string {
	return credentialPattern.ReplaceAllString(diagnostic, "$1[redacted]")
}
