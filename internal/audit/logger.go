package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Entry is a single audit record.
type Entry struct {
	Timestamp      time.Time              `json:"ts"`
	SubscriptionID int                    `json:"subscriptionId"`
	Action         string                 `json:"action"`
	Params         map[string]interface{} `json:"params,omitempty"`
	Outcome        string                 `json:"outcome"`
	Code           string                 `json:"code"`
}

// Logger appends audit records to a JSONL file.
type Logger struct {
	mu       sync.Mutex
	filePath string
	file     *os.File
}

// NewLogger creates an audit logger writing to audit.jsonl under logDir.
func NewLogger(logDir string) (*Logger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	filePath := filepath.Join(logDir, "audit.jsonl")
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log file: %w", err)
	}

	return &Logger{
		filePath: filePath,
		file:     file,
	}, nil
}

// LogAction records a state-changing action and its outcome. A nil err
// records code SUCCESS.
func (l *Logger) LogAction(action string, subscriptionID int, params map[string]interface{}, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	entry := Entry{
		Timestamp:      time.Now().UTC(),
		SubscriptionID: subscriptionID,
		Action:         action,
		Params:         params,
		Outcome:        outcome,
		Code:           codeFromError(err),
	}
	l.writeEntry(entry)
}

func (l *Logger) writeEntry(entry Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return
	}

	jsonData, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal audit entry: %v\n", err)
		return
	}

	if _, err := l.file.Write(append(jsonData, '\n')); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write audit entry: %v\n", err)
		return
	}

	if err := l.file.Sync(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to sync audit log: %v\n", err)
	}
}

// codeFromError maps error text to a standardized audit code.
func codeFromError(err error) string {
	if err == nil {
		return "SUCCESS"
	}
	errStr := err.Error()
	switch {
	case strings.Contains(errStr, "STORE_UNAVAILABLE"):
		return "STORE_UNAVAILABLE"
	case strings.Contains(errStr, "MALFORMED_PROFILE_ROW"):
		return "MALFORMED_PROFILE_ROW"
	case strings.Contains(errStr, "NO_MATCHING"):
		return "NO_MATCH"
	case strings.Contains(errStr, "BUSY"):
		return "BUSY"
	case strings.Contains(errStr, "UNAVAILABLE"):
		return "UNAVAILABLE"
	default:
		return "ERROR"
	}
}

// Close closes the underlying file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// FilePath returns the path of the audit log file.
func (l *Logger) FilePath() string {
	return l.filePath
}
