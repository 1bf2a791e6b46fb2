package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// AuditEntry records one field change on a task. The audit log is
// append-only and immutable; entries are reviewed at session boundaries.
type AuditEntry struct {
	Time   time.Time `json:"time"`
	TaskID string    `json:"task_id"`
	Field  string    `json:"field"`
	Old    string    `json:"old,omitempty"`
	New    string    `json:"new,omitempty"`
}

// AuditFilter specifies criteria for reading audit entries.
type AuditFilter struct {
	TaskID string
	Since  *time.Time
}

// AuditLog defines the interface for the append-only mutation trail.
type AuditLog interface {
	Append(entry AuditEntry) error
	Read(filter AuditFilter) ([]AuditEntry, error)
	Close() error
}

// jsonlAuditLog implements AuditLog using an append-only JSONL file.
type jsonlAuditLog struct {
	path string
	file *os.File
	mu   sync.Mutex
}

// NewJSONLAuditLog creates an AuditLog backed by a JSONL file at the given path.
func NewJSONLAuditLog(path string) (AuditLog, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	return &jsonlAuditLog{path: path, file: f}, nil
}

// Append writes a JSON-encoded entry followed by a newline.
func (l *jsonlAuditLog) Append(entry AuditEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshalling audit entry: %w", err)
	}
	data = append(data, '\n')

	if _, err := l.file.Write(data); err != nil {
		return fmt.Errorf("writing audit entry: %w", err)
	}
	return nil
}

// Read scans the log line by line and returns entries matching the filter.
func (l *jsonlAuditLog) Read(filter AuditFilter) ([]AuditEntry, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening audit log for reading: %w", err)
	}
	defer func() { _ = f.Close() }()

	var entries []AuditEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var entry AuditEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			continue // skip malformed lines
		}

		if filter.TaskID != "" && entry.TaskID != filter.TaskID {
			continue
		}
		if filter.Since != nil && entry.Time.Before(*filter.Since) {
			continue
		}
		entries = append(entries, entry)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning audit log: %w", err)
	}
	return entries, nil
}

// Close closes the underlying log file.
func (l *jsonlAuditLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}
