// Package journal provides an append-only apply log for audit and
// post-mortem. One JSON entry per line, flushed on every write.
package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EntryType defines the type of journal entry
type EntryType string

const (
	EntryPlanned  EntryType = "planned"
	EntryApplying EntryType = "applying"
	EntryApplied  EntryType = "applied"
	EntryFailed   EntryType = "failed"
	EntrySkipped  EntryType = "skipped"
)

// Entry represents a single journal entry
type Entry struct {
	Timestamp  time.Time       `json:"timestamp"`
	Sequence   int64           `json:"sequence"`
	Type       EntryType       `json:"type"`
	ResourceID string          `json:"resource_id,omitempty"`
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error,omitempty"`
}

// Journal appends entries to a per-run file in the journal directory.
type Journal struct {
	mu       sync.Mutex
	file     *os.File
	writer   *bufio.Writer
	sequence int64
	dir      string
}

// Open creates or opens a journal in the specified directory
func Open(dir string) (*Journal, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	// Timestamp in filename, one file per run
	filename := fmt.Sprintf("varusta-%s.journal", time.Now().Format("20060102-150405"))
	path := filepath.Join(dir, filename)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf("failed to open journal file: %w", err)
	}

	return &Journal{
		file:   file,
		writer: bufio.NewWriter(file),
		dir:    dir,
	}, nil
}

// Close flushes and closes the journal
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.writer.Flush(); err != nil {
		return err
	}
	return j.file.Close()
}

// Append adds an entry to the journal
func (j *Journal) Append(entryType EntryType, resourceID string, data interface{}) error {
	return j.append(entryType, resourceID, data, nil)
}

// AppendError adds a failed entry with its error message
func (j *Journal) AppendError(entryType EntryType, resourceID string, data interface{}, errToLog error) error {
	return j.append(entryType, resourceID, data, errToLog)
}

func (j *Journal) append(entryType EntryType, resourceID string, data interface{}, errToLog error) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.sequence++

	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	entry := Entry{
		Timestamp:  time.Now(),
		Sequence:   j.sequence,
		Type:       entryType,
		ResourceID: resourceID,
		Data:       jsonData,
	}
	if errToLog != nil {
		entry.Error = errToLog.Error()
	}

	return j.writeEntry(entry)
}

// writeEntry writes a single entry and syncs for durability
func (j *Journal) writeEntry(entry Entry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	if _, err := j.writer.Write(line); err != nil {
		return fmt.Errorf("failed to write entry: %w", err)
	}
	if _, err := j.writer.WriteString("\n"); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	if err := j.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}
	return j.file.Sync()
}

// Reader provides journal replay
type Reader struct {
	scanner *bufio.Scanner
	file    *os.File
}

// NewReader creates a journal reader for the specified file
func NewReader(path string) (*Reader, error) {
	file, err := os.Open(path) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf("failed to open journal file: %w", err)
	}

	return &Reader{
		scanner: bufio.NewScanner(file),
		file:    file,
	}, nil
}

// Next reads the next entry
func (r *Reader) Next() (*Entry, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}

	var entry Entry
	if err := json.Unmarshal(r.scanner.Bytes(), &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entry: %w", err)
	}
	return &entry, nil
}

// Close closes the reader
func (r *Reader) Close() error {
	return r.file.Close()
}

// Replay replays journal entries recorded after a point in time
func Replay(dir string, since time.Time, handler func(*Entry) error) error {
	files, err := filepath.Glob(filepath.Join(dir, "varusta-*.journal"))
	if err != nil {
		return fmt.Errorf("failed to list journal files: %w", err)
	}

	for _, file := range files {
		reader, err := NewReader(file)
		if err != nil {
			return err
		}

		for {
			entry, err := reader.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				_ = reader.Close()
				return err
			}

			if entry.Timestamp.After(since) {
				if err := handler(entry); err != nil {
					_ = reader.Close()
					return err
				}
			}
		}
		if err := reader.Close(); err != nil {
			return err
		}
	}

	return nil
}
