// Package history keeps a journal of compile runs under .stratc so users can
// see how the selected chains changed between runs.
package history

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// FileName is the journal file inside the state directory.
const FileName = "history.log"

// Level represents the severity of a journal entry.
type Level string

const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Journal persists one line per compile run to a text file.
type Journal struct {
	path  string
	mu    sync.Mutex
	clock func() time.Time
}

// New creates a journal that writes to the provided path.
func New(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("history: ensure dir for %s: %w", path, err)
	}
	return &Journal{path: path, clock: time.Now}, nil
}

// Append writes a single entry. Newlines in message are folded so every run
// stays on one line.
func (j *Journal) Append(level Level, message string) error {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	message = strings.Join(strings.Fields(message), " ")
	line := fmt.Sprintf("%s %-5s %s\n", j.clock().UTC().Format(time.RFC3339), string(level), message)
	file, err := os.OpenFile(j.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("history: open %s: %w", j.path, err)
	}
	defer file.Close()
	if _, err := file.WriteString(line); err != nil {
		return fmt.Errorf("history: write %s: %w", j.path, err)
	}
	return nil
}

// Tail returns up to maxLines of the most recent entries and the total number
// of entries in the journal.
func (j *Journal) Tail(maxLines int) ([]string, int, error) {
	if j == nil || maxLines <= 0 {
		return nil, 0, nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	file, err := os.Open(j.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("history: open %s: %w", j.path, err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("history: scan %s: %w", j.path, err)
	}
	total := len(lines)
	if total > maxLines {
		lines = lines[total-maxLines:]
	}
	return lines, total, nil
}

// Info appends an informational entry.
func (j *Journal) Info(format string, args ...any) error {
	return j.Append(LevelInfo, fmt.Sprintf(format, args...))
}

// Warn appends a warning entry.
func (j *Journal) Warn(format string, args ...any) error {
	return j.Append(LevelWarn, fmt.Sprintf(format, args...))
}

// Error appends an error entry.
func (j *Journal) Error(format string, args ...any) error {
	return j.Append(LevelError, fmt.Sprintf(format, args...))
}
