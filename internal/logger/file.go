package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const fileTimeLayout = "20060102T150405Z"

// FileBuffer collects log lines in memory and appends them to a dated file
// under the logs directory on Flush. The directory is only created when
// there is something to write.
type FileBuffer struct {
	CreatedAtUtc time.Time
	Path         string

	mu    sync.Mutex
	lines [][]byte
}

func NewFileBuffer(logsDir string, now time.Time) *FileBuffer {
	created := now.UTC()
	return &FileBuffer{
		CreatedAtUtc: created,
		Path:         filepath.Join(logsDir, "Log-"+created.Format(fileTimeLayout)+".log"),
	}
}

// Write buffers one formatted record. slog handlers emit a whole line per call.
func (b *FileBuffer) Write(p []byte) (int, error) {
	line := make([]byte, len(p))
	copy(line, p)

	b.mu.Lock()
	b.lines = append(b.lines, line)
	b.mu.Unlock()
	return len(p), nil
}

// Pending returns the number of buffered lines.
func (b *FileBuffer) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.lines)
}

// Flush appends the buffered lines to the log file and clears the buffer.
func (b *FileBuffer) Flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.lines) == 0 {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(b.Path), 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	f, err := os.OpenFile(b.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", b.Path, err)
	}
	defer f.Close()

	for _, line := range b.lines {
		if _, err := f.Write(line); err != nil {
			return fmt.Errorf("failed to write log file %s: %w", b.Path, err)
		}
	}
	b.lines = b.lines[:0]
	return nil
}
