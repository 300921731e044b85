package fs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"github.com/itchan-dev/worklog/internal/domain"
	"github.com/itchan-dev/worklog/internal/logger"
)

// Attach copies the file at sourcePath into the attachment store and returns
// the new attachment for messageID.
//
// The file keeps its name. The first upload of a name goes to
// Attachments/<name>; later uploads of the same name go to
// Attachments/1/<name>, Attachments/2/<name> and so on. Slots are claimed
// with an exclusive create, so an existing file is never overwritten.
func (s *Storage) Attach(messageID domain.MessageId, sourcePath string) (*domain.Attachment, error) {
	name := filepath.Base(sourcePath)
	if sourcePath == "" || name == "." || name == ".." || name == string(filepath.Separator) {
		return nil, fmt.Errorf("invalid attachment source path %q", sourcePath)
	}

	src, err := os.Open(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open attachment source: %w", err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat attachment source: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("attachment source %s is a directory", sourcePath)
	}

	for n := 0; ; n++ {
		relativePath := candidatePath(name, n)
		fullPath := s.MapPath(relativePath)

		// A file that happens to be named like a bucket occupies it.
		bucket := filepath.Dir(fullPath)
		if fi, err := os.Stat(bucket); err == nil && !fi.IsDir() {
			continue
		}
		// Lazily create the numbered bucket directory.
		if err := os.MkdirAll(bucket, 0755); err != nil {
			return nil, fmt.Errorf("failed to create subdirectories: %w", err)
		}

		dst, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create destination file: %w", err)
		}

		written, err := io.Copy(dst, src)
		if closeErr := dst.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			// Don't leave a half-written file occupying the slot.
			os.Remove(fullPath) // Best effort, ignore error here.
			return nil, fmt.Errorf("failed to copy file data: %w", err)
		}

		a := domain.NewAttachment(uuid.New(), messageID, s.now(), relativePath, s)
		a.SetLength(written)
		logger.Log.Debug("attachment stored", "message_id", messageID, "path", relativePath, "bytes", written)
		return a, nil
	}
}

func candidatePath(name string, n int) string {
	if n == 0 {
		return filepath.Join(AttachmentsDir, name)
	}
	return filepath.Join(AttachmentsDir, strconv.Itoa(n), name)
}
