package fs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/itchan-dev/worklog/internal/domain"
)

// Top-level directories under the storage root.
const (
	TopicsDir      = "Topics"
	MessagesDir    = "Messages"
	AttachmentsDir = "Attachments"
	LogsDir        = "Logs"
)

// ImageResolver runs the one-time image resolution for a stored file.
type ImageResolver interface {
	Resolve(paths domain.PathMapper, relativePath string) domain.ImageResolution
}

// Storage keeps every record and blob as files under a single root.
type Storage struct {
	rootPath string
	images   ImageResolver
	validate *validator.Validate
	now      func() time.Time
}

// Ensure Storage struct implements the interface at compile time.
var _ domain.AttachmentEnv = (*Storage)(nil)

func New(rootPath string, images ImageResolver) (*Storage, error) {
	// Use filepath.Clean to prevent path traversal issues like "media/../"
	p := filepath.Clean(rootPath)

	// Ensure the root directory exists.
	if err := os.MkdirAll(p, 0755); err != nil {
		return nil, fmt.Errorf("failed to create root storage directory %s: %w", p, err)
	}

	return &Storage{
		rootPath: p,
		images:   images,
		validate: validator.New(),
		now:      time.Now,
	}, nil
}

// ExecutableRoot returns the directory containing the running binary.
func ExecutableRoot() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to locate executable: %w", err)
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("failed to resolve executable path: %w", err)
	}
	return filepath.Dir(exe), nil
}

func (s *Storage) Root() string {
	return s.rootPath
}

// MapPath joins a storage-relative path onto the root. Both "\" and "/" are
// accepted as separators.
func (s *Storage) MapPath(relativePath string) string {
	return filepath.Join(s.rootPath, filepath.FromSlash(strings.ReplaceAll(relativePath, `\`, "/")))
}

// ResolveImage runs the configured image resolver. Without one the result
// stays unresolved so attachments do not cache a wrong answer.
func (s *Storage) ResolveImage(relativePath string) domain.ImageResolution {
	if s.images == nil {
		return domain.ImageResolution{}
	}
	return s.images.Resolve(s, relativePath)
}
