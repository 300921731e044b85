package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/itchan-dev/worklog/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingResolver records every resolution request and answers with res.
type countingResolver struct {
	res   domain.ImageResolution
	calls []string
}

func (r *countingResolver) Resolve(paths domain.PathMapper, relativePath string) domain.ImageResolution {
	r.calls = append(r.calls, relativePath)
	return r.res
}

// TestNew tests the Storage constructor
func TestNew(t *testing.T) {
	t.Run("creates storage with valid path", func(t *testing.T) {
		tmpDir := t.TempDir()
		storage, err := New(tmpDir, nil)

		require.NoError(t, err)
		assert.NotNil(t, storage)
		assert.Equal(t, tmpDir, storage.Root())
	})

	t.Run("creates nested directories", func(t *testing.T) {
		nestedPath := filepath.Join(t.TempDir(), "a", "b", "c")

		_, err := New(nestedPath, nil)
		require.NoError(t, err)

		// Verify nested directory exists
		assert.DirExists(t, nestedPath)
	})

	t.Run("cleans path to prevent traversal", func(t *testing.T) {
		tmpDir := t.TempDir()
		dirtyPath := filepath.Join(tmpDir, "media", "..", "media")

		storage, err := New(dirtyPath, nil)

		require.NoError(t, err)
		// Path should be cleaned
		assert.Equal(t, filepath.Join(tmpDir, "media"), storage.Root())
	})

	t.Run("fails when root is a file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(file, nil, 0644))

		_, err := New(file, nil)
		assert.Error(t, err)
	})
}

func TestMapPath(t *testing.T) {
	root := t.TempDir()
	storage, err := New(root, nil)
	require.NoError(t, err)

	want := filepath.Join(root, "Attachments", "2", "a.txt")
	assert.Equal(t, want, storage.MapPath("Attachments/2/a.txt"))
	assert.Equal(t, want, storage.MapPath(`Attachments\2\a.txt`))
	assert.Equal(t, root, storage.MapPath(""))

	t.Run("roots are independent", func(t *testing.T) {
		other, err := New(t.TempDir(), nil)
		require.NoError(t, err)
		assert.NotEqual(t, storage.MapPath("x"), other.MapPath("x"))
	})
}

func TestExecutableRoot(t *testing.T) {
	root, err := ExecutableRoot()
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(root))
	assert.DirExists(t, root)
}

func TestResolveImage(t *testing.T) {
	t.Run("delegates to the resolver with itself as mapper", func(t *testing.T) {
		resolver := &countingResolver{res: domain.NotAnImage(nil)}
		storage, err := New(t.TempDir(), resolver)
		require.NoError(t, err)

		res := storage.ResolveImage("Attachments/a.txt")

		assert.Equal(t, domain.ImageNotAnImage, res.State)
		assert.Equal(t, []string{"Attachments/a.txt"}, resolver.calls)
	})

	t.Run("no resolver leaves it unresolved", func(t *testing.T) {
		storage, err := New(t.TempDir(), nil)
		require.NoError(t, err)

		assert.Equal(t, domain.ImageUnresolved, storage.ResolveImage("Attachments/a.txt").State)
	})
}
