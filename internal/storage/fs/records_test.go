package fs

import (
	"encoding/json"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/itchan-dev/worklog/internal/config"
	"github.com/itchan-dev/worklog/internal/domain"
	internal_errors "github.com/itchan-dev/worklog/internal/errors"
	"github.com/itchan-dev/worklog/internal/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopics(t *testing.T) {
	storage, err := New(t.TempDir(), nil)
	require.NoError(t, err)

	t.Run("empty store", func(t *testing.T) {
		topics, err := storage.Topics()
		require.NoError(t, err)
		assert.Empty(t, topics)
	})

	now := time.Now().UTC().Truncate(time.Second)
	older := &domain.Topic{Id: uuid.New(), CreatedAtUtc: now.Add(-time.Hour), Content: "older"}
	newer := &domain.Topic{Id: uuid.New(), CreatedAtUtc: now, Content: "newer"}
	require.NoError(t, storage.SaveTopic(newer))
	require.NoError(t, storage.SaveTopic(older))

	t.Run("lists oldest first", func(t *testing.T) {
		topics, err := storage.Topics()
		require.NoError(t, err)
		require.Len(t, topics, 2)
		assert.Equal(t, "older", topics[0].Content)
		assert.Equal(t, "newer", topics[1].Content)
	})

	t.Run("get by id", func(t *testing.T) {
		got, err := storage.Topic(newer.Id)
		require.NoError(t, err)
		assert.Equal(t, newer.Id, got.Id)
		assert.True(t, newer.CreatedAtUtc.Equal(got.CreatedAtUtc))
	})

	t.Run("update overwrites", func(t *testing.T) {
		newer.Content = "edited"
		require.NoError(t, storage.SaveTopic(newer))
		got, err := storage.Topic(newer.Id)
		require.NoError(t, err)
		assert.Equal(t, "edited", got.Content)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := storage.Topic(uuid.New())
		assert.ErrorIs(t, err, internal_errors.NotFound)
	})

	t.Run("zero id is rejected", func(t *testing.T) {
		err := storage.SaveTopic(&domain.Topic{CreatedAtUtc: now})
		assert.True(t, internal_errors.Is[*internal_errors.ValidationError](err))
	})

	t.Run("messages are not part of the topic record", func(t *testing.T) {
		data, err := os.ReadFile(storage.MapPath(filepath.Join(TopicsDir, newer.Id.String()+".json")))
		require.NoError(t, err)
		var raw map[string]any
		require.NoError(t, json.Unmarshal(data, &raw))
		assert.NotContains(t, raw, "messages")
		assert.NotContains(t, raw, "Messages")
	})
}

func TestMessages_PersistResolvedAttachments(t *testing.T) {
	root := t.TempDir()
	pipeline := media.New(config.Default().Public.Image, nil)
	storage, err := New(root, pipeline)
	require.NoError(t, err)

	srcDir := t.TempDir()
	f, err := os.Create(filepath.Join(srcDir, "shot.png"))
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, 1200, 600))))
	require.NoError(t, f.Close())
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "notes.txt"), []byte("notes"), 0644))

	msg := &domain.Message{Id: uuid.New(), TopicId: uuid.New(), CreatedAtUtc: time.Now().UTC(), Content: "did things"}
	img, err := storage.Attach(msg.Id, filepath.Join(srcDir, "shot.png"))
	require.NoError(t, err)
	txt, err := storage.Attach(msg.Id, filepath.Join(srcDir, "notes.txt"))
	require.NoError(t, err)
	msg.Attachments = []*domain.Attachment{img, txt}

	require.NoError(t, storage.SaveMessage(msg))
	// encoding the record resolved both attachments
	assert.Equal(t, domain.ImageResolved, img.ImageState())
	assert.Equal(t, domain.ImageNotAnImage, txt.ImageState())

	// a fresh storage over the same root must not touch the pipeline again
	resolver := &countingResolver{res: domain.NotAnImage(nil)}
	reopened, err := New(root, resolver)
	require.NoError(t, err)

	loaded, err := reopened.Message(msg.Id)
	require.NoError(t, err)
	require.Len(t, loaded.Attachments, 2)

	gotImg, gotTxt := loaded.Attachments[0], loaded.Attachments[1]
	assert.True(t, gotImg.Bound())
	assert.True(t, gotImg.IsImage())
	assert.Equal(t, "png", gotImg.ImageFormat())
	assert.Equal(t, img.ImageSize(), gotImg.ImageSize())
	assert.Equal(t, img.ResizedImageSize(), gotImg.ResizedImageSize())
	assert.Equal(t, img.ResizedImageLength(), gotImg.ResizedImageLength())
	assert.Equal(t, img.ResizedImageRelativePath(), gotImg.ResizedImageRelativePath())
	assert.Equal(t, reopened.MapPath(img.ResizedImageRelativePath()), gotImg.ResizedImagePath())

	assert.False(t, gotTxt.IsImage())
	assert.Nil(t, gotTxt.ImageSize())
	length, err := gotTxt.Length()
	require.NoError(t, err)
	assert.Equal(t, int64(5), length)

	assert.Empty(t, resolver.calls)

	t.Run("listing binds too", func(t *testing.T) {
		all, err := reopened.Messages()
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.True(t, all[0].Attachments[0].Bound())
	})
}

func TestMessages_Errors(t *testing.T) {
	storage, err := New(t.TempDir(), nil)
	require.NoError(t, err)

	t.Run("not found", func(t *testing.T) {
		_, err := storage.Message(uuid.New())
		assert.ErrorIs(t, err, internal_errors.NotFound)
	})

	t.Run("missing topic id is rejected", func(t *testing.T) {
		err := storage.SaveMessage(&domain.Message{Id: uuid.New(), CreatedAtUtc: time.Now()})
		assert.True(t, internal_errors.Is[*internal_errors.ValidationError](err))
	})

	t.Run("corrupt record", func(t *testing.T) {
		id := uuid.New()
		require.NoError(t, os.MkdirAll(storage.MapPath(MessagesDir), 0755))
		require.NoError(t, os.WriteFile(storage.MapPath(filepath.Join(MessagesDir, id.String()+".json")), []byte("{"), 0644))

		_, err := storage.Message(id)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, internal_errors.NotFound)
	})

	t.Run("stray files are ignored when listing", func(t *testing.T) {
		dir := t.TempDir()
		s, err := New(dir, nil)
		require.NoError(t, err)
		require.NoError(t, os.MkdirAll(s.MapPath(MessagesDir), 0755))
		require.NoError(t, os.WriteFile(s.MapPath(filepath.Join(MessagesDir, "README")), []byte("x"), 0644))
		require.NoError(t, os.WriteFile(s.MapPath(filepath.Join(MessagesDir, ".tmp-1.json")), []byte("{"), 0644))

		all, err := s.Messages()
		require.NoError(t, err)
		assert.Empty(t, all)
	})
}
