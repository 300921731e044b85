package service

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/itchan-dev/worklog/internal/domain"
	internal_errors "github.com/itchan-dev/worklog/internal/errors"
	"github.com/itchan-dev/worklog/internal/logger"
)

type WorkLogService interface {
	CreateTopic(content string) (*domain.Topic, error)
	UpdateTopic(id domain.TopicId, content string) error
	AddMessage(topicId domain.TopicId, content string) (*domain.Message, error)
	UpdateMessage(id domain.MessageId, content string) error
	AttachFile(messageId domain.MessageId, sourcePath string) (*domain.Attachment, error)
	Topics() ([]*domain.Topic, error)
	RenderMessage(id domain.MessageId) (*RenderedMessage, error)
}

type WorkLog struct {
	storage  Storage
	renderer Renderer
	now      func() time.Time
}

type Storage interface {
	SaveTopic(topic *domain.Topic) error
	Topic(id domain.TopicId) (*domain.Topic, error)
	Topics() ([]*domain.Topic, error)
	SaveMessage(msg *domain.Message) error
	Message(id domain.MessageId) (*domain.Message, error)
	Messages() ([]*domain.Message, error)
	Attach(messageId domain.MessageId, sourcePath string) (*domain.Attachment, error)
}

type Renderer interface {
	Render(text string) (string, error)
}

func NewWorkLog(storage Storage, renderer Renderer) WorkLogService {
	return &WorkLog{storage: storage, renderer: renderer, now: time.Now}
}

func validateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return &internal_errors.ValidationError{Message: "content is empty"}
	}
	return nil
}

func (w *WorkLog) CreateTopic(content string) (*domain.Topic, error) {
	if err := validateContent(content); err != nil {
		return nil, err
	}

	topic := &domain.Topic{Id: uuid.New(), CreatedAtUtc: w.now().UTC(), Content: content}
	if err := w.storage.SaveTopic(topic); err != nil {
		return nil, fmt.Errorf("failed to save topic: %w", err)
	}
	logger.Log.Info("topic created", "topic_id", topic.Id)
	return topic, nil
}

func (w *WorkLog) UpdateTopic(id domain.TopicId, content string) error {
	if err := validateContent(content); err != nil {
		return err
	}

	topic, err := w.storage.Topic(id)
	if err != nil {
		return err
	}
	topic.Content = content
	return w.storage.SaveTopic(topic)
}

func (w *WorkLog) AddMessage(topicId domain.TopicId, content string) (*domain.Message, error) {
	if err := validateContent(content); err != nil {
		return nil, err
	}
	if _, err := w.storage.Topic(topicId); err != nil {
		return nil, err
	}

	msg := &domain.Message{Id: uuid.New(), TopicId: topicId, CreatedAtUtc: w.now().UTC(), Content: content}
	if err := w.storage.SaveMessage(msg); err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}
	logger.Log.Info("message added", "topic_id", topicId, "message_id", msg.Id)
	return msg, nil
}

func (w *WorkLog) UpdateMessage(id domain.MessageId, content string) error {
	if err := validateContent(content); err != nil {
		return err
	}

	msg, err := w.storage.Message(id)
	if err != nil {
		return err
	}
	msg.Content = content
	return w.storage.SaveMessage(msg)
}

// AttachFile copies sourcePath into storage and appends it to the message.
// Saving the message resolves the attachment's image fields, so this blocks
// for as long as decoding and resizing take.
func (w *WorkLog) AttachFile(messageId domain.MessageId, sourcePath string) (*domain.Attachment, error) {
	msg, err := w.storage.Message(messageId)
	if err != nil {
		return nil, err
	}

	a, err := w.storage.Attach(messageId, sourcePath)
	if err != nil {
		return nil, fmt.Errorf("failed to attach %s: %w", sourcePath, err)
	}

	msg.Attachments = append(msg.Attachments, a)
	if err := w.storage.SaveMessage(msg); err != nil {
		msg.Attachments = msg.Attachments[:len(msg.Attachments)-1]
		discardAttachment(a)
		return nil, fmt.Errorf("failed to save message: %w", err)
	}

	logger.Log.Info("file attached", "message_id", messageId, "path", a.RelativePath, "is_image", a.IsImage())
	return a, nil
}

// discardAttachment removes the stored copy of an attachment no record refers
// to, so its slot is free for the next upload of that name.
func discardAttachment(a *domain.Attachment) {
	paths := []string{a.Path()}
	if a.ImageState() == domain.ImageResolved {
		paths = append(paths, a.ResizedImagePath())
	}
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Log.Warn("failed to remove unreferenced attachment", "path", p, "error", err)
		}
	}
}

// Topics returns all topics, oldest first, with their messages linked in
// creation order. Attachments whose image state was never recorded are
// resolved and their messages saved.
func (w *WorkLog) Topics() ([]*domain.Topic, error) {
	topics, err := w.storage.Topics()
	if err != nil {
		return nil, err
	}
	messages, err := w.storage.Messages()
	if err != nil {
		return nil, err
	}

	byId := make(map[domain.TopicId]*domain.Topic, len(topics))
	for _, t := range topics {
		t.Messages = nil
		byId[t.Id] = t
	}
	for _, m := range messages {
		t, ok := byId[m.TopicId]
		if !ok {
			logger.Log.Warn("message refers to unknown topic", "message_id", m.Id, "topic_id", m.TopicId)
			continue
		}
		pending := unresolvedAttachments(m)
		for _, a := range pending {
			a.IsImage()
		}
		w.saveResolved(m, pending)
		t.Messages = append(t.Messages, m)
	}
	return topics, nil
}

// unresolvedAttachments returns the bound attachments of msg whose image
// state is not on record yet.
func unresolvedAttachments(msg *domain.Message) []*domain.Attachment {
	var pending []*domain.Attachment
	for _, a := range msg.Attachments {
		if a.Bound() && a.ImageState() == domain.ImageUnresolved {
			pending = append(pending, a)
		}
	}
	return pending
}

// saveResolved rewrites msg if any of pending got resolved since it was
// loaded, so the next run reads the result instead of decoding again.
func (w *WorkLog) saveResolved(msg *domain.Message, pending []*domain.Attachment) {
	for _, a := range pending {
		if a.ImageState() == domain.ImageUnresolved {
			continue
		}
		if err := w.storage.SaveMessage(msg); err != nil {
			logger.Log.Warn("failed to persist resolved attachments", "message_id", msg.Id, "error", err)
		}
		return
	}
}
