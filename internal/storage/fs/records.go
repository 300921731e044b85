package fs

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/itchan-dev/worklog/internal/domain"
	internal_errors "github.com/itchan-dev/worklog/internal/errors"
)

const recordExt = ".json"

func (s *Storage) SaveTopic(topic *domain.Topic) error {
	if err := s.validate.Struct(topic); err != nil {
		return &internal_errors.ValidationError{Message: err.Error()}
	}
	return s.writeRecord(TopicsDir, topic.Id.String(), topic)
}

func (s *Storage) Topic(id domain.TopicId) (*domain.Topic, error) {
	var topic domain.Topic
	if err := s.readRecord(filepath.Join(TopicsDir, id.String()+recordExt), &topic); err != nil {
		return nil, err
	}
	return &topic, nil
}

// Topics returns every stored topic, oldest first. Messages are not linked.
func (s *Storage) Topics() ([]*domain.Topic, error) {
	var topics []*domain.Topic
	err := s.eachRecord(TopicsDir, func(path string) error {
		var topic domain.Topic
		if err := s.readRecord(path, &topic); err != nil {
			return err
		}
		topics = append(topics, &topic)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(topics, func(i, j int) bool {
		return topics[i].CreatedAtUtc.Before(topics[j].CreatedAtUtc)
	})
	return topics, nil
}

// SaveMessage writes the message with its attachments inline. Bound
// attachments resolve their length and image fields while being encoded.
func (s *Storage) SaveMessage(msg *domain.Message) error {
	if err := s.validate.Struct(msg); err != nil {
		return &internal_errors.ValidationError{Message: err.Error()}
	}
	return s.writeRecord(MessagesDir, msg.Id.String(), msg)
}

// Message loads a message and binds its attachments to this storage.
func (s *Storage) Message(id domain.MessageId) (*domain.Message, error) {
	var msg domain.Message
	if err := s.readRecord(filepath.Join(MessagesDir, id.String()+recordExt), &msg); err != nil {
		return nil, err
	}
	msg.Bind(s)
	return &msg, nil
}

// Messages returns every stored message, oldest first.
func (s *Storage) Messages() ([]*domain.Message, error) {
	var messages []*domain.Message
	err := s.eachRecord(MessagesDir, func(path string) error {
		var msg domain.Message
		if err := s.readRecord(path, &msg); err != nil {
			return err
		}
		msg.Bind(s)
		messages = append(messages, &msg)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].CreatedAtUtc.Before(messages[j].CreatedAtUtc)
	})
	return messages, nil
}

// writeRecord encodes v into dir/<id>.json through a temp file and rename,
// so a crash never leaves a truncated record behind.
func (s *Storage) writeRecord(dir, id string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode record %s: %w", id, err)
	}

	fullDir := s.MapPath(dir)
	if err := os.MkdirAll(fullDir, 0755); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", dir, err)
	}

	tmp, err := os.CreateTemp(fullDir, "."+id+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp record: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write record %s: %w", id, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write record %s: %w", id, err)
	}
	if err := os.Rename(tmpPath, filepath.Join(fullDir, id+recordExt)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to move record %s into place: %w", id, err)
	}
	return nil
}

func (s *Storage) readRecord(relativePath string, v any) error {
	data, err := os.ReadFile(s.MapPath(relativePath))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("record %s: %w", relativePath, internal_errors.NotFound)
		}
		return fmt.Errorf("failed to read record %s: %w", relativePath, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode record %s: %w", relativePath, err)
	}
	return nil
}

// eachRecord calls fn with the relative path of every record in dir.
// A missing dir simply has no records.
func (s *Storage) eachRecord(dir string, fn func(relativePath string) error) error {
	entries, err := os.ReadDir(s.MapPath(dir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to list %s: %w", dir, err)
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != recordExt {
			continue
		}
		if err := fn(filepath.Join(dir, name)); err != nil {
			return err
		}
	}
	return nil
}
