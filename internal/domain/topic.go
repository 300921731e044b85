package domain

import "time"

// Topic groups messages. Messages are persisted on their own and linked to
// the topic by TopicId when loaded, so they are not part of the topic record.
type Topic struct {
	Id           TopicId    `json:"id" validate:"required"`
	CreatedAtUtc time.Time  `json:"createdAtUtc" validate:"required"`
	Content      string     `json:"content"`
	Messages     []*Message `json:"-"`
}
