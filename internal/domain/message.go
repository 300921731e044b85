package domain

import "time"

type Message struct {
	Id           MessageId     `json:"id" validate:"required"`
	TopicId      TopicId       `json:"topicId" validate:"required"`
	CreatedAtUtc time.Time     `json:"createdAtUtc" validate:"required"`
	Content      string        `json:"content"`
	Attachments  []*Attachment `json:"attachments"`
}

// Bind binds every attachment of the message to env.
func (m *Message) Bind(env AttachmentEnv) {
	for _, a := range m.Attachments {
		a.Bind(env)
	}
}
