package domain

import "github.com/google/uuid"

type (
	TopicId      = uuid.UUID
	MessageId    = uuid.UUID
	AttachmentId = uuid.UUID
)

// ImageSize is a width x height pair in pixels.
type ImageSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// PathMapper turns storage-relative paths into absolute filesystem paths.
type PathMapper interface {
	MapPath(relativePath string) string
}

// AttachmentEnv is everything an Attachment needs from the outside world:
// path mapping and the one-time image resolution of its file.
type AttachmentEnv interface {
	PathMapper
	ResolveImage(relativePath string) ImageResolution
}
