package domain

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"strings"
	"time"
)

// Attachment is a file stored for a message.
//
// Identity fields never change after creation. The file length and the
// image fields are computed on first read and cached for the lifetime of the
// value; values decoded from JSON skip that work entirely.
type Attachment struct {
	Id           AttachmentId
	MessageId    MessageId
	CreatedAtUtc time.Time
	RelativePath string

	length *int64
	image  ImageResolution
	env    AttachmentEnv
}

func NewAttachment(id AttachmentId, messageId MessageId, createdAt time.Time, relativePath string, env AttachmentEnv) *Attachment {
	return &Attachment{
		Id:           id,
		MessageId:    messageId,
		CreatedAtUtc: createdAt.UTC(),
		RelativePath: relativePath,
		env:          env,
	}
}

// Bind sets the environment used for path mapping and lazy resolution.
// Attachments decoded from JSON are unbound until Bind is called.
func (a *Attachment) Bind(env AttachmentEnv) {
	a.env = env
}

func (a *Attachment) Bound() bool {
	return a.env != nil
}

// RelativeURL is RelativePath with forward slashes.
func (a *Attachment) RelativeURL() string {
	return toURL(a.RelativePath)
}

func (a *Attachment) Name() string {
	return path.Base(a.RelativeURL())
}

// Path returns the absolute path of the original file, or "" when unbound.
func (a *Attachment) Path() string {
	return a.mapPath(a.RelativePath)
}

func (a *Attachment) mapPath(relativePath string) string {
	if a.env == nil || relativePath == "" {
		return ""
	}
	return a.env.MapPath(relativePath)
}

// SetLength records a known byte size so Length does not stat the file.
func (a *Attachment) SetLength(n int64) {
	a.length = &n
}

// Length returns the byte size of the original file, reading it from disk
// the first time if it was not supplied.
func (a *Attachment) Length() (int64, error) {
	if a.length != nil {
		return *a.length, nil
	}
	if a.env == nil {
		return 0, fmt.Errorf("attachment %s: length unknown and no storage bound", a.Id)
	}
	info, err := os.Stat(a.Path())
	if err != nil {
		return 0, fmt.Errorf("failed to stat attachment %s: %w", a.Id, err)
	}
	n := info.Size()
	a.length = &n
	return n, nil
}

// ImageState reports the resolution state without triggering it.
func (a *Attachment) ImageState() ImageState {
	return a.image.State
}

// resolve runs the image pipeline unless it already ran for this value.
// Without an environment nothing is cached so a later Bind can still resolve.
func (a *Attachment) resolve() {
	if a.image.State != ImageUnresolved || a.env == nil {
		return
	}
	r := a.env.ResolveImage(a.RelativePath)
	if r.State == ImageUnresolved {
		return
	}
	a.image = r
}

func (a *Attachment) IsImage() bool {
	a.resolve()
	return a.image.State == ImageResolved
}

// Image returns the image payload and whether the attachment is an image.
func (a *Attachment) Image() (ImageInfo, bool) {
	if !a.IsImage() {
		return ImageInfo{}, false
	}
	return a.image.Info, true
}

func (a *Attachment) ImageFormat() string {
	info, ok := a.Image()
	if !ok {
		return ""
	}
	return info.Format
}

func (a *Attachment) ImageSize() *ImageSize {
	info, ok := a.Image()
	if !ok {
		return nil
	}
	return &info.Size
}

func (a *Attachment) ResizedImageRelativePath() string {
	info, ok := a.Image()
	if !ok {
		return ""
	}
	return info.ResizedRelativePath
}

func (a *Attachment) ResizedImageRelativeURL() string {
	return toURL(a.ResizedImageRelativePath())
}

// ResizedImagePath returns the absolute path of the resized copy, or "" when
// the attachment is not an image or is unbound.
func (a *Attachment) ResizedImagePath() string {
	return a.mapPath(a.ResizedImageRelativePath())
}

func (a *Attachment) ResizedImageLength() *int64 {
	info, ok := a.Image()
	if !ok {
		return nil
	}
	return &info.ResizedLength
}

func (a *Attachment) ResizedImageSize() *ImageSize {
	info, ok := a.Image()
	if !ok {
		return nil
	}
	return &info.ResizedSize
}

func toURL(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}

type attachmentJSON struct {
	Id                       AttachmentId `json:"id"`
	MessageId                MessageId    `json:"messageId"`
	CreatedAtUtc             time.Time    `json:"createdAtUtc"`
	RelativePath             string       `json:"relativePath"`
	Length                   *int64       `json:"length,omitempty"`
	IsImage                  *bool        `json:"isImage,omitempty"`
	ImageFormat              *string      `json:"imageFormat,omitempty"`
	ImageSize                *ImageSize   `json:"imageSize,omitempty"`
	ResizedImageRelativePath *string      `json:"resizedImageRelativePath,omitempty"`
	ResizedImageLength       *int64       `json:"resizedImageLength,omitempty"`
	ResizedImageSize         *ImageSize   `json:"resizedImageSize,omitempty"`
}

// MarshalJSON writes the persisted fields. A bound attachment computes its
// length and image state first so the next process run can skip that work.
func (a *Attachment) MarshalJSON() ([]byte, error) {
	if a.env != nil {
		_, _ = a.Length() // a missing file just leaves length out
		a.resolve()
	}

	out := attachmentJSON{
		Id:           a.Id,
		MessageId:    a.MessageId,
		CreatedAtUtc: a.CreatedAtUtc.UTC(),
		RelativePath: a.RelativePath,
		Length:       a.length,
	}

	switch a.image.State {
	case ImageResolved:
		isImage := true
		info := a.image.Info
		out.IsImage = &isImage
		out.ImageFormat = &info.Format
		out.ImageSize = &info.Size
		out.ResizedImageRelativePath = &info.ResizedRelativePath
		out.ResizedImageLength = &info.ResizedLength
		out.ResizedImageSize = &info.ResizedSize
	case ImageNotAnImage:
		isImage := false
		out.IsImage = &isImage
	}

	return json.Marshal(out)
}

// UnmarshalJSON restores a previously persisted attachment. The image state
// is restored only when the record is complete; otherwise it stays
// unresolved and is recomputed on first read.
func (a *Attachment) UnmarshalJSON(data []byte) error {
	var in attachmentJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	env := a.env
	*a = Attachment{
		Id:           in.Id,
		MessageId:    in.MessageId,
		CreatedAtUtc: in.CreatedAtUtc.UTC(),
		RelativePath: in.RelativePath,
		length:       in.Length,
		env:          env,
	}

	if in.IsImage == nil {
		return nil
	}
	if !*in.IsImage {
		a.image = NotAnImage(nil)
		return nil
	}
	if in.ImageFormat == nil || in.ImageSize == nil || in.ResizedImageRelativePath == nil ||
		in.ResizedImageLength == nil || in.ResizedImageSize == nil {
		return nil
	}
	a.image = ResolvedImage(ImageInfo{
		Format:              *in.ImageFormat,
		Size:                *in.ImageSize,
		ResizedRelativePath: *in.ResizedImageRelativePath,
		ResizedLength:       *in.ResizedImageLength,
		ResizedSize:         *in.ResizedImageSize,
	})
	return nil
}
