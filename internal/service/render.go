package service

import (
	"time"

	"github.com/itchan-dev/worklog/internal/domain"
)

// RenderedMessage is a message prepared for display.
type RenderedMessage struct {
	Id           domain.MessageId
	CreatedAtUtc time.Time
	HTML         string
	Attachments  []AttachmentView
}

type AttachmentView struct {
	Name   string
	URL    string
	Length int64 // -1 when the file is gone
	// Preview fields are set only for images.
	IsImage    bool
	PreviewURL string
	Width      int
	Height     int
}

func (w *WorkLog) RenderMessage(id domain.MessageId) (*RenderedMessage, error) {
	msg, err := w.storage.Message(id)
	if err != nil {
		return nil, err
	}

	html, err := w.renderer.Render(msg.Content)
	if err != nil {
		return nil, err
	}

	pending := unresolvedAttachments(msg)
	out := &RenderedMessage{Id: msg.Id, CreatedAtUtc: msg.CreatedAtUtc, HTML: html}
	for _, a := range msg.Attachments {
		out.Attachments = append(out.Attachments, attachmentView(a))
	}
	w.saveResolved(msg, pending)
	return out, nil
}

func attachmentView(a *domain.Attachment) AttachmentView {
	v := AttachmentView{Name: a.Name(), URL: a.RelativeURL(), Length: -1}
	if n, err := a.Length(); err == nil {
		v.Length = n
	}
	if info, ok := a.Image(); ok {
		v.IsImage = true
		v.PreviewURL = a.ResizedImageRelativeURL()
		v.Width = info.ResizedSize.Width
		v.Height = info.ResizedSize.Height
	}
	return v
}
