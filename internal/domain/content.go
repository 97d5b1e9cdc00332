package domain

import "errors"

var ErrContentIDEmpty = errors.New("content id empty")

type ContentID string

// MediaKind distinguishes how the playback collaborator should load
// the content.
type MediaKind string

const (
	MediaVideo MediaKind = "video"
	MediaAudio MediaKind = "audio"
)

type MediaContent struct {
	ID    ContentID `json:"id"`
	Title string    `json:"title"`
	Kind  MediaKind `json:"kind"`
	URL   string    `json:"url,omitempty"`
}

func (c *MediaContent) Validate() error {
	if c.ID == "" {
		return ErrContentIDEmpty
	}
	return nil
}
