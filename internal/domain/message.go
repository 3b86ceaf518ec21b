package domain

import (
	"errors"
	"time"
)

// Kind tags the message variant. The set is closed: anything the backend
// hands us is coerced into one of these before internal code touches it.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
	KindFile  Kind = "file"
)

// Message is the unified shape for board chat messages and note comments.
// Comments are the subset without pin state.
type Message struct {
	ID          string    `bson:"_id" json:"id"`
	StreamID    string    `bson:"stream_id" json:"stream_id"`
	SenderID    string    `bson:"sender_id" json:"sender_id"`
	SenderName  string    `bson:"sender_name" json:"sender_name"`
	SenderPhoto string    `bson:"sender_photo,omitempty" json:"sender_photo,omitempty"`
	Content     string    `bson:"content" json:"content"`
	Kind        Kind      `bson:"kind" json:"kind"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`

	ImageURL      string `bson:"image_url,omitempty" json:"image_url,omitempty"`
	VideoURL      string `bson:"video_url,omitempty" json:"video_url,omitempty"`
	AudioURL      string `bson:"audio_url,omitempty" json:"audio_url,omitempty"`
	AudioDuration int    `bson:"audio_duration,omitempty" json:"audio_duration,omitempty"`
	FileURL       string `bson:"file_url,omitempty" json:"file_url,omitempty"`
	FileName      string `bson:"file_name,omitempty" json:"file_name,omitempty"`

	// Reply snapshot, frozen at reply time. Editing or deleting the
	// original never cascades here.
	ReplyToID      string `bson:"reply_to_id,omitempty" json:"reply_to_id,omitempty"`
	ReplyToAuthor  string `bson:"reply_to_author,omitempty" json:"reply_to_author,omitempty"`
	ReplyToContent string `bson:"reply_to_content,omitempty" json:"reply_to_content,omitempty"`

	IsPinned bool       `bson:"is_pinned" json:"is_pinned"`
	PinnedAt *time.Time `bson:"pinned_at,omitempty" json:"pinned_at,omitempty"`
	IsEdited bool       `bson:"is_edited" json:"is_edited"`
	Likes    []string   `bson:"likes" json:"likes"`
}

var ErrMalformedDocument = errors.New("malformed message document")

// FromDocument coerces a duck-typed backend payload into a Message. Unknown
// kinds degrade to text; a document missing id or sender is rejected and
// the caller skips it.
func FromDocument(doc map[string]any) (Message, error) {
	m := Message{
		ID:          str(doc, "id", "_id"),
		StreamID:    str(doc, "stream_id"),
		SenderID:    str(doc, "sender_id"),
		SenderName:  str(doc, "sender_name"),
		SenderPhoto: str(doc, "sender_photo"),
		Content:     str(doc, "content"),

		ImageURL: str(doc, "image_url"),
		VideoURL: str(doc, "video_url"),
		AudioURL: str(doc, "audio_url"),
		FileURL:  str(doc, "file_url"),
		FileName: str(doc, "file_name"),

		ReplyToID:      str(doc, "reply_to_id"),
		ReplyToAuthor:  str(doc, "reply_to_author"),
		ReplyToContent: str(doc, "reply_to_content"),
	}
	m.Kind = Kind(str(doc, "kind"))
	if v, ok := doc["created_at"].(time.Time); ok {
		m.CreatedAt = v
	}
	if v, ok := doc["audio_duration"].(int); ok {
		m.AudioDuration = v
	} else if v, ok := doc["audio_duration"].(float64); ok {
		m.AudioDuration = int(v)
	}
	if v, ok := doc["is_pinned"].(bool); ok {
		m.IsPinned = v
	}
	if v, ok := doc["pinned_at"].(time.Time); ok {
		m.PinnedAt = &v
	}
	if v, ok := doc["is_edited"].(bool); ok {
		m.IsEdited = v
	}
	switch likes := doc["likes"].(type) {
	case []string:
		m.Likes = likes
	case []any:
		for _, l := range likes {
			if s, ok := l.(string); ok {
				m.Likes = append(m.Likes, s)
			}
		}
	}
	if err := m.Normalize(); err != nil {
		return Message{}, err
	}
	return m, nil
}

// Normalize coerces a decoded document into the closed variant set before
// any other code sees it: unknown kinds degrade to text and the likes slice
// is never nil. A document missing its identity is rejected. Every read path
// out of storage goes through here, whatever codec produced the struct.
func (m *Message) Normalize() error {
	if m.ID == "" || m.SenderID == "" {
		return ErrMalformedDocument
	}
	switch m.Kind {
	case KindText, KindImage, KindVideo, KindAudio, KindFile:
	default:
		m.Kind = KindText
	}
	if m.Likes == nil {
		m.Likes = []string{}
	}
	return nil
}

func str(doc map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := doc[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// LikedBy reports whether userID is in the likes set.
func (m *Message) LikedBy(userID string) bool {
	for _, id := range m.Likes {
		if id == userID {
			return true
		}
	}
	return false
}
