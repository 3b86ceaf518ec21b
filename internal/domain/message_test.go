package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/classboard/board-stream/internal/domain"
)

func TestFromDocumentCoercesKnownKind(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m, err := domain.FromDocument(map[string]any{
		"id":             "m1",
		"stream_id":      "board:1",
		"sender_id":      "u1",
		"kind":           "audio",
		"audio_url":      "https://cdn/x.ogg",
		"audio_duration": float64(42),
		"created_at":     now,
		"likes":          []any{"u2", "u3"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.KindAudio, m.Kind)
	assert.Equal(t, 42, m.AudioDuration)
	assert.Equal(t, now, m.CreatedAt)
	assert.Equal(t, []string{"u2", "u3"}, m.Likes)
}

func TestFromDocumentUnknownKindDegradesToText(t *testing.T) {
	m, err := domain.FromDocument(map[string]any{
		"id":        "m1",
		"sender_id": "u1",
		"kind":      "hologram",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.KindText, m.Kind)
}

func TestFromDocumentRejectsMissingIdentity(t *testing.T) {
	_, err := domain.FromDocument(map[string]any{"content": "hi"})
	assert.ErrorIs(t, err, domain.ErrMalformedDocument)

	_, err = domain.FromDocument(map[string]any{"id": "m1"})
	assert.ErrorIs(t, err, domain.ErrMalformedDocument)
}

func TestFromDocumentLikesNeverNil(t *testing.T) {
	m, err := domain.FromDocument(map[string]any{"id": "m1", "sender_id": "u1"})
	require.NoError(t, err)
	assert.NotNil(t, m.Likes)
	assert.Empty(t, m.Likes)
}

func TestFromDocumentReplySnapshot(t *testing.T) {
	m, err := domain.FromDocument(map[string]any{
		"id":               "m2",
		"sender_id":        "u1",
		"reply_to_id":      "m1",
		"reply_to_author":  "Ada",
		"reply_to_content": "original",
	})
	require.NoError(t, err)
	assert.Equal(t, "m1", m.ReplyToID)
	assert.Equal(t, "Ada", m.ReplyToAuthor)
	assert.Equal(t, "original", m.ReplyToContent)
}

func TestNormalizeAfterStructDecode(t *testing.T) {
	// the storage layer decodes through bson struct tags, so an out-of-set
	// kind survives decoding and only Normalize closes the variant set
	raw, err := bson.Marshal(bson.M{"_id": "m1", "sender_id": "u1", "kind": "weird"})
	require.NoError(t, err)

	var m domain.Message
	require.NoError(t, bson.Unmarshal(raw, &m))
	assert.Equal(t, domain.Kind("weird"), m.Kind)

	require.NoError(t, m.Normalize())
	assert.Equal(t, domain.KindText, m.Kind)
	assert.NotNil(t, m.Likes)
}

func TestNormalizeRejectsMissingIdentity(t *testing.T) {
	m := domain.Message{ID: "m1"}
	assert.ErrorIs(t, m.Normalize(), domain.ErrMalformedDocument)

	m = domain.Message{SenderID: "u1"}
	assert.ErrorIs(t, m.Normalize(), domain.ErrMalformedDocument)
}

func TestLikedBy(t *testing.T) {
	m := domain.Message{Likes: []string{"u1", "u2"}}
	assert.True(t, m.LikedBy("u1"))
	assert.False(t, m.LikedBy("u9"))
}

func TestIsBroadcast(t *testing.T) {
	assert.True(t, domain.IsBroadcast("broadcast:everyone"))
	assert.False(t, domain.IsBroadcast("u1"))
}
