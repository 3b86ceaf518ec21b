package stream_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classboard/board-stream/internal/domain"
	"github.com/classboard/board-stream/internal/stream"
)

func at(ts string) domain.Message {
	parsed, err := time.Parse("2006-01-02T15:04", ts)
	if err != nil {
		panic(err)
	}
	return domain.Message{ID: ts, CreatedAt: parsed}
}

func TestGroupByDayCalendarBoundary(t *testing.T) {
	items := []domain.Message{
		at("2024-01-01T23:59"),
		at("2024-01-02T00:01"),
		at("2024-01-02T10:00"),
	}
	buckets := stream.GroupByDay(items)
	require.Len(t, buckets, 2)
	assert.Len(t, buckets[0].Items, 1)
	assert.Len(t, buckets[1].Items, 2)
	assert.Equal(t, "January 1, 2024", buckets[0].Label)
	assert.Equal(t, "January 2, 2024", buckets[1].Label)
}

func TestGroupByDayEmpty(t *testing.T) {
	assert.Empty(t, stream.GroupByDay(nil))
}

func TestGroupByDaySingleDay(t *testing.T) {
	items := []domain.Message{
		at("2024-03-05T08:00"),
		at("2024-03-05T09:00"),
		at("2024-03-05T23:59"),
	}
	buckets := stream.GroupByDay(items)
	require.Len(t, buckets, 1)
	assert.Len(t, buckets[0].Items, 3)
}

func TestHighlighterFiresOnce(t *testing.T) {
	h := stream.NewHighlighter("m2")
	items := []domain.Message{{ID: "m1"}, {ID: "m2"}}

	id, ok := h.Check(items)
	require.True(t, ok)
	assert.Equal(t, "m2", id)

	// same target never re-triggers for one mount
	_, ok = h.Check(items)
	assert.False(t, ok)
}

func TestHighlighterWaitsForTarget(t *testing.T) {
	h := stream.NewHighlighter("m9")
	_, ok := h.Check([]domain.Message{{ID: "m1"}})
	assert.False(t, ok)

	id, ok := h.Check([]domain.Message{{ID: "m1"}, {ID: "m9"}})
	require.True(t, ok)
	assert.Equal(t, "m9", id)
}

func TestHighlighterNoTarget(t *testing.T) {
	h := stream.NewHighlighter("")
	_, ok := h.Check([]domain.Message{{ID: "m1"}})
	assert.False(t, ok)
}
