package stream_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/classboard/board-stream/internal/domain"
	"github.com/classboard/board-stream/internal/stream"
)

func msgs(n int, lastSender string) []domain.Message {
	out := make([]domain.Message, n)
	for i := range out {
		out[i] = domain.Message{
			ID:        fmt.Sprintf("m%d", i),
			SenderID:  "other",
			CreatedAt: time.Date(2024, 1, 1, 10, i, 0, 0, time.UTC),
		}
	}
	if n > 0 && lastSender != "" {
		out[n-1].SenderID = lastSender
	}
	return out
}

func TestFirstPopulationScrollsInstantly(t *testing.T) {
	r := stream.NewReconciler("me")
	out := r.Apply(msgs(3, ""), false)
	assert.Equal(t, stream.OutcomeScrollBottom, out.Kind)
	assert.False(t, out.Smooth)
}

func TestEmptySnapshotIsNoOp(t *testing.T) {
	r := stream.NewReconciler("me")
	out := r.Apply(nil, true)
	assert.Equal(t, stream.OutcomeNone, out.Kind)
	assert.Empty(t, r.Items())
}

func TestNewMessagesAwayFromBottomBadge(t *testing.T) {
	r := stream.NewReconciler("me")
	r.Apply(msgs(5, ""), true)

	out := r.Apply(msgs(7, ""), false)
	assert.Equal(t, stream.OutcomeBadge, out.Kind)
	assert.Equal(t, 2, out.Badge)
	assert.Equal(t, 2, r.Badge())
}

func TestOwnLatestAlwaysScrolls(t *testing.T) {
	r := stream.NewReconciler("me")
	r.Apply(msgs(5, ""), true)

	out := r.Apply(msgs(7, "me"), false)
	assert.Equal(t, stream.OutcomeScrollBottom, out.Kind)
	assert.True(t, out.Smooth)
	assert.Equal(t, 0, r.Badge())
}

func TestNearBottomScrollsSmooth(t *testing.T) {
	r := stream.NewReconciler("me")
	r.Apply(msgs(5, ""), true)

	out := r.Apply(msgs(6, ""), true)
	assert.Equal(t, stream.OutcomeScrollBottom, out.Kind)
	assert.True(t, out.Smooth)
}

func TestBadgeAccumulatesAcrossSnapshots(t *testing.T) {
	r := stream.NewReconciler("me")
	r.Apply(msgs(2, ""), true)
	r.Apply(msgs(4, ""), false)
	out := r.Apply(msgs(5, ""), false)
	assert.Equal(t, 3, out.Badge)

	r.ClearBadge()
	assert.Equal(t, 0, r.Badge())
}

func TestShrunkSnapshotIsNoOp(t *testing.T) {
	r := stream.NewReconciler("me")
	r.Apply(msgs(5, ""), true)
	out := r.Apply(msgs(4, ""), false)
	assert.Equal(t, stream.OutcomeNone, out.Kind)
	assert.Len(t, r.Items(), 4)
}
