package gesture_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classboard/board-stream/internal/gesture"
)

// drag plays a touch sequence expressed as leftward deltas from the start
// position.
func drag(t *gesture.Tracker, itemID string, deltas ...float64) {
	t.Start(itemID, 200)
	for _, d := range deltas {
		t.Move(200 - d)
	}
}

func TestSwipePastThresholdTriggersOnce(t *testing.T) {
	tr := gesture.NewTracker()
	drag(tr, "m1", 10, 40, 55)

	id, committed := tr.End()
	require.True(t, committed)
	assert.Equal(t, "m1", id)

	// a second release without a new touch does nothing
	_, committed = tr.End()
	assert.False(t, committed)
}

func TestSwipeShortOfThresholdDoesNotTrigger(t *testing.T) {
	tr := gesture.NewTracker()
	drag(tr, "m1", 10, 30)

	_, committed := tr.End()
	assert.False(t, committed)
	assert.Zero(t, tr.Offset())
}

func TestPeakCountsEvenIfReleasedCloser(t *testing.T) {
	// crossed 50 mid-drag, drifted back before release: still commits
	tr := gesture.NewTracker()
	drag(tr, "m1", 10, 60, 20)

	_, committed := tr.End()
	assert.True(t, committed)
}

func TestRightwardDragIgnored(t *testing.T) {
	tr := gesture.NewTracker()
	tr.Start("m1", 200)
	assert.Zero(t, tr.Move(260))

	_, committed := tr.End()
	assert.False(t, committed)
}

func TestOffsetClamped(t *testing.T) {
	tr := gesture.NewTracker()
	tr.Start("m1", 500)
	assert.Equal(t, float64(80), tr.Move(100))
}

func TestSingleActiveItem(t *testing.T) {
	tr := gesture.NewTracker()
	tr.Start("m1", 200)
	tr.Move(140)
	// a new touch replaces the active item and resets progress
	tr.Start("m2", 200)
	assert.Equal(t, "m2", tr.ActiveID())

	_, committed := tr.End()
	assert.False(t, committed)
}
