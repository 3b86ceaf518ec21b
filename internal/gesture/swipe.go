package gesture

// Swipe-to-reply thresholds, in px of horizontal drag.
const (
	maxOffset       = 80
	commitThreshold = 50
)

// Tracker interprets touch-drag deltas over list items into a reply intent.
// Only one item may be mid-swipe at a time.
type Tracker struct {
	activeID string
	startX   float64
	offset   float64
	peak     float64
}

func NewTracker() *Tracker { return &Tracker{} }

// ActiveID returns the id of the item currently mid-swipe, or "".
func (t *Tracker) ActiveID() string { return t.activeID }

// Offset returns the current clamped translation for the visual feedback.
func (t *Tracker) Offset() float64 { return t.offset }

// Start begins tracking a touch on itemID at x.
func (t *Tracker) Start(itemID string, x float64) {
	t.activeID = itemID
	t.startX = x
	t.offset = 0
	t.peak = 0
}

// Move updates the drag. Only leftward drags are honored; the offset is
// clamped to maxOffset.
func (t *Tracker) Move(x float64) float64 {
	if t.activeID == "" {
		return 0
	}
	delta := t.startX - x
	if delta < 0 {
		delta = 0
	}
	if delta > maxOffset {
		delta = maxOffset
	}
	t.offset = delta
	if delta > t.peak {
		t.peak = delta
	}
	return t.offset
}

// End finishes the gesture, returning the item that was mid-swipe and
// whether the drag crossed the commit threshold. A commit is treated by
// the caller as tapping "reply" on that item. State is reset regardless of
// outcome: the offset snaps back to 0 and the active marker clears.
func (t *Tracker) End() (string, bool) {
	id := t.activeID
	committed := id != "" && t.peak >= commitThreshold
	t.activeID = ""
	t.offset = 0
	t.peak = 0
	t.startX = 0
	return id, committed
}
