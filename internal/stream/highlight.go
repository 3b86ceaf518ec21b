package stream

import (
	"time"

	"github.com/classboard/board-stream/internal/domain"
)

// DefaultHighlightWindow is how long a navigated-to message stays
// highlighted before the style is cleared.
const DefaultHighlightWindow = 2 * time.Second

// Highlighter arms a one-shot scroll-and-highlight for a target message id,
// typically set when the view is opened from a notification. Once the id
// shows up in a snapshot the highlight fires exactly once for the lifetime
// of the view, even if later snapshots still contain the id.
type Highlighter struct {
	targetID string
	fired    bool
}

func NewHighlighter(targetID string) *Highlighter {
	return &Highlighter{targetID: targetID}
}

// Check reports the target id the first time it appears in items; every
// later call returns false.
func (h *Highlighter) Check(items []domain.Message) (string, bool) {
	if h.fired || h.targetID == "" {
		return "", false
	}
	for _, m := range items {
		if m.ID == h.targetID {
			h.fired = true
			return h.targetID, true
		}
	}
	return "", false
}
