package stream

import (
	"github.com/classboard/board-stream/internal/domain"
)

// OutcomeKind says what a freshly applied snapshot should do to the
// viewport.
type OutcomeKind int

const (
	OutcomeNone OutcomeKind = iota
	OutcomeScrollBottom
	OutcomeBadge
)

type Outcome struct {
	Kind   OutcomeKind
	Smooth bool // scroll animation; instant on first population
	Badge  int  // total pending-new count when Kind == OutcomeBadge
}

// Reconciler merges ordered full snapshots from the subscription feed into
// the view state of one open conversation. Each snapshot fully replaces the
// local list; there is no partial merge.
type Reconciler struct {
	currentUserID string
	items         []domain.Message
	populated     bool
	badge         int
}

func NewReconciler(currentUserID string) *Reconciler {
	return &Reconciler{currentUserID: currentUserID}
}

// Items returns the current list state.
func (r *Reconciler) Items() []domain.Message { return r.items }

// Badge returns the pending "N new messages" count.
func (r *Reconciler) Badge() int { return r.badge }

// Apply ingests a snapshot. nearBottom is derived by the view from its
// scroll metrics (distance from bottom under 100px).
func (r *Reconciler) Apply(snapshot []domain.Message, nearBottom bool) Outcome {
	oldLen := len(r.items)
	hadBefore := r.populated && oldLen > 0
	r.items = snapshot
	newLen := len(snapshot)

	if newLen == 0 {
		// empty or malformed snapshot renders the empty state, nothing more
		return Outcome{Kind: OutcomeNone}
	}

	if !hadBefore {
		r.populated = true
		return Outcome{Kind: OutcomeScrollBottom, Smooth: false}
	}

	delta := newLen - oldLen
	if delta <= 0 {
		return Outcome{Kind: OutcomeNone}
	}

	ownLatest := snapshot[newLen-1].SenderID == r.currentUserID
	if nearBottom || ownLatest {
		return Outcome{Kind: OutcomeScrollBottom, Smooth: true}
	}

	r.badge += delta
	return Outcome{Kind: OutcomeBadge, Badge: r.badge}
}

// ClearBadge resets the pending-new count. Called when the user scrolls to
// the bottom themselves or the view is reopened.
func (r *Reconciler) ClearBadge() { r.badge = 0 }
