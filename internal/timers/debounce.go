package timers

import (
	"sync"
	"time"
)

// Debouncer is a restartable one-shot timer. Schedule cancels any pending
// fire and arms a new one, so only the last scheduled fn runs, after a
// quiet period. Every Schedule site must have a matching Cancel on
// teardown so no callback outlives its view.
type Debouncer struct {
	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
}

func NewDebouncer() *Debouncer { return &Debouncer{} }

// Schedule arms fn to run after d, replacing any pending schedule.
func (d *Debouncer) Schedule(delay time.Duration, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(delay, func() {
		d.mu.Lock()
		stale := gen != d.gen
		d.mu.Unlock()
		if !stale {
			fn()
		}
	})
}

// Cancel drops any pending fire.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
}
