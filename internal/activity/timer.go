package activity

import "time"

// scopedTimer is a cancellable deadline owned by the Monitor.
// reset cancels any pending deadline and schedules the new one in a single
// step, so an old deadline can never fire after activity resumes.
type scopedTimer struct {
	deadline time.Time
	armed    bool
}

func (t *scopedTimer) reset(at time.Time) {
	t.deadline = at
	t.armed = true
}

func (t *scopedTimer) cancel() {
	t.deadline = time.Time{}
	t.armed = false
}

// due reports whether the timer is armed and its deadline is at or before now
func (t *scopedTimer) due(now time.Time) bool {
	return t.armed && !now.Before(t.deadline)
}
