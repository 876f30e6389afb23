package touchwheel

import "time"

// Clock is the monotonic time source used by HoldTimer and Calibrate.
type Clock interface {
	Now() time.Time
}

// SystemClock reads time.Now, which carries a monotonic reading.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// TimerMode selects how HoldTimer.Over behaves once the duration has elapsed.
type TimerMode int

const (
	// TimerOneShot disarms the timer after the first Over that returns true.
	TimerOneShot TimerMode = iota
	// TimerLevel keeps returning true until the timer is restarted or disabled.
	TimerLevel
)

// HoldTimer measures how long a contact has been sustained.
type HoldTimer struct {
	clock    Clock
	mode     TimerMode
	duration time.Duration
	start    time.Time
	armed    bool
}

// NewHoldTimer creates a disarmed timer. A nil clock means SystemClock.
func NewHoldTimer(clock Clock, mode TimerMode) *HoldTimer {
	if clock == nil {
		clock = SystemClock{}
	}
	return &HoldTimer{clock: clock, mode: mode}
}

// Start arms the timer for d from now.
func (t *HoldTimer) Start(d time.Duration) {
	t.duration = d
	t.start = t.clock.Now()
	t.armed = true
}

// Over reports whether the armed timer has run for longer than its duration.
func (t *HoldTimer) Over() bool {
	out := t.armed && t.Elapsed() > t.duration
	if out && t.mode == TimerOneShot {
		t.armed = false
	}
	return out
}

// Elapsed returns the time since the last Start.
func (t *HoldTimer) Elapsed() time.Duration {
	return t.clock.Now().Sub(t.start)
}

// Disable disarms the timer.
func (t *HoldTimer) Disable() { t.armed = false }

// Armed reports whether the timer is running.
func (t *HoldTimer) Armed() bool { return t.armed }
