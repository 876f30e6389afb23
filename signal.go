package touchwheel

// relayDecay is applied to the relay accumulator on every update that stays
// inside the deadband.
const relayDecay = 0.95

// Relay is a deadband accumulator. Small inputs are absorbed (and slowly
// forgotten); once the accumulated input exceeds the threshold only the excess
// is passed through, so sustained motion is tracked without low-pass lag.
type Relay struct {
	thr    float64
	remain float64
}

// NewRelay creates a relay with the given threshold.
func NewRelay(thr float64) *Relay {
	return &Relay{thr: thr}
}

// Feed accumulates x and returns the part of the accumulator that exceeds the
// threshold (0 when inside the deadband).
func (r *Relay) Feed(x float64) float64 {
	r.remain += x

	var y float64
	switch {
	case r.remain > r.thr:
		y = r.remain - r.thr
	case r.remain < -r.thr:
		y = r.remain + r.thr
	default:
		r.remain *= relayDecay
	}
	r.remain -= y
	return y
}

// Remain returns the current accumulator value.
func (r *Relay) Remain() float64 { return r.remain }

// Signal is a single filtered scalar.
//
// Update performs filter-then-commit: optional exponential smoothing first,
// then optional relay shaping of the step relative to the last committed
// value. Value and Diff are pure readers of the committed state.
//
// Signals are owned by one engine and updated exactly once per poll.
type Signal struct {
	current  float64
	previous float64

	smooth bool
	alpha  float64

	relay *Relay
}

// SignalOption configures a Signal.
type SignalOption func(*Signal)

// WithSmoothing enables exponential smoothing with alpha = 1/2^level.
func WithSmoothing(level int) SignalOption {
	return func(s *Signal) {
		s.smooth = true
		s.alpha = 1 / float64(uint(1)<<uint(level))
	}
}

// WithRelay enables hysteresis shaping with the given deadband threshold.
func WithRelay(thr float64) SignalOption {
	return func(s *Signal) {
		s.relay = NewRelay(thr)
	}
}

// NewSignal creates a signal. Without options it is a pass-through value that
// only tracks its previous committed state.
func NewSignal(opts ...SignalOption) *Signal {
	s := &Signal{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Update feeds one raw input and commits the new value.
func (s *Signal) Update(raw float64) {
	s.previous = s.current

	if s.smooth {
		raw = raw*s.alpha + s.current*(1-s.alpha)
	}

	step := raw - s.previous
	if s.relay != nil {
		step = s.relay.Feed(step)
	}
	s.current = s.previous + step
}

// Value returns the last committed value.
func (s *Signal) Value() float64 { return s.current }

// Diff returns the committed change made by the last Update.
func (s *Signal) Diff() float64 { return s.current - s.previous }

// Rose reports a 0→1 transition on a boolean-valued signal.
func (s *Signal) Rose() bool { return s.Diff() == 1 }

// Fell reports a 1→0 transition on a boolean-valued signal.
func (s *Signal) Fell() bool { return s.Diff() == -1 }

// On reports whether a boolean-valued signal is currently 1.
func (s *Signal) On() bool { return s.current == 1 }

// set commits a boolean as 0/1.
func (s *Signal) set(on bool) {
	if on {
		s.Update(1)
		return
	}
	s.Update(0)
}

// reset zeroes the committed state and the relay accumulator.
func (s *Signal) reset() {
	s.current, s.previous = 0, 0
	if s.relay != nil {
		s.relay.remain = 0
	}
}
