package touchwheel

import "math"

// zone target angles: ring zones compare against theta, center against phi.
var zoneTargets = [numZones]float64{
	ZoneUp:     math.Pi / 2,
	ZoneDown:   -math.Pi / 2,
	ZoneLeft:   math.Pi,
	ZoneRight:  0,
	ZoneCenter: math.Pi / 2,
}

// pressOrder is the order zones are scanned in when emitting press, release
// and long events.
var pressOrder = [numZones]Zone{ZoneCenter, ZoneUp, ZoneDown, ZoneLeft, ZoneRight}

// ZoneState is a snapshot of the boolean touch signals.
type ZoneState struct {
	Any   bool           `json:"any"`
	Ring  bool           `json:"ring"`
	Zones [numZones]bool `json:"zones"`
}

// Active returns the zones currently touched, in channel order.
func (s ZoneState) Active() []Zone {
	var out []Zone
	for _, z := range Zones() {
		if s.Zones[z] {
			out = append(out, z)
		}
	}
	return out
}

// Snapshot is a diagnostic view of the classifier after the last poll.
type Snapshot struct {
	Reading   Reading   `json:"reading"`
	State     ZoneState `json:"state"`
	Threshold float64   `json:"threshold"`
	Locked    bool      `json:"locked"`
	Pending   int       `json:"pending"`
}

// Classifier turns physics readings into navigation events.
//
// A session runs from the moment "any touch" rises until it falls. Each
// session yields one gesture: a tap (Press then Release), a hold (Press then
// Long, no Release) or a rotation (Dial ticks only). The first Dial tick or
// the Long event locks the session, which suppresses any further Press and
// Release until the finger lifts.
//
// Within one poll events are queued in the order press/release, dial, long.
type Classifier struct {
	phys *Physics
	cfg  Config

	thr    float64
	thrRad float64

	any   *Signal
	ring  *Signal
	zones [numZones]*Signal

	dial   *Dial
	hold   *HoldTimer
	locked bool

	last   Reading
	events EventQueue
}

// NewClassifier creates a classifier on top of phys. phys may be nil when the
// caller feeds readings through Update directly.
func NewClassifier(phys *Physics, cfg Config) (*Classifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Classifier{
		phys:   phys,
		cfg:    cfg,
		thr:    cfg.ThresholdUpper,
		thrRad: cfg.ZoneWidthDeg / 180 * math.Pi,
		any:    NewSignal(),
		ring:   NewSignal(),
		dial:   NewDial(cfg.DialResolution),
		hold:   NewHoldTimer(cfg.Clock, TimerLevel),
	}
	for i := range c.zones {
		c.zones[i] = NewSignal()
	}
	return c, nil
}

// Events returns the queue the classifier appends to. The UI layer drains it.
func (c *Classifier) Events() *EventQueue { return &c.events }

// Step samples physics with raw, classifies, and pops at most one event.
func (c *Classifier) Step(raw RawSample) (Event, bool) {
	if c.phys != nil {
		c.Update(c.phys.Update(raw))
	}
	return c.events.Pop()
}

// Update classifies one reading and queues any resulting events.
func (c *Classifier) Update(r Reading) {
	c.last = r

	// touch detection uses the threshold settled on the previous poll
	c.any.set(r.L > c.thr)
	c.ring.set(r.R > c.thr)
	for _, z := range Zones() {
		if z == ZoneCenter {
			c.zones[z].set(c.near(z, r.Phi) && c.any.On())
			continue
		}
		c.zones[z].set(c.near(z, r.Theta) && c.ring.On())
	}

	// adaptive threshold
	if c.any.Rose() {
		c.thr = c.cfg.ThresholdLower
	}
	if c.any.Fell() {
		c.thr = c.cfg.ThresholdUpper
	}

	// press / release
	if !c.locked {
		for _, z := range pressOrder {
			s := c.zones[z]
			if s.Rose() && c.any.Rose() {
				c.events.Push(mustEvent(EventPress, z, 0))
			}
			if s.Fell() && c.any.Fell() {
				c.events.Push(mustEvent(EventRelease, z, 0))
			}
		}
	}

	// dial
	if c.ring.Rose() {
		c.dial.Reset(r.Theta)
	}
	if c.ring.On() {
		if ticks := c.dial.Update(r.Theta); ticks != 0 {
			c.locked = true
			c.events.Push(mustEvent(EventDial, 0, ticks))
		}
	}

	// long hold
	if c.any.Rose() {
		c.hold.Start(c.cfg.LongHold)
	}
	if c.any.On() && c.hold.Over() && !c.locked {
		c.locked = true
		for _, z := range pressOrder {
			if c.zones[z].On() {
				c.events.Push(mustEvent(EventLong, z, 0))
			}
		}
	}

	if c.any.Fell() {
		c.locked = false
		c.hold.Disable()
	}
}

func (c *Classifier) near(z Zone, angle float64) bool {
	return math.Abs(CircularDelta(zoneTargets[z], angle)) < c.thrRad
}

// Touched reports whether a session is in progress.
func (c *Classifier) Touched() bool { return c.any.On() }

// SessionStarted reports whether the last Update began a session.
func (c *Classifier) SessionStarted() bool { return c.any.Rose() }

// SessionEnded reports whether the last Update ended a session.
func (c *Classifier) SessionEnded() bool { return c.any.Fell() }

// Locked reports whether the current session's gesture is already decided.
func (c *Classifier) Locked() bool { return c.locked }

// Threshold returns the active touch threshold.
func (c *Classifier) Threshold() float64 { return c.thr }

// State returns the boolean touch signals after the last Update.
func (c *Classifier) State() ZoneState {
	s := ZoneState{Any: c.any.On(), Ring: c.ring.On()}
	for i, z := range c.zones {
		s.Zones[i] = z.On()
	}
	return s
}

// Snapshot returns a diagnostic view of the classifier.
func (c *Classifier) Snapshot() Snapshot {
	return Snapshot{
		Reading:   c.last,
		State:     c.State(),
		Threshold: c.thr,
		Locked:    c.locked,
		Pending:   c.events.Len(),
	}
}

// Reset ends any session without emitting events and drops pending events.
func (c *Classifier) Reset() {
	c.any.reset()
	c.ring.reset()
	for _, z := range c.zones {
		z.reset()
	}
	c.thr = c.cfg.ThresholdUpper
	c.locked = false
	c.hold.Disable()
	c.dial.Reset(0)
	c.last = Reading{}
	c.events.Clear()
	if c.phys != nil {
		c.phys.Reset()
	}
}
