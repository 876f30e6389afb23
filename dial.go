package touchwheel

import "math"

// Dial converts a continuous planar angle into discrete rotation ticks.
//
// A tick is 2π/N of accumulated travel. Counter-clockwise motion (increasing
// theta) produces negative ticks, clockwise motion positive ones; the UI
// depends on this sign convention.
type Dial struct {
	n        int
	step     float64 // 2π/N
	half     float64 // π/N
	last     float64
	residual float64
	changed  bool
}

// NewDial creates a decoder with n ticks per revolution. n < 1 is treated as 1.
func NewDial(n int) *Dial {
	if n < 1 {
		n = 1
	}
	return &Dial{
		n:    n,
		step: 2 * math.Pi / float64(n),
		half: math.Pi / float64(n),
	}
}

// Resolution returns the number of ticks per revolution.
func (d *Dial) Resolution() int { return d.n }

// Reset starts a new rotation at theta0 and drops any residual travel.
func (d *Dial) Reset(theta0 float64) {
	d.last = theta0
	d.residual = 0
	d.changed = false
}

// Update consumes the next angle and returns the signed tick count. The result
// is usually -1, 0 or +1; very fast rotation can yield larger magnitudes.
// After Update the residual lies in [-π/N, π/N].
func (d *Dial) Update(theta float64) int {
	d.residual += CircularDelta(theta, d.last)
	d.last = theta

	ticks := 0
	for d.residual > d.half {
		d.residual -= d.step
		ticks--
	}
	for d.residual < -d.half {
		d.residual += d.step
		ticks++
	}
	if ticks != 0 {
		d.changed = true
	}
	return ticks
}

// Residual returns the accumulated travel not yet converted into ticks.
func (d *Dial) Residual() float64 { return d.residual }

// Changed reports whether any tick was produced since the last Reset.
func (d *Dial) Changed() bool { return d.changed }
