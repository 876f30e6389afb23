package touchwheel

import (
	"errors"
	"fmt"
	"math"
)

// ErrDegenerateCalibration is returned when a channel's calibrated maximum is
// not above its minimum. Normalizing against such a range would divide by zero.
var ErrDegenerateCalibration = errors.New("degenerate calibration")

// RawSample holds one raw intensity per channel, indexed by Zone.
type RawSample [numZones]float64

// Calibration is the per-channel (min, max) range raw intensities are
// normalized against. It is immutable once handed to Physics.
type Calibration struct {
	Max [numZones]float64
	Min [numZones]float64
}

// Validate reports ErrDegenerateCalibration for the first channel whose range
// is empty or inverted.
func (c Calibration) Validate() error {
	for _, z := range Zones() {
		if !(c.Max[z] > c.Min[z]) {
			return fmt.Errorf("%w: channel %s max %v <= min %v (re-run calibration)",
				ErrDegenerateCalibration, z, c.Max[z], c.Min[z])
		}
	}
	return nil
}

// TouchVector is the reconstructed 3D touch position. Ring zones span the
// x/y plane and the center zone lifts z.
type TouchVector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// PolarQuantities are derived from TouchVector every poll.
type PolarQuantities struct {
	R     float64 `json:"r"`     // planar amplitude
	L     float64 `json:"l"`     // spatial amplitude
	Theta float64 `json:"theta"` // planar angle, (-π, π]
	Phi   float64 `json:"phi"`   // elevation angle
}

// Reading is the result of one Physics update.
type Reading struct {
	TouchVector
	PolarQuantities
}

// unit direction of each channel, indexed by Zone.
var (
	dirX = [numZones]float64{0, 0, -1, 1, 0}
	dirY = [numZones]float64{1, -1, 0, 0, 0}
	dirZ = [numZones]float64{0, 0, 0, 0, 1}
)

// Physics normalizes raw channel intensities and reconstructs the filtered
// touch vector and its polar quantities.
type Physics struct {
	cal   Calibration
	clamp bool

	x, y, z          *Signal
	r, l, theta, phi *Signal
}

// NewPhysics validates cal and cfg and builds the engine with cfg's axis
// filtering.
func NewPhysics(cal Calibration, cfg Config) (*Physics, error) {
	if err := cal.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var axisOpts []SignalOption
	if cfg.FilterLevel >= 0 {
		axisOpts = append(axisOpts, WithSmoothing(cfg.FilterLevel))
	}
	if cfg.RelayThreshold > 0 {
		axisOpts = append(axisOpts, WithRelay(cfg.RelayThreshold))
	}

	return &Physics{
		cal:   cal,
		clamp: cfg.ClampWeights,
		x:     NewSignal(axisOpts...),
		y:     NewSignal(axisOpts...),
		z:     NewSignal(axisOpts...),
		r:     NewSignal(),
		l:     NewSignal(),
		theta: NewSignal(),
		phi:   NewSignal(),
	}, nil
}

// Calibration returns the range the engine normalizes against.
func (p *Physics) Calibration() Calibration { return p.cal }

// Weights normalizes a raw sample against the calibration range.
func (p *Physics) Weights(raw RawSample) [numZones]float64 {
	var w [numZones]float64
	for i := range w {
		w[i] = (raw[i] - p.cal.Min[i]) / (p.cal.Max[i] - p.cal.Min[i])
		if p.clamp {
			w[i] = math.Min(math.Max(w[i], 0), 1)
		}
	}
	return w
}

// Update consumes one raw sample and returns the new reading.
func (p *Physics) Update(raw RawSample) Reading {
	w := p.Weights(raw)

	var sx, sy, sz float64
	for i := range w {
		sx += w[i] * dirX[i]
		sy += w[i] * dirY[i]
		sz += w[i] * dirZ[i]
	}
	p.x.Update(sx)
	p.y.Update(sy)
	p.z.Update(sz)

	x, y, z := p.x.Value(), p.y.Value(), p.z.Value()
	p.r.Update(math.Hypot(x, y))
	p.l.Update(math.Hypot(p.r.Value(), z))
	p.theta.Update(math.Atan2(y, x))
	p.phi.Update(math.Atan2(z, p.r.Value()))

	return p.Reading()
}

// Reading returns the last committed values.
func (p *Physics) Reading() Reading {
	return Reading{
		TouchVector: TouchVector{X: p.x.Value(), Y: p.y.Value(), Z: p.z.Value()},
		PolarQuantities: PolarQuantities{
			R:     p.r.Value(),
			L:     p.l.Value(),
			Theta: p.theta.Value(),
			Phi:   p.phi.Value(),
		},
	}
}

// Delta returns the committed change of every quantity over the last Update.
// Theta and Phi are plain differences, not wrapped.
func (p *Physics) Delta() Reading {
	return Reading{
		TouchVector: TouchVector{X: p.x.Diff(), Y: p.y.Diff(), Z: p.z.Diff()},
		PolarQuantities: PolarQuantities{
			R:     p.r.Diff(),
			L:     p.l.Diff(),
			Theta: p.theta.Diff(),
			Phi:   p.phi.Diff(),
		},
	}
}

// Reset returns every signal to zero.
func (p *Physics) Reset() {
	for _, s := range []*Signal{p.x, p.y, p.z, p.r, p.l, p.theta, p.phi} {
		s.reset()
	}
}
