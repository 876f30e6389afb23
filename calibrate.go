package touchwheel

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Source produces one raw sample per call. Implementations bind the engine to
// hardware; a disconnected peripheral may return stale data without error.
type Source interface {
	Read() (RawSample, error)
}

// Calibrator tracks per-channel extremes over a sampling window.
type Calibrator struct {
	cal     Calibration
	samples int
}

// NewCalibrator creates an empty calibrator.
func NewCalibrator() *Calibrator {
	c := &Calibrator{}
	for i := range c.cal.Max {
		c.cal.Max[i] = math.Inf(-1)
		c.cal.Min[i] = math.Inf(1)
	}
	return c
}

// Observe widens the tracked range to include raw.
func (c *Calibrator) Observe(raw RawSample) {
	for i, v := range raw {
		c.cal.Max[i] = math.Max(c.cal.Max[i], v)
		c.cal.Min[i] = math.Min(c.cal.Min[i], v)
	}
	c.samples++
}

// Samples returns the number of observed samples.
func (c *Calibrator) Samples() int { return c.samples }

// Range returns the observed calibration, or ErrDegenerateCalibration when a
// channel never moved (or nothing was observed).
func (c *Calibrator) Range() (Calibration, error) {
	if c.samples == 0 {
		return Calibration{}, fmt.Errorf("%w: no samples observed", ErrDegenerateCalibration)
	}
	if err := c.cal.Validate(); err != nil {
		return Calibration{}, err
	}
	return c.cal, nil
}

// Calibrate samples src every interval until window has elapsed on clock and
// returns the observed range. It blocks, and is meant to run once before the
// polling loop starts. Slide a finger around the ring and across the center
// while it runs so every channel sees its full range.
//
// Read errors abort calibration. A nil clock means SystemClock; non-positive
// window/interval fall back to the defaults.
func Calibrate(ctx context.Context, src Source, window, interval time.Duration, clock Clock) (Calibration, error) {
	if clock == nil {
		clock = SystemClock{}
	}
	if window <= 0 {
		window = DefaultCalibrationWindow
	}
	if interval <= 0 {
		interval = DefaultCalibrationInterval
	}

	c := NewCalibrator()
	start := clock.Now()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for clock.Now().Sub(start) < window {
		raw, err := src.Read()
		if err != nil {
			return Calibration{}, fmt.Errorf("calibration read: %w", err)
		}
		c.Observe(raw)

		select {
		case <-ctx.Done():
			return Calibration{}, ctx.Err()
		case <-ticker.C:
		}
	}

	return c.Range()
}
