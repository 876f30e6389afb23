package touchwheel

import (
	"errors"
	"time"
)

// Defaults for the navigation engine.
const (
	DefaultDialResolution = 8
	DefaultThresholdUpper = 0.8
	DefaultThresholdLower = 0.6
	DefaultZoneWidthDeg   = 45.0
	DefaultLongHold       = time.Second
	DefaultFilterLevel    = 1 // keep <= 2, higher levels lag visibly
	DefaultRelayThreshold = 0.5

	DefaultCalibrationWindow   = 5 * time.Second
	DefaultCalibrationInterval = 100 * time.Millisecond
)

// Config holds the tunables of Physics and Classifier.
type Config struct {
	// DialResolution is the number of dial ticks per full revolution.
	DialResolution int

	// ThresholdUpper activates a touch; ThresholdLower keeps it active once
	// registered.
	ThresholdUpper float64
	ThresholdLower float64

	// ZoneWidthDeg is the angular half-width of each zone.
	ZoneWidthDeg float64

	// LongHold is the sustained contact time that produces a Long event.
	LongHold time.Duration

	// FilterLevel sets axis smoothing alpha = 1/2^level. Negative disables it.
	FilterLevel int

	// RelayThreshold is the axis hysteresis deadband. Zero disables it.
	RelayThreshold float64

	// ClampWeights clamps normalized channel weights into [0,1].
	ClampWeights bool

	// Clock drives the hold timer. Nil means SystemClock.
	Clock Clock
}

// DefaultConfig returns the stock tuning of the wheel.
func DefaultConfig() Config {
	return Config{
		DialResolution: DefaultDialResolution,
		ThresholdUpper: DefaultThresholdUpper,
		ThresholdLower: DefaultThresholdLower,
		ZoneWidthDeg:   DefaultZoneWidthDeg,
		LongHold:       DefaultLongHold,
		FilterLevel:    DefaultFilterLevel,
		RelayThreshold: DefaultRelayThreshold,
	}
}

// Validate checks config invariants.
func (c Config) Validate() error {
	if c.DialResolution < 1 {
		return errors.New("dial resolution must be >= 1")
	}
	if c.ThresholdLower <= 0 || c.ThresholdUpper <= 0 {
		return errors.New("touch thresholds must be > 0")
	}
	if c.ThresholdLower > c.ThresholdUpper {
		return errors.New("lower touch threshold must be <= upper threshold")
	}
	if c.ZoneWidthDeg <= 0 || c.ZoneWidthDeg > 180 {
		return errors.New("zone width must be in (0, 180] degrees")
	}
	if c.LongHold <= 0 {
		return errors.New("long hold duration must be > 0")
	}
	if c.FilterLevel > 16 {
		return errors.New("filter level must be <= 16")
	}
	if c.RelayThreshold < 0 {
		return errors.New("relay threshold must be >= 0")
	}
	return nil
}
