package main

import (
	"errors"
	"fmt"
	"log/slog"

	"touchwheel"
)

// ============================================================================
// Sample sources
// ============================================================================
// A sample source binds the engine to hardware: every poll tick the daemon
// calls Read once and feeds the RawSample to Physics. Intensities must grow
// with touch strength; each source converts its native reading accordingly.
// ============================================================================

// errSourceNotReady is returned while a streaming source has not produced its
// first complete sample. The daemon skips the tick without counting an error.
var errSourceNotReady = errors.New("source has no sample yet")

type sampleSource interface {
	touchwheel.Source
	Close() error
}

// openSource opens the source named by cfg.Kind.
func openSource(cfg SourceConfig, logger *slog.Logger) (sampleSource, error) {
	channels, err := cfg.channelMap()
	if err != nil {
		return nil, err
	}

	switch cfg.Kind {
	case sourceMock:
		return newMockSource(defaultMockScript()), nil
	case sourceMPR121:
		return openMPR121Source(cfg.I2C, channels, logger)
	case sourceSerial:
		return openSerialSource(cfg.Serial, channels, logger)
	case sourceIIO:
		return openIIOSource(cfg.IIO, channels, logger)
	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Kind)
	}
}

// resolveCalibration picks the calibration for a session: the file's
// hardcoded range when present, else the mock's nominal range.
func resolveCalibration(cfg *Config) (touchwheel.Calibration, error) {
	if cal, ok := cfg.ToCalibration(); ok {
		return cal, nil
	}
	if cfg.Source.Kind == sourceMock {
		return mockCalibration(), nil
	}
	return touchwheel.Calibration{}, fmt.Errorf("%w: no calibration configured for source %q (run `touchwheeld calibrate` and set calibration.pad_max/pad_min)",
		touchwheel.ErrDegenerateCalibration, cfg.Source.Kind)
}
