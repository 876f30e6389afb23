package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"gopkg.in/yaml.v3"

	"touchwheel"
)

// runCalibrate measures the pad range over the configured window and writes
// pad_max / pad_min plus a config snippet to out.
func runCalibrate(ctx context.Context, cfg Config, out io.Writer, logger *slog.Logger) error {
	src, err := openSource(cfg.Source, logger)
	if err != nil {
		return err
	}
	defer src.Close()

	window := time.Duration(cfg.Calibration.WindowMS) * time.Millisecond
	interval := time.Duration(cfg.Calibration.IntervalMS) * time.Millisecond

	logger.Info("calibrating: slide a finger around the ring and across the center",
		"window", window, "interval", interval, "source", cfg.Source.Kind)

	cal, err := calibrateSource(ctx, src, window, interval)
	if err != nil {
		return err
	}

	logger.Info("calibration done", "pad_max", cal.Max, "pad_min", cal.Min)
	return writeCalibration(out, cal)
}

// calibrateSource retries through errSourceNotReady at startup of streaming
// sources before handing over to touchwheel.Calibrate.
func calibrateSource(ctx context.Context, src touchwheel.Source, window, interval time.Duration) (touchwheel.Calibration, error) {
	ready := readySource{src: src, ctx: ctx, interval: interval}
	return touchwheel.Calibrate(ctx, ready, window, interval, touchwheel.SystemClock{})
}

// readySource blocks Read until the wrapped source has a sample.
type readySource struct {
	src      touchwheel.Source
	ctx      context.Context
	interval time.Duration
}

func (r readySource) Read() (touchwheel.RawSample, error) {
	for {
		raw, err := r.src.Read()
		if !errors.Is(err, errSourceNotReady) {
			return raw, err
		}
		select {
		case <-r.ctx.Done():
			return raw, r.ctx.Err()
		case <-time.After(r.interval):
		}
	}
}

// calibrationSnippet is the YAML written for pasting into the config file.
type calibrationSnippet struct {
	Calibration struct {
		PadMax []float64 `yaml:"pad_max,flow"`
		PadMin []float64 `yaml:"pad_min,flow"`
	} `yaml:"calibration"`
}

func writeCalibration(out io.Writer, cal touchwheel.Calibration) error {
	fmt.Fprintf(out, "pad_max=%v\n", cal.Max)
	fmt.Fprintf(out, "pad_min=%v\n", cal.Min)
	fmt.Fprintln(out)

	var snip calibrationSnippet
	snip.Calibration.PadMax = cal.Max[:]
	snip.Calibration.PadMin = cal.Min[:]

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(snip); err != nil {
		return fmt.Errorf("encode calibration yaml: %w", err)
	}
	return enc.Close()
}
