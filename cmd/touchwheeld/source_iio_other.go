//go:build !linux

package main

import (
	"errors"
	"log/slog"
)

func openIIOSource(cfg IIOSourceConfig, channels [5]int, logger *slog.Logger) (sampleSource, error) {
	return nil, errors.New("iio source is only available on linux")
}
