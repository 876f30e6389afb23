//go:build linux

package main

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"touchwheel"
)

const iioDevicesDir = "/sys/bus/iio/devices"

// iioSource reads five ADC channels of a Linux IIO device. The channel files
// stay open; every Read re-reads them from offset 0, which makes sysfs
// produce a fresh conversion.
type iioSource struct {
	fds [5]int
	buf [32]byte
}

func openIIOSource(cfg IIOSourceConfig, channels [5]int, logger *slog.Logger) (*iioSource, error) {
	base, err := findIIODevice(iioDevicesDir, cfg.Device)
	if err != nil {
		return nil, err
	}

	format := cfg.ChannelFormat
	if format == "" {
		format = defaultIIOChannel
	}

	s := &iioSource{}
	for i := range s.fds {
		s.fds[i] = -1
	}
	for zone, ch := range channels {
		p := filepath.Join(base, fmt.Sprintf(format, ch))
		fd, err := unix.Open(p, unix.O_RDONLY|unix.O_CLOEXEC, 0)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("open %s: %w", p, err)
		}
		s.fds[zone] = fd
	}

	logger.Info("iio source opened", "device", base, "channels", channels)
	return s, nil
}

// findIIODevice resolves an absolute path or a device name under dir.
func findIIODevice(dir, device string) (string, error) {
	if filepath.IsAbs(device) {
		if _, err := os.Stat(device); err != nil {
			return "", fmt.Errorf("iio device: %w", err)
		}
		return device, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("list iio devices: %w", err)
	}
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "iio:device") {
			continue
		}
		dev := filepath.Join(dir, e.Name())
		b, err := os.ReadFile(filepath.Join(dev, "name"))
		if err != nil {
			continue
		}
		if strings.TrimSpace(string(b)) == device {
			return dev, nil
		}
	}
	return "", fmt.Errorf("iio device with name %q not found", device)
}

func (s *iioSource) Read() (touchwheel.RawSample, error) {
	var raw touchwheel.RawSample
	for zone, fd := range s.fds {
		n, err := unix.Pread(fd, s.buf[:], 0)
		if err != nil {
			return raw, fmt.Errorf("iio read %s: %w", touchwheel.Zone(zone), err)
		}
		v, err := strconv.ParseFloat(string(bytes.TrimSpace(s.buf[:n])), 64)
		if err != nil {
			return raw, fmt.Errorf("iio parse %s: %w", touchwheel.Zone(zone), err)
		}
		raw[zone] = v
	}
	return raw, nil
}

func (s *iioSource) Close() error {
	var firstErr error
	for i, fd := range s.fds {
		if fd < 0 {
			continue
		}
		if err := unix.Close(fd); err != nil && firstErr == nil {
			firstErr = err
		}
		s.fds[i] = -1
	}
	return firstErr
}
