package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/jacobsa/go-serial/serial"

	"touchwheel"
)

// serialSource reads a microcontroller that streams one line per sample,
// e.g. "2160,1239,862,879,910". The reader goroutine keeps only the latest
// sample; Read never blocks the poll loop.
type serialSource struct {
	port     io.ReadWriteCloser
	channels [5]int
	logger   *slog.Logger

	mu     sync.Mutex
	latest touchwheel.RawSample
	have   bool
	err    error

	done chan struct{}
}

func openSerialSource(cfg SerialSourceConfig, channels [5]int, logger *slog.Logger) (*serialSource, error) {
	opts := serial.OpenOptions{
		PortName:              cfg.Port,
		BaudRate:              uint(cfg.Baud),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}

	port, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", cfg.Port, err)
	}
	logger.Info("serial source opened", "port", cfg.Port, "baud", cfg.Baud)

	return newSerialSource(port, channels, logger), nil
}

func newSerialSource(port io.ReadWriteCloser, channels [5]int, logger *slog.Logger) *serialSource {
	s := &serialSource{
		port:     port,
		channels: channels,
		logger:   logger,
		done:     make(chan struct{}),
	}
	go s.readLoop()
	return s
}

func (s *serialSource) readLoop() {
	defer close(s.done)

	reader := bufio.NewReader(s.port)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			s.mu.Lock()
			s.err = fmt.Errorf("serial read: %w", err)
			s.mu.Unlock()
			return
		}

		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		raw, err := parseSampleLine(line, s.channels)
		if err != nil {
			// partial lines are common right after the port opens
			s.logger.Debug("serial line dropped", "line", line, "error", err)
			continue
		}

		s.mu.Lock()
		s.latest = raw
		s.have = true
		s.mu.Unlock()
	}
}

// Read returns the most recent complete sample.
func (s *serialSource) Read() (touchwheel.RawSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return touchwheel.RawSample{}, s.err
	}
	if !s.have {
		return touchwheel.RawSample{}, errSourceNotReady
	}
	return s.latest, nil
}

func (s *serialSource) Close() error {
	err := s.port.Close()
	<-s.done
	return err
}

// parseSampleLine parses comma or whitespace separated intensities and picks
// the mapped channels.
func parseSampleLine(line string, channels [5]int) (touchwheel.RawSample, error) {
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t'
	})

	var raw touchwheel.RawSample
	for zone, ch := range channels {
		if ch >= len(fields) {
			return raw, fmt.Errorf("channel %d missing (got %d fields)", ch, len(fields))
		}
		v, err := strconv.ParseFloat(fields[ch], 64)
		if err != nil {
			return raw, fmt.Errorf("channel %d: %w", ch, err)
		}
		raw[zone] = v
	}
	return raw, nil
}
