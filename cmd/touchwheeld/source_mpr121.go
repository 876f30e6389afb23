package main

import (
	"fmt"
	"log/slog"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"touchwheel"
)

// MPR121 capacitive touch controller registers
const (
	mpr121RegFiltered = 0x04 // ELE0..ELE11 filtered data, 2 bytes LE each, 10 bit
	mpr121RegCDC      = 0x5C // global charge current
	mpr121RegCDT      = 0x5D // global charge time
	mpr121RegECR      = 0x5E // electrode configuration
	mpr121RegReset    = 0x80

	mpr121ResetMagic  = 0x63
	mpr121CDTDefault  = 0x24 // CDT value after reset; used to detect the chip
	mpr121CDC16uA     = 0x10
	mpr121ECRBaseline = 0x80 // baseline tracking loaded with 5 MSB of first sample

	mpr121MaxCount = 1023
)

// mpr121Source reads filtered electrode data over I2C.
type mpr121Source struct {
	bus      i2c.BusCloser
	dev      *i2c.Dev
	channels [5]int
	buf      []byte
}

func openMPR121Source(cfg I2CSourceConfig, channels [5]int, logger *slog.Logger) (*mpr121Source, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}

	bus, err := i2creg.Open(cfg.Bus)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", cfg.Bus, err)
	}

	electrodes := 0
	for _, ch := range channels {
		electrodes = max(electrodes, ch+1)
	}

	s := &mpr121Source{
		bus:      bus,
		dev:      &i2c.Dev{Bus: bus, Addr: cfg.Addr},
		channels: channels,
		buf:      make([]byte, 2*electrodes),
	}
	if err := s.init(electrodes); err != nil {
		_ = bus.Close()
		return nil, err
	}

	logger.Info("mpr121 ready", "bus", cfg.Bus, "addr", fmt.Sprintf("0x%02X", cfg.Addr), "electrodes", electrodes)
	return s, nil
}

func (s *mpr121Source) writeReg(reg, val byte) error {
	return s.dev.Tx([]byte{reg, val}, nil)
}

func (s *mpr121Source) init(electrodes int) error {
	if err := s.writeReg(mpr121RegReset, mpr121ResetMagic); err != nil {
		return fmt.Errorf("mpr121 soft reset: %w", err)
	}

	var cdt [1]byte
	if err := s.dev.Tx([]byte{mpr121RegCDT}, cdt[:]); err != nil {
		return fmt.Errorf("mpr121 probe: %w", err)
	}
	if cdt[0] != mpr121CDTDefault {
		return fmt.Errorf("mpr121 probe: unexpected CDT 0x%02X (no MPR121 at this address?)", cdt[0])
	}

	// Electrodes must be stopped while configuring.
	steps := []struct{ reg, val byte }{
		{mpr121RegECR, 0x00},
		{mpr121RegCDC, mpr121CDC16uA},
		{mpr121RegECR, mpr121ECRBaseline | byte(electrodes)},
	}
	for _, st := range steps {
		if err := s.writeReg(st.reg, st.val); err != nil {
			return fmt.Errorf("mpr121 write reg 0x%02X: %w", st.reg, err)
		}
	}
	return nil
}

// Read returns one sample of all mapped electrodes.
func (s *mpr121Source) Read() (touchwheel.RawSample, error) {
	if err := s.dev.Tx([]byte{mpr121RegFiltered}, s.buf); err != nil {
		return touchwheel.RawSample{}, fmt.Errorf("mpr121 read: %w", err)
	}
	return decodeMPR121(s.buf, s.channels), nil
}

func (s *mpr121Source) Close() error {
	return s.bus.Close()
}

// decodeMPR121 converts filtered electrode counts into touch intensities.
// The count drops as capacitance rises, so intensity is the inverted count.
func decodeMPR121(buf []byte, channels [5]int) touchwheel.RawSample {
	var raw touchwheel.RawSample
	for zone, ch := range channels {
		v := uint16(buf[2*ch]) | uint16(buf[2*ch+1]&0x03)<<8
		raw[zone] = float64(mpr121MaxCount - int(v))
	}
	return raw
}
