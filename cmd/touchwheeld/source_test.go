package main

import (
	"errors"
	"io"
	"testing"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"

	"touchwheel"
)

func TestParseSampleLine(t *testing.T) {
	identity := [5]int{0, 1, 2, 3, 4}

	tests := []struct {
		name     string
		line     string
		channels [5]int
		want     touchwheel.RawSample
		wantErr  bool
	}{
		{name: "comma", line: "2160,1239,862,879,910", channels: identity, want: touchwheel.RawSample{2160, 1239, 862, 879, 910}},
		{name: "spaces and tabs", line: "1 2\t3  4 5", channels: identity, want: touchwheel.RawSample{1, 2, 3, 4, 5}},
		{name: "semicolon", line: "1.5;2.5;3.5;4.5;5.5", channels: identity, want: touchwheel.RawSample{1.5, 2.5, 3.5, 4.5, 5.5}},
		{name: "mapped", line: "0,10,20,30,40,50,60", channels: [5]int{6, 5, 4, 3, 0}, want: touchwheel.RawSample{60, 50, 40, 30, 0}},
		{name: "short", line: "1,2,3", channels: identity, wantErr: true},
		{name: "garbage", line: "1,2,x,4,5", channels: identity, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSampleLine(tt.line, tt.channels)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseSampleLine: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

// pipePort adapts an io.Pipe to io.ReadWriteCloser.
type pipePort struct {
	*io.PipeReader
}

func (pipePort) Write(p []byte) (int, error) { return len(p), nil }

func TestSerialSource_LatestSample(t *testing.T) {
	pr, pw := io.Pipe()
	src := newSerialSource(pipePort{pr}, [5]int{0, 1, 2, 3, 4}, discardLogger())

	if _, err := src.Read(); !errors.Is(err, errSourceNotReady) {
		t.Fatalf("Read before first line: err = %v, want errSourceNotReady", err)
	}

	// a partial line and a comment are skipped
	if _, err := io.WriteString(pw, "0,7\n# boot\n1,2,3,4,5\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	waitUntil(t, time.Second, func() bool {
		raw, err := src.Read()
		return err == nil && raw == touchwheel.RawSample{1, 2, 3, 4, 5}
	}, "first sample not seen")

	if _, err := io.WriteString(pw, "6,7,8,9,10\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	waitUntil(t, time.Second, func() bool {
		raw, _ := src.Read()
		return raw == touchwheel.RawSample{6, 7, 8, 9, 10}
	}, "latest sample not seen")

	// the port going away is a read error
	_ = pw.CloseWithError(errors.New("unplugged"))
	waitUntil(t, time.Second, func() bool {
		_, err := src.Read()
		return err != nil && !errors.Is(err, errSourceNotReady)
	}, "read error not reported")

	if err := src.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestDecodeMPR121(t *testing.T) {
	// ELE0..ELE5, little endian, 10 bit
	buf := []byte{
		0xFF, 0x03, // 1023 -> 0
		0x00, 0x00, // 0 -> 1023
		0x00, 0x02, // 512 -> 511
		0x10, 0x01, // 272 -> 751
		0xFF, 0xFF, // upper bits beyond 10 are ignored -> 0
		0x64, 0x00, // 100 -> 923
	}

	got := decodeMPR121(buf, [5]int{0, 1, 2, 3, 5})
	want := touchwheel.RawSample{0, 1023, 511, 751, 923}
	if got != want {
		t.Fatalf("decodeMPR121 = %v, want %v", got, want)
	}

	got = decodeMPR121(buf, [5]int{4, 3, 2, 1, 0})
	want = touchwheel.RawSample{0, 751, 511, 1023, 0}
	if got != want {
		t.Fatalf("decodeMPR121 remapped = %v, want %v", got, want)
	}
}

// fakeI2CBus emulates the MPR121 registers the source touches.
type fakeI2CBus struct {
	regs   [256]byte
	writes [][]byte
	closed bool
}

var _ i2c.BusCloser = (*fakeI2CBus)(nil)

func newFakeMPR121() *fakeI2CBus {
	b := &fakeI2CBus{}
	b.regs[mpr121RegCDT] = mpr121CDTDefault
	return b
}

func (b *fakeI2CBus) String() string                    { return "fake-i2c" }
func (b *fakeI2CBus) SetSpeed(f physic.Frequency) error { return nil }
func (b *fakeI2CBus) Close() error                      { b.closed = true; return nil }

func (b *fakeI2CBus) Tx(addr uint16, w, r []byte) error {
	if addr != defaultMPR121Addr {
		return errors.New("nack")
	}
	if len(w) == 0 {
		return errors.New("empty write")
	}
	reg := int(w[0])
	if len(w) > 1 {
		b.writes = append(b.writes, append([]byte(nil), w...))
		copy(b.regs[reg:], w[1:])
	}
	copy(r, b.regs[reg:])
	return nil
}

func TestMPR121Source_InitAndRead(t *testing.T) {
	bus := newFakeMPR121()
	s := &mpr121Source{
		bus:      bus,
		dev:      &i2c.Dev{Bus: bus, Addr: defaultMPR121Addr},
		channels: [5]int{0, 1, 2, 3, 4},
		buf:      make([]byte, 10),
	}
	if err := s.init(5); err != nil {
		t.Fatalf("init: %v", err)
	}

	// reset, stop, charge current, run with baseline tracking
	wantWrites := [][2]byte{
		{mpr121RegReset, mpr121ResetMagic},
		{mpr121RegECR, 0x00},
		{mpr121RegCDC, mpr121CDC16uA},
		{mpr121RegECR, mpr121ECRBaseline | 5},
	}
	if len(bus.writes) != len(wantWrites) {
		t.Fatalf("writes = %v", bus.writes)
	}
	for i, w := range wantWrites {
		if bus.writes[i][0] != w[0] || bus.writes[i][1] != w[1] {
			t.Fatalf("write %d = %v, want %v", i, bus.writes[i], w)
		}
	}

	// electrode 2 touched
	bus.regs[mpr121RegFiltered+4] = 0x2C
	bus.regs[mpr121RegFiltered+5] = 0x01
	raw, err := s.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if raw[touchwheel.ZoneLeft] != 1023-300 || raw[touchwheel.ZoneUp] != 1023 {
		t.Fatalf("raw = %v", raw)
	}

	if err := s.Close(); err != nil || !bus.closed {
		t.Fatalf("Close: %v closed=%v", err, bus.closed)
	}
}

func TestMPR121Source_ProbeFails(t *testing.T) {
	bus := &fakeI2CBus{} // CDT reads 0
	s := &mpr121Source{bus: bus, dev: &i2c.Dev{Bus: bus, Addr: defaultMPR121Addr}}
	if err := s.init(5); err == nil {
		t.Fatalf("expected probe error")
	}
}

func TestMockSource_ReadsPastPadMax(t *testing.T) {
	var s mockScript
	s.center(1)

	cfg := touchwheel.DefaultConfig()
	phys, err := touchwheel.NewPhysics(mockCalibration(), cfg)
	if err != nil {
		t.Fatalf("NewPhysics: %v", err)
	}
	if w := phys.Weights(s.samples[0]); w[touchwheel.ZoneCenter] <= 1 {
		t.Fatalf("center weight = %v, want above 1", w[touchwheel.ZoneCenter])
	}

	cfg.ClampWeights = true
	phys, err = touchwheel.NewPhysics(mockCalibration(), cfg)
	if err != nil {
		t.Fatalf("NewPhysics: %v", err)
	}
	if w := phys.Weights(s.samples[0]); w[touchwheel.ZoneCenter] != 1 {
		t.Fatalf("clamped center weight = %v, want 1", w[touchwheel.ZoneCenter])
	}
}

func TestMockSource_Cycles(t *testing.T) {
	samples := defaultMockScript()
	src := newMockSource(samples)
	for i := 0; i < len(samples); i++ {
		if _, err := src.Read(); err != nil {
			t.Fatalf("Read %d: %v", i, err)
		}
	}
	raw, _ := src.Read()
	if raw != samples[0] {
		t.Fatalf("mock did not wrap around")
	}

	if _, err := newMockSource(nil).Read(); !errors.Is(err, errSourceNotReady) {
		t.Fatalf("empty mock err = %v", err)
	}
}
