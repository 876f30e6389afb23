package main

import (
	"math"

	"touchwheel"
)

// Nominal pad range of the synthetic wheel.
const (
	mockPadMin = 100.0
	mockPadMax = 1100.0

	// mockStrength is the finger weight relative to the calibrated range.
	// Above 1 so touches read past pad_max and clamp_weights has a visible
	// effect on the mock.
	mockStrength = 1.5
)

// ring direction of each channel, indexed by zone
var mockRingAngle = [4]float64{
	touchwheel.ZoneUp:    math.Pi / 2,
	touchwheel.ZoneDown:  -math.Pi / 2,
	touchwheel.ZoneLeft:  math.Pi,
	touchwheel.ZoneRight: 0,
}

// mockSource replays a scripted synthetic finger in a loop.
type mockSource struct {
	samples []touchwheel.RawSample
	next    int
}

func newMockSource(samples []touchwheel.RawSample) *mockSource {
	return &mockSource{samples: samples}
}

func (m *mockSource) Read() (touchwheel.RawSample, error) {
	if len(m.samples) == 0 {
		return touchwheel.RawSample{}, errSourceNotReady
	}
	raw := m.samples[m.next]
	m.next = (m.next + 1) % len(m.samples)
	return raw, nil
}

func (m *mockSource) Close() error { return nil }

// mockCalibration is the range the mock samples are generated against.
func mockCalibration() touchwheel.Calibration {
	var cal touchwheel.Calibration
	for i := range cal.Max {
		cal.Max[i] = mockPadMax
		cal.Min[i] = mockPadMin
	}
	return cal
}

// mockScript builds raw samples from normalized channel weights.
type mockScript struct {
	samples []touchwheel.RawSample
}

func (s *mockScript) add(w [5]float64) {
	var raw touchwheel.RawSample
	for i, v := range w {
		raw[i] = mockPadMin + (mockPadMax-mockPadMin)*v
	}
	s.samples = append(s.samples, raw)
}

func (s *mockScript) idle(n int) {
	for i := 0; i < n; i++ {
		s.add([5]float64{})
	}
}

// ring places the finger on the ring at theta.
func (s *mockScript) ring(theta float64, n int) {
	var w [5]float64
	for zone, a := range mockRingAngle {
		w[zone] = mockStrength * math.Max(0, math.Cos(theta-a))
	}
	for i := 0; i < n; i++ {
		s.add(w)
	}
}

// rotate sweeps the finger by turns full revolutions (positive is
// counter-clockwise), steps samples per revolution.
func (s *mockScript) rotate(theta0, turns float64, steps int) {
	total := int(math.Abs(turns) * float64(steps))
	dir := math.Copysign(1, turns)
	for k := 1; k <= total; k++ {
		s.ring(theta0+dir*2*math.Pi*float64(k)/float64(steps), 1)
	}
}

func (s *mockScript) center(n int) {
	var w [5]float64
	w[touchwheel.ZoneCenter] = mockStrength
	for i := 0; i < n; i++ {
		s.add(w)
	}
}

// defaultMockScript is a tap on "up", one counter-clockwise revolution
// starting at "right", and a 1.5 s hold on "center" (at 20 Hz).
func defaultMockScript() []touchwheel.RawSample {
	var s mockScript
	s.idle(10)
	s.ring(math.Pi/2, 6)
	s.idle(10)
	s.ring(0, 4)
	s.rotate(0, 1, 48)
	s.idle(10)
	s.center(30)
	s.idle(10)
	return s.samples
}
