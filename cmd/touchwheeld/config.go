package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"touchwheel"
)

// Config is the top-level YAML configuration for the touchwheeld daemon.
//
// Defaults and validation live here so the rest of the daemon can assume a
// well-formed config. The file is the primary configuration surface; flags
// only override individual values.
type Config struct {
	// Sample source (hardware binding)
	Source SourceConfig `yaml:"source"`

	// Per-pad calibration range
	Calibration CalibrationConfig `yaml:"calibration"`

	// Engine tuning
	Wheel WheelConfig `yaml:"wheel"`

	// IPC control socket
	IPC IPCConfig `yaml:"ipc"`

	// Event stream for UI clients
	WebSocket WebSocketConfig `yaml:"websocket"`

	// Event publishing to a broker
	MQTT MQTTConfig `yaml:"mqtt"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

type SourceConfig struct {
	Kind string `yaml:"kind"` // mock, mpr121, serial or iio

	// MaxReadErrors stops the daemon after this many consecutive failed reads.
	MaxReadErrors int `yaml:"max_read_errors"`

	// Channels maps zones (up, down, left, right, center) to hardware channel
	// numbers. Empty means 0..4.
	Channels []int `yaml:"channels,omitempty"`

	I2C    I2CSourceConfig    `yaml:"i2c"`
	Serial SerialSourceConfig `yaml:"serial"`
	IIO    IIOSourceConfig    `yaml:"iio"`
}

type I2CSourceConfig struct {
	Bus  string `yaml:"bus"`
	Addr uint16 `yaml:"addr"`
}

type SerialSourceConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

type IIOSourceConfig struct {
	// Device is an iio device name (from .../iio:deviceN/name) or an absolute
	// sysfs path.
	Device string `yaml:"device"`

	// ChannelFormat is the per-channel attribute, formatted with the channel number.
	ChannelFormat string `yaml:"channel_format"`
}

// CalibrationConfig holds the hardcoded pad range printed by `touchwheeld calibrate`.
type CalibrationConfig struct {
	PadMax []float64 `yaml:"pad_max,omitempty"`
	PadMin []float64 `yaml:"pad_min,omitempty"`

	WindowMS   int `yaml:"window_ms"`
	IntervalMS int `yaml:"interval_ms"`
}

type WheelConfig struct {
	PollHz         int     `yaml:"poll_hz"`
	DialResolution int     `yaml:"dial_resolution"`
	ThresholdUpper float64 `yaml:"threshold_upper"`
	ThresholdLower float64 `yaml:"threshold_lower"`
	ZoneWidthDeg   float64 `yaml:"zone_width_deg"`
	LongHoldMS     int     `yaml:"long_hold_ms"`
	FilterLevel    int     `yaml:"filter_level"`
	RelayThreshold float64 `yaml:"relay_threshold"`
	ClampWeights   bool    `yaml:"clamp_weights"`
}

type IPCConfig struct {
	SocketPath string `yaml:"socket_path"` // empty disables IPC
}

type WebSocketConfig struct {
	Listen string `yaml:"listen"` // e.g. ":8088"; empty disables the server
	Path   string `yaml:"path"`

	SendBuf int `yaml:"send_buf,omitempty"`

	// StreamReadings also broadcasts physics readings (rate limited).
	StreamReadings bool `yaml:"stream_readings"`
}

type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id,omitempty"` // empty: touchwheeld-<uuid>
	Topic    string `yaml:"topic"`
	QoS      int    `yaml:"qos"`
	Retain   bool   `yaml:"retain"`
	Outbox   int    `yaml:"outbox"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format,omitempty"` // text or json
}

// DefaultConfig returns a fully-populated Config with defaults.
func DefaultConfig() Config {
	return Config{
		Source: SourceConfig{
			Kind:          sourceMock,
			MaxReadErrors: defaultMaxReadErrors,
			I2C: I2CSourceConfig{
				Bus:  defaultI2CBus,
				Addr: defaultMPR121Addr,
			},
			Serial: SerialSourceConfig{
				Port: "/dev/ttyACM0",
				Baud: defaultSerialBaud,
			},
			IIO: IIOSourceConfig{
				ChannelFormat: defaultIIOChannel,
			},
		},
		Calibration: CalibrationConfig{
			WindowMS:   int(touchwheel.DefaultCalibrationWindow / time.Millisecond),
			IntervalMS: int(touchwheel.DefaultCalibrationInterval / time.Millisecond),
		},
		Wheel: WheelConfig{
			PollHz:         defaultPollHz,
			DialResolution: touchwheel.DefaultDialResolution,
			ThresholdUpper: touchwheel.DefaultThresholdUpper,
			ThresholdLower: touchwheel.DefaultThresholdLower,
			ZoneWidthDeg:   touchwheel.DefaultZoneWidthDeg,
			LongHoldMS:     int(touchwheel.DefaultLongHold / time.Millisecond),
			FilterLevel:    touchwheel.DefaultFilterLevel,
			RelayThreshold: touchwheel.DefaultRelayThreshold,
		},
		IPC: IPCConfig{
			SocketPath: defaultIPCSocketPath,
		},
		WebSocket: WebSocketConfig{
			Path: defaultWSPath,
		},
		MQTT: MQTTConfig{
			Broker: "tcp://localhost:1883",
			Topic:  defaultMQTTTopic,
			Outbox: defaultMQTTOutbox,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfigFile reads and parses a YAML config file on top of the defaults.
// Unknown fields are rejected (helps catch typos) via KnownFields(true).
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	// Only whitespace/comments are allowed after the document.
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return Config{}, errors.New("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// FlagOverrides carries values from CLI flags. Each non-nil pointer is applied,
// even when it holds a zero value.
type FlagOverrides struct {
	SourceKind *string
	I2CBus     *string
	SerialPort *string
	IIODevice  *string

	PollHz         *int
	DialResolution *int
	LongHoldMS     *int
	ClampWeights   *bool

	IPCSocketPath *string
	WSListen      *string

	MQTTEnabled *bool
	MQTTBroker  *string
	MQTTTopic   *string

	LogLevel  *string
	LogFormat *string
}

// Apply merges the overrides into cfg.
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}

	if o.SourceKind != nil {
		cfg.Source.Kind = *o.SourceKind
	}
	if o.I2CBus != nil {
		cfg.Source.I2C.Bus = *o.I2CBus
	}
	if o.SerialPort != nil {
		cfg.Source.Serial.Port = *o.SerialPort
	}
	if o.IIODevice != nil {
		cfg.Source.IIO.Device = *o.IIODevice
	}

	if o.PollHz != nil {
		cfg.Wheel.PollHz = *o.PollHz
	}
	if o.DialResolution != nil {
		cfg.Wheel.DialResolution = *o.DialResolution
	}
	if o.LongHoldMS != nil {
		cfg.Wheel.LongHoldMS = *o.LongHoldMS
	}
	if o.ClampWeights != nil {
		cfg.Wheel.ClampWeights = *o.ClampWeights
	}

	if o.IPCSocketPath != nil {
		cfg.IPC.SocketPath = *o.IPCSocketPath
	}
	if o.WSListen != nil {
		cfg.WebSocket.Listen = *o.WSListen
	}

	if o.MQTTEnabled != nil {
		cfg.MQTT.Enabled = *o.MQTTEnabled
	}
	if o.MQTTBroker != nil {
		cfg.MQTT.Broker = *o.MQTTBroker
	}
	if o.MQTTTopic != nil {
		cfg.MQTT.Topic = *o.MQTTTopic
	}

	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
	if o.LogFormat != nil {
		cfg.Logging.Format = *o.LogFormat
	}
}

// Validate checks config invariants and returns a user-friendly error.
// Call it after defaults, file and overrides are applied.
func (c *Config) Validate() error {
	// Source
	switch c.Source.Kind {
	case sourceMock, sourceMPR121, sourceSerial, sourceIIO:
	default:
		return fmt.Errorf("source.kind must be one of %q, %q, %q, %q", sourceMock, sourceMPR121, sourceSerial, sourceIIO)
	}
	if c.Source.MaxReadErrors <= 0 {
		return errors.New("source.max_read_errors must be > 0")
	}
	if _, err := c.Source.channelMap(); err != nil {
		return err
	}
	switch c.Source.Kind {
	case sourceSerial:
		if c.Source.Serial.Port == "" {
			return errors.New("source.serial.port must not be empty")
		}
		if c.Source.Serial.Baud <= 0 {
			return errors.New("source.serial.baud must be > 0")
		}
	case sourceMPR121:
		if c.Source.I2C.Addr == 0 || c.Source.I2C.Addr > 0x7F {
			return errors.New("source.i2c.addr must be a 7-bit address")
		}
	case sourceIIO:
		if c.Source.IIO.Device == "" {
			return errors.New("source.iio.device must not be empty")
		}
	}

	// Calibration
	if len(c.Calibration.PadMax) != len(c.Calibration.PadMin) {
		return errors.New("calibration.pad_max and calibration.pad_min must be set together")
	}
	if n := len(c.Calibration.PadMax); n != 0 && n != len(touchwheel.Zones()) {
		return fmt.Errorf("calibration.pad_max must have %d entries, got %d", len(touchwheel.Zones()), n)
	}
	if cal, ok := c.ToCalibration(); ok {
		if err := cal.Validate(); err != nil {
			return fmt.Errorf("calibration: %w", err)
		}
	}
	if c.Calibration.WindowMS <= 0 || c.Calibration.IntervalMS <= 0 {
		return errors.New("calibration.window_ms and calibration.interval_ms must be > 0")
	}

	// Wheel
	if c.Wheel.PollHz <= 0 || c.Wheel.PollHz > 1000 {
		return errors.New("wheel.poll_hz must be between 1 and 1000")
	}
	if err := c.ToWheelConfig().Validate(); err != nil {
		return fmt.Errorf("wheel: %w", err)
	}

	// WebSocket
	if c.WebSocket.Listen != "" && (c.WebSocket.Path == "" || c.WebSocket.Path[0] != '/') {
		return errors.New("websocket.path must start with '/'")
	}

	// MQTT
	if c.MQTT.Enabled {
		if c.MQTT.Broker == "" {
			return errors.New("mqtt.enabled is true but mqtt.broker is empty")
		}
		if c.MQTT.Topic == "" {
			return errors.New("mqtt.enabled is true but mqtt.topic is empty")
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			return errors.New("mqtt.qos must be 0, 1 or 2")
		}
		if c.MQTT.Outbox <= 0 {
			return errors.New("mqtt.outbox must be > 0")
		}
	}

	// Logging
	if _, err := parseLogLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if c.Logging.Format != "" && c.Logging.Format != "text" && c.Logging.Format != "json" {
		return errors.New("logging.format must be \"text\" or \"json\"")
	}

	return nil
}

// ToWheelConfig converts the file config into the engine config.
func (c *Config) ToWheelConfig() touchwheel.Config {
	return touchwheel.Config{
		DialResolution: c.Wheel.DialResolution,
		ThresholdUpper: c.Wheel.ThresholdUpper,
		ThresholdLower: c.Wheel.ThresholdLower,
		ZoneWidthDeg:   c.Wheel.ZoneWidthDeg,
		LongHold:       time.Duration(c.Wheel.LongHoldMS) * time.Millisecond,
		FilterLevel:    c.Wheel.FilterLevel,
		RelayThreshold: c.Wheel.RelayThreshold,
		ClampWeights:   c.Wheel.ClampWeights,
	}
}

// ToCalibration returns the hardcoded calibration, if the file has one.
func (c *Config) ToCalibration() (touchwheel.Calibration, bool) {
	var cal touchwheel.Calibration
	if len(c.Calibration.PadMax) != len(cal.Max) || len(c.Calibration.PadMin) != len(cal.Min) {
		return cal, false
	}
	copy(cal.Max[:], c.Calibration.PadMax)
	copy(cal.Min[:], c.Calibration.PadMin)
	return cal, true
}

// channelMap resolves source.channels into a per-zone channel number.
func (s SourceConfig) channelMap() ([5]int, error) {
	var m [5]int
	if len(s.Channels) == 0 {
		for i := range m {
			m[i] = i
		}
		return m, nil
	}
	if len(s.Channels) != len(m) {
		return m, fmt.Errorf("source.channels must have %d entries (up, down, left, right, center), got %d", len(m), len(s.Channels))
	}
	seen := make(map[int]bool, len(m))
	for i, ch := range s.Channels {
		if ch < 0 || ch > 11 {
			return m, fmt.Errorf("source.channels[%d]=%d out of range 0..11", i, ch)
		}
		if seen[ch] {
			return m, fmt.Errorf("source.channels[%d]=%d used twice", i, ch)
		}
		seen[ch] = true
		m[i] = ch
	}
	return m, nil
}

// ExpandPath expands a leading "~" in a path using $HOME.
func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	if p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
