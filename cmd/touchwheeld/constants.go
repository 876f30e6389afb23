package main

// Source kinds
const (
	sourceMock   = "mock"
	sourceMPR121 = "mpr121"
	sourceSerial = "serial"
	sourceIIO    = "iio"
)

// Daemon defaults
const (
	defaultPollHz         = 20 // classifier poll rate (Hz)
	defaultMaxReadErrors  = 50 // consecutive failed reads before the daemon gives up
	defaultIPCSocketPath  = "/tmp/touchwheel.sock"
	defaultWSPath         = "/events"
	defaultMQTTTopic      = "touchwheel/events"
	defaultMQTTOutbox     = 64
	defaultMQTTClientBase = "touchwheeld"

	// Hardware defaults
	defaultI2CBus     = "1"
	defaultMPR121Addr = 0x5A
	defaultSerialBaud = 115200
	defaultIIOChannel = "in_voltage%d_raw"
)

// mqttDisconnectQuiesceMS is how long Disconnect waits for in-flight work.
const mqttDisconnectQuiesceMS = 250
