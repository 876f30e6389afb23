package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"touchwheel"
)

const version = "1.0.0"

var (
	flagConfig    string
	flagLogLevel  string
	flagLogFormat string

	flagSource     string
	flagI2CBus     string
	flagSerialPort string
	flagIIODevice  string

	flagPollHz         int
	flagDialResolution int
	flagLongHoldMS     int
	flagClampWeights   bool

	flagIPCSocket  string
	flagWSListen   string
	flagMQTT       bool
	flagMQTTBroker string
	flagMQTTTopic  string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "touchwheeld",
		Short: "touchwheeld - capacitive touch wheel navigation daemon",
		Long: `touchwheeld polls a five-pad capacitive touch wheel (four ring pads and a
center pad), turns the readings into navigation events (press, release, long
hold and dial rotation) and publishes them to the log, websocket clients and
an MQTT broker.

Run "touchwheeld calibrate" once per device to measure the pad range, then
paste the printed calibration block into the config file.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "YAML config file (defaults are used when empty)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level: error, warn, info, debug")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format: text, json")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the poll loop and publish navigation events",
		RunE:  runRun,
	}
	addSourceFlags(runCmd)
	runCmd.Flags().IntVar(&flagPollHz, "poll-hz", defaultPollHz, "Poll loop frequency in Hz")
	runCmd.Flags().IntVar(&flagDialResolution, "dial-resolution", touchwheel.DefaultDialResolution, "Dial ticks per revolution")
	runCmd.Flags().IntVar(&flagLongHoldMS, "long-hold-ms", int(touchwheel.DefaultLongHold.Milliseconds()), "Hold duration for a long press in ms")
	runCmd.Flags().BoolVar(&flagClampWeights, "clamp-weights", false, "Clamp normalized pad weights into [0,1]")
	runCmd.Flags().StringVar(&flagIPCSocket, "ipc-socket", defaultIPCSocketPath, "Unix domain socket path for IPC (empty disables)")
	runCmd.Flags().StringVar(&flagWSListen, "ws-listen", "", "Websocket listen address, e.g. :8088 (empty disables)")
	runCmd.Flags().BoolVar(&flagMQTT, "mqtt", false, "Publish events to MQTT")
	runCmd.Flags().StringVar(&flagMQTTBroker, "mqtt-broker", "tcp://localhost:1883", "MQTT broker URL")
	runCmd.Flags().StringVar(&flagMQTTTopic, "mqtt-topic", defaultMQTTTopic, "MQTT topic for events")

	calibrateCmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Measure pad_max / pad_min while a finger sweeps the wheel",
		RunE:  runCalibrateCmd,
	}
	addSourceFlags(calibrateCmd)

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version and exit",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "touchwheeld v%s\n", version)
		},
	}

	rootCmd.AddCommand(runCmd, calibrateCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagSource, "source", sourceMock, "Sample source: mock, mpr121, serial, iio")
	cmd.Flags().StringVar(&flagI2CBus, "i2c-bus", defaultI2CBus, "I2C bus name for the mpr121 source")
	cmd.Flags().StringVar(&flagSerialPort, "serial-port", "/dev/ttyACM0", "Serial port for the serial source")
	cmd.Flags().StringVar(&flagIIODevice, "iio-device", "", "IIO device name or sysfs path for the iio source")
}

// flagOverrides collects the flags the user actually set on cmd.
func flagOverrides(cmd *cobra.Command) FlagOverrides {
	var o FlagOverrides
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}

	if changed("source") {
		o.SourceKind = &flagSource
	}
	if changed("i2c-bus") {
		o.I2CBus = &flagI2CBus
	}
	if changed("serial-port") {
		o.SerialPort = &flagSerialPort
	}
	if changed("iio-device") {
		o.IIODevice = &flagIIODevice
	}
	if changed("poll-hz") {
		o.PollHz = &flagPollHz
	}
	if changed("dial-resolution") {
		o.DialResolution = &flagDialResolution
	}
	if changed("long-hold-ms") {
		o.LongHoldMS = &flagLongHoldMS
	}
	if changed("clamp-weights") {
		o.ClampWeights = &flagClampWeights
	}
	if changed("ipc-socket") {
		o.IPCSocketPath = &flagIPCSocket
	}
	if changed("ws-listen") {
		o.WSListen = &flagWSListen
	}
	if changed("mqtt") {
		o.MQTTEnabled = &flagMQTT
	}
	if changed("mqtt-broker") {
		o.MQTTBroker = &flagMQTTBroker
	}
	if changed("mqtt-topic") {
		o.MQTTTopic = &flagMQTTTopic
	}
	if changed("log-level") {
		o.LogLevel = &flagLogLevel
	}
	if changed("log-format") {
		o.LogFormat = &flagLogFormat
	}
	return o
}

// loadConfig builds the effective config: defaults, then file, then flags.
func loadConfig(cmd *cobra.Command) (Config, *slog.Logger, error) {
	cfg := DefaultConfig()
	if flagConfig != "" {
		var err error
		if cfg, err = LoadConfigFile(flagConfig); err != nil {
			return Config{}, nil, err
		}
	}
	flagOverrides(cmd).Apply(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, nil, fmt.Errorf("invalid config: %w", err)
	}

	level, err := parseLogLevel(cfg.Logging.Level)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, setupLogger(os.Stdout, level, cfg.Logging.Format), nil
}

func runCalibrateCmd(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runCalibrate(ctx, cfg, cmd.OutOrStdout(), logger)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cal, err := resolveCalibration(&cfg)
	if err != nil {
		return err
	}
	wheelCfg := cfg.ToWheelConfig()
	phys, err := touchwheel.NewPhysics(cal, wheelCfg)
	if err != nil {
		return fmt.Errorf("physics: %w", err)
	}
	cls, err := touchwheel.NewClassifier(phys, wheelCfg)
	if err != nil {
		return fmt.Errorf("classifier: %w", err)
	}

	src, err := openSource(cfg.Source, logger)
	if err != nil {
		logger.Error("failed to open source", "kind", cfg.Source.Kind, "error", err)
		return err
	}
	defer src.Close()

	requests := make(chan Request, 16)
	pubs := []Publisher{logPublisher{logger: logger}}

	// Everything below stops with ctx; svc waits for it on the way out.
	svc := newServices(ctx, logger)
	defer svc.Stop()
	ctx = svc.Context()
	goRun := svc.Go

	if cfg.WebSocket.Listen != "" {
		srv := NewServer(logger, requests, ServerConfig{Hub: HubConfig{SendBuf: cfg.WebSocket.SendBuf}})
		bcast := make(chan WheelBroadcast, 128)
		pubs = append(pubs, chanPublisher{ch: bcast, logger: logger})

		mux := http.NewServeMux()
		srv.Register(mux, cfg.WebSocket.Path)

		goRun("ws hub", func() error { srv.Hub().Run(ctx); return nil })
		goRun("ws broadcaster", func() error { RunBroadcaster(ctx, srv.Hub(), bcast, logger); return nil })
		goRun("http server", func() error { return runHTTPServer(ctx, cfg.WebSocket.Listen, mux, logger) })
	}

	if cfg.IPC.SocketPath != "" {
		goRun("IPC server", func() error { return runIPCServer(ctx, cfg.IPC.SocketPath, requests, logger) })
	}

	if cfg.MQTT.Enabled {
		client, err := connectMQTT(cfg.MQTT, logger)
		if err != nil {
			return err
		}
		svc.OnStop(func() { client.Disconnect(mqttDisconnectQuiesceMS) })

		pub := newMQTTPublisher(client, cfg.MQTT, logger)
		pubs = append(pubs, pub)
		goRun("mqtt publisher", func() error { pub.Run(ctx); return nil })
	}

	logger.Info("touchwheeld starting",
		"version", version,
		"source", cfg.Source.Kind,
		"poll_hz", cfg.Wheel.PollHz,
		"dial_resolution", cfg.Wheel.DialResolution,
		"long_hold_ms", cfg.Wheel.LongHoldMS,
		"ipc", cfg.IPC.SocketPath,
		"ws", cfg.WebSocket.Listen,
		"mqtt", cfg.MQTT.Enabled)

	loop := newWheelLoop(src, phys, cls, pubs, wheelLoopConfig{
		SourceKind:     cfg.Source.Kind,
		MaxReadErrors:  cfg.Source.MaxReadErrors,
		StreamReadings: cfg.WebSocket.StreamReadings,
	}, logger)

	err = runDaemon(ctx, loop, requests, cfg.Wheel.PollHz, logger)
	if err != nil {
		logger.Error("daemon stopped", "error", err)
	}
	return err
}
