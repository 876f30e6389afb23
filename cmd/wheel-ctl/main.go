package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// ============================================================================
// wheel-ctl - command-line client for touchwheeld
// ============================================================================
// Usage:
//   wheel-ctl status            print the daemon status
//   wheel-ctl reset             drop the current touch session, zero the dial
//   wheel-ctl listen            stream events from the websocket endpoint
//   wheel-ctl listen --mqtt     stream events from the MQTT topic
// ============================================================================

var (
	flagSocket string

	flagJSON bool

	flagWS         string
	flagMQTT       bool
	flagMQTTBroker string
	flagMQTTTopic  string
	flagReadings   bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "wheel-ctl",
		Short:        "wheel-ctl - control and watch the touchwheeld daemon",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&flagSocket, "socket", "/tmp/touchwheel.sock", "touchwheeld IPC socket path")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Print the daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := sendRequest(flagSocket, "status")
			if err != nil {
				return err
			}
			return printStatus(cmd.OutOrStdout(), data, flagJSON)
		},
	}
	statusCmd.Flags().BoolVar(&flagJSON, "json", false, "Print the raw JSON status")

	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "End the current touch session and zero the dial position",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := sendRequest(flagSocket, "reset"); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}

	listenCmd := &cobra.Command{
		Use:   "listen",
		Short: "Stream navigation events until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			p := &printer{out: cmd.OutOrStdout(), readings: flagReadings}
			if flagMQTT {
				return listenMQTT(ctx, flagMQTTBroker, flagMQTTTopic, p)
			}
			return listenWS(ctx, flagWS, p)
		},
	}
	listenCmd.Flags().StringVar(&flagWS, "ws", "ws://127.0.0.1:8088/events", "touchwheeld websocket URL")
	listenCmd.Flags().BoolVar(&flagMQTT, "mqtt", false, "Subscribe to the MQTT topic instead of the websocket")
	listenCmd.Flags().StringVar(&flagMQTTBroker, "mqtt-broker", "tcp://localhost:1883", "MQTT broker URL")
	listenCmd.Flags().StringVar(&flagMQTTTopic, "mqtt-topic", "touchwheel/events", "MQTT topic")
	listenCmd.Flags().BoolVar(&flagReadings, "readings", false, "Also print reading messages")

	rootCmd.AddCommand(statusCmd, resetCmd, listenCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
