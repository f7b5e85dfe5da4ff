package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/adcbridge"
	"github.com/jpalmerr/adcbridge/config"
)

const (
	shutdownTimeout = 10 * time.Second
)

// newLogger creates a JSON logger for CLI use.
func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q (expected debug, info, warn or error)", level)
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: lvl,
	})), nil
}

// serveCmd starts the bridge.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the serial-to-websocket bridge",
	Long: `Start the adcbridge server.

The server will:
  - Load configuration from the YAML file, if given
  - Open the serial device and extract one sample per line
  - Send each sample to the most recently connected websocket client
  - Serve the live plotter on the configured port

A device that cannot be opened is logged and the server keeps running
without data, unless --require-device is set.

The server runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  adcbridge serve --device /dev/ttyACM0
  adcbridge serve -c /etc/adcbridge/config.yaml --log-level debug`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("config", "c", "", "path to config file")
	serveCmd.Flags().StringP("device", "d", "", "serial device path (overrides config)")
	serveCmd.Flags().IntP("baud", "b", 0, "baud rate (overrides config)")
	serveCmd.Flags().IntP("port", "p", 0, "HTTP port (overrides config)")
	serveCmd.Flags().Bool("advertise", false, "advertise the endpoint over mDNS (overrides config)")
	serveCmd.Flags().Bool("require-device", false, "exit if the serial device cannot be opened")
	serveCmd.Flags().String("log-level", "info", "log level: debug, info, warn, error")
}

// loadConfig reads the config file, or the defaults when path is empty, and
// applies command line overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configFile, _ := cmd.Flags().GetString("config")

	var (
		cfg *config.Config
		err error
	)
	if configFile != "" {
		cfg, err = config.Load(configFile)
	} else {
		cfg, err = config.Parse(nil)
	}
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("device") {
		cfg.Serial.Device, _ = cmd.Flags().GetString("device")
	}
	if cmd.Flags().Changed("baud") {
		cfg.Serial.BaudRate, _ = cmd.Flags().GetInt("baud")
	}
	if cmd.Flags().Changed("port") {
		cfg.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("advertise") {
		cfg.Discovery.Enabled, _ = cmd.Flags().GetBool("advertise")
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	level, _ := cmd.Flags().GetString("log-level")
	logger, err := newLogger(os.Stderr, level)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger.Info("config loaded",
		"device", cfg.Serial.Device,
		"baud_rate", cfg.Serial.BaudRate,
		"port", cfg.Port,
		"path", cfg.Path,
		"discovery", cfg.Discovery.Enabled,
	)

	opts, err := config.BuildOptions(cfg)
	if err != nil {
		return fmt.Errorf("failed to build options: %w", err)
	}
	requireDevice, _ := cmd.Flags().GetBool("require-device")
	opts = append(opts,
		adcbridge.WithLogger(logger),
		adcbridge.WithRequireSource(requireDevice),
	)

	bridge, err := adcbridge.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create bridge: %w", err)
	}

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// start bridge - blocks until context cancelled
	errChan := make(chan error, 1)
	go func() {
		errChan <- bridge.Start(ctx)
	}()

	// wait for bridge to finish
	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		// signal received, wait for graceful shutdown with timeout
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}
