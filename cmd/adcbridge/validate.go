package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/adcbridge"
	"github.com/jpalmerr/adcbridge/config"
)

// validateCmd validates a config file without starting the server.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate an adcbridge configuration file without opening the device.

This command parses the YAML, expands environment variables, and validates
all fields. It's useful for CI/CD pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  adcbridge validate -c config.yaml
  adcbridge validate --config /etc/adcbridge/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	pattern := cfg.Pattern
	if pattern == "" {
		pattern = adcbridge.DefaultPattern
	}
	discovery := "disabled"
	if cfg.Discovery.Enabled {
		discovery = "enabled"
	}

	fmt.Printf("Config is valid!\n")
	fmt.Printf("  Device:    %s @ %d baud\n", cfg.Serial.Device, cfg.Serial.BaudRate)
	fmt.Printf("  Delimiter: %s\n", strconv.Quote(cfg.Serial.DelimiterValue()))
	fmt.Printf("  Pattern:   %s\n", pattern)
	fmt.Printf("  Websocket: ws://:%d%s\n", cfg.Port, cfg.Path)
	fmt.Printf("  mDNS:      %s\n", discovery)

	return nil
}
