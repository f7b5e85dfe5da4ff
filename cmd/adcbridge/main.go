// Package main is the entry point for the adcbridge CLI.
//
// adcbridge can be run either as a library (SDK) or as a standalone binary
// with YAML configuration. This CLI provides the standalone binary approach.
//
// Usage:
//
//	adcbridge serve                        # Bridge /dev/ttyUSB0 to ws://:8080/ws
//	adcbridge serve -c adcbridge.yaml      # Start with a config file
//	adcbridge validate -c adcbridge.yaml   # Validate configuration
//	adcbridge version                      # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "adcbridge",
	Short: "Stream ADC readings from a serial port to a websocket",
	Long: `adcbridge reads "AD Value: <n>" lines from a serial device and sends
each value to the most recently connected websocket client.

Quick start:
  1. Plug in the board (it shows up as /dev/ttyUSB0 or /dev/ttyACM0)
  2. Run: adcbridge serve --device /dev/ttyUSB0
  3. Open http://localhost:8080 in your browser

Example config:
  port: 8080
  serial:
    device: /dev/ttyUSB0
    baud_rate: 115200
  discovery:
    enabled: true`,
	// No Run/RunE means this just shows help when called without subcommands
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this adcbridge binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("adcbridge %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
