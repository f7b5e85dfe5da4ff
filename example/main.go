package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/adcbridge"
)

func main() {
	// set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// start mock board (see mock_device.go), same 100ms period as the firmware
	device, err := StartMockDevice(ctx, 100*time.Millisecond)
	if err != nil {
		slog.Error("failed to start mock device", "error", err)
		os.Exit(1)
	}

	bridge, err := adcbridge.New(
		adcbridge.WithDevice(device),
		adcbridge.WithPort(8080),
		adcbridge.WithTitle("ADC Demo"),
		adcbridge.WithRequireSource(true),
		adcbridge.WithSampleCallback(func(s adcbridge.Sample) {
			if s > 3500 {
				slog.Info("reading near full scale", "sample", int64(s))
			}
		}),
	)
	if err != nil {
		slog.Error("failed to create bridge", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════════════════╗")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   adcbridge Demo                                      ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Open http://localhost:8080 in your browser          ║")
	fmt.Println("  ║   Raw stream: ws://localhost:8080/ws                  ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Press Ctrl+C to stop                                ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ╚═══════════════════════════════════════════════════════╝")
	fmt.Printf("\n  Mock device: %s\n\n", device)

	if err := bridge.Start(ctx); err != nil {
		slog.Error("adcbridge error", "error", err)
		os.Exit(1)
	}
}
