// Standalone mock ADC board for testing the CLI.
//
// Usage:
//
//	go run ./example/cmd/mockdevice
//
// Then in another terminal, with the printed path:
//
//	go run ./cmd/adcbridge serve --device /dev/pts/N
package main

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/creack/pty"
)

func main() {
	ptmx, tty, err := pty.Open()
	if err != nil {
		slog.Error("failed to open pty", "error", err)
		os.Exit(1)
	}
	defer ptmx.Close()
	defer tty.Close()

	fmt.Printf("Mock ADC board on %s\n", tty.Name())
	fmt.Println("Prints \"AD Value: <n>\" every 100ms")
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	go func() { _, _ = io.Copy(io.Discard, ptmx) }()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	start := time.Now()
	for {
		select {
		case <-sig:
			return
		case <-ticker.C:
		}

		phase := 2 * math.Pi * time.Since(start).Seconds() / 5
		v := 2048 + 1500*math.Sin(phase) + float64(rand.Intn(81)-40)
		if _, err := fmt.Fprintf(ptmx, "AD Value: %d\r\n", int(math.Max(0, math.Min(4095, v)))); err != nil {
			slog.Error("write failed", "error", err)
			os.Exit(1)
		}
	}
}
