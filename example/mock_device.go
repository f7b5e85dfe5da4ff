package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/creack/pty"
)

// StartMockDevice creates a pseudo-terminal that behaves like the ADC demo
// board and returns the path to open as the serial device.
//
// Every interval it prints "AD Value: <n>" with a 12-bit reading that follows
// a slow sine wave plus noise. Now and then it prints a line in another format
// to show that non-matching output is ignored. The device stops when ctx is
// cancelled.
func StartMockDevice(ctx context.Context, interval time.Duration) (string, error) {
	ptmx, tty, err := pty.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open pty: %w", err)
	}

	// drain anything the line discipline echoes back before the bridge puts
	// the port in raw mode
	go func() { _, _ = io.Copy(io.Discard, ptmx) }()

	go func() {
		defer ptmx.Close()
		defer tty.Close()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		start := time.Now()
		for n := 0; ; n++ {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			line := fmt.Sprintf("AD Value: %d\r\n", reading(time.Since(start)))
			if n%50 == 49 {
				line = "adc: channel 0 ok\r\n"
			}
			if _, err := io.WriteString(ptmx, line); err != nil {
				slog.Error("mock device write failed", "error", err)
				return
			}
		}
	}()

	return tty.Name(), nil
}

// reading returns a 12-bit sample on a 5s sine with a little noise.
func reading(elapsed time.Duration) int {
	phase := 2 * math.Pi * elapsed.Seconds() / 5
	v := 2048 + 1500*math.Sin(phase) + float64(rand.Intn(81)-40)
	return int(math.Max(0, math.Min(4095, v)))
}
