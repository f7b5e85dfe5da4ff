// Package adcbridge bridges ADC readings printed on a serial line to a
// websocket client in real time.
//
// A microcontroller prints lines such as "AD Value: 512" over a USB serial
// adapter. The bridge reads the device, pulls the integer out of each line
// and sends its decimal text ("512") to the most recently connected
// websocket client, typically the bundled live plotter page.
//
// # Quick Start
//
//	bridge, _ := adcbridge.New(adcbridge.WithDevice("/dev/ttyACM0"))
//
//	// Set up graceful shutdown on SIGINT/SIGTERM
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	bridge.Start(ctx) // blocks until context is cancelled
//
// # Configuration
//
// The bridge uses the functional options pattern:
//
//	bridge, err := adcbridge.New(
//	    adcbridge.WithDevice("/dev/ttyUSB1"),
//	    adcbridge.WithBaudRate(57600),
//	    adcbridge.WithPort(9090),
//	    adcbridge.WithPath("/adc"),
//	    adcbridge.WithPattern(`ch0=(\d+)`),
//	    adcbridge.WithAdvertise(adcbridge.AdvertiseConfig{}),
//	)
//
// # Delivery
//
// There is exactly one subscriber slot. A new websocket connection takes the
// slot; the client it displaces is neither closed nor notified and simply
// stops receiving samples. Samples are delivered at most once, in order,
// and are dropped whenever no client is connected or the client is not
// keeping up. Nothing is buffered or replayed.
//
// # Architecture
//
// The bridge consists of several internal packages (under internal/):
//
//   - internal/serial: Raw termios serial port with killable read loop (Linux)
//   - internal/source: Chunk trimming, sample extraction and reader lifecycle
//   - internal/publisher: Single-subscriber websocket publisher owned by one event loop
//   - internal/server: HTTP server for the websocket, status API and plotter
//   - internal/discovery: mDNS advertisement of the websocket endpoint
//   - dashboard: Embedded plotter page
//
// The internal packages are not part of the public API and may change
// without notice.
package adcbridge
