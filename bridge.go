package adcbridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/jpalmerr/adcbridge/dashboard"
	"github.com/jpalmerr/adcbridge/internal/discovery"
	"github.com/jpalmerr/adcbridge/internal/publisher"
	"github.com/jpalmerr/adcbridge/internal/serial"
	"github.com/jpalmerr/adcbridge/internal/server"
	"github.com/jpalmerr/adcbridge/internal/source"
)

const (
	defaultDevice    = "/dev/ttyUSB0"
	defaultBaudRate  = 115200
	defaultDelimiter = "\n"
	defaultPort      = 8080
	defaultPath      = "/ws"

	// statusPath is served by the HTTP server and cannot be used as the
	// websocket path.
	statusPath = "/api/status"
)

// Bridge reads samples from a serial device and republishes them to the
// most recently connected websocket client.
//
// Bridge is created using [New] with functional options and started with
// [Bridge.Start]. The typical lifecycle is:
//
//	bridge, err := adcbridge.New(adcbridge.WithDevice("/dev/ttyACM0"))
//	if err != nil {
//	    slog.Error("failed to create bridge", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	bridge.Start(ctx) // blocks until context cancelled
type Bridge struct {
	device          string
	baudRate        int
	delimiter       string
	port            int
	path            string
	title           string
	extractor       Extractor
	logger          *slog.Logger
	sampleCallbacks []func(Sample)
	advertise       *AdvertiseConfig
	requireSource   bool
	sendBuffer      int

	// open is nil in production (the Linux serial driver is used)
	open source.OpenFunc

	mu      sync.Mutex
	started bool
	addr    net.Addr
	ready   chan struct{}
}

// New creates a new [Bridge] instance with the given options.
//
// All options have defaults:
//   - Device: /dev/ttyUSB0
//   - Baud rate: 115200
//   - Delimiter: "\n"
//   - Port: 8080
//   - Websocket path: /ws
//   - Extractor: [DefaultExtractor] ("AD Value: <digits>")
//
// Returns an error if any option is invalid.
func New(opts ...Option) (*Bridge, error) {
	cfg := &bridgeConfig{
		device:     defaultDevice,
		baudRate:   defaultBaudRate,
		delimiter:  defaultDelimiter,
		port:       defaultPort,
		path:       defaultPath,
		extractor:  DefaultExtractor,
		sendBuffer: publisher.DefaultSendBuffer,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	// default to slog.Default() if no logger provided
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Bridge{
		device:          cfg.device,
		baudRate:        cfg.baudRate,
		delimiter:       cfg.delimiter,
		port:            cfg.port,
		path:            cfg.path,
		title:           cfg.title,
		extractor:       cfg.extractor,
		logger:          logger,
		sampleCallbacks: cfg.sampleCallbacks,
		advertise:       cfg.advertise,
		requireSource:   cfg.requireSource,
		sendBuffer:      cfg.sendBuffer,
		ready:           make(chan struct{}),
	}, nil
}

// Start opens the serial device and serves the websocket endpoint.
//
// Start is a blocking call that runs until the provided context is cancelled.
// During execution:
//
//   - The HTTP server listens on the configured port (websocket, plotter page, status API)
//   - The serial device is opened once; each chunk is matched and every sample
//     is published to the current subscriber, if any
//   - The endpoint is advertised over mDNS when [WithAdvertise] was given
//
// A serial open failure is logged and leaves the server running without a data
// path, unless [WithRequireSource] is set. There is no reconnection.
//
// Returns nil on graceful shutdown. Returns an error if the HTTP server fails
// to start, if the serial device is required and cannot be opened, or if
// Start was already called.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return errors.New("bridge already started")
	}
	b.started = true
	b.mu.Unlock()

	b.logger.Info("adcbridge starting",
		"device", b.device,
		"baud_rate", b.baudRate,
		"port", b.port,
		"path", b.path,
	)

	// check if context already cancelled
	if ctx.Err() != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pub := publisher.New(b.sendBuffer, b.logger)
	pub.Start(ctx)

	reader := source.NewReader(source.Config{
		Serial: serial.Config{
			Device:    b.device,
			BaudRate:  b.baudRate,
			Delimiter: b.delimiter,
		},
		Extract: b.extract,
		Open:    b.open,
	}, b.sink(pub), b.logger)

	status := &bridgeStatus{device: b.device, baudRate: b.baudRate, reader: reader, pub: pub}
	httpServer := server.NewServer(status, pub, b.path, b.port, dashboard.Assets, b.title, b.logger)
	if err := httpServer.Start(ctx); err != nil {
		cancel()
		<-pub.Done()
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	// open failures are already logged by the reader
	if err := reader.Open(ctx); err != nil && b.requireSource {
		cancel()
		<-pub.Done()
		<-httpServer.Done()
		return fmt.Errorf("failed to open serial port: %w", err)
	}

	addr := httpServer.Addr()
	if b.advertise != nil {
		if adv := b.startAdvertiser(addr); adv != nil {
			defer adv.Shutdown()
		}
	}

	b.mu.Lock()
	b.addr = addr
	b.mu.Unlock()
	close(b.ready)

	<-ctx.Done()
	<-reader.Done()
	<-pub.Done()
	<-httpServer.Done()
	b.logger.Info("adcbridge stopped")
	return nil
}

// extract adapts the public Extractor to the reader's int64 form.
func (b *Bridge) extract(text string) (int64, bool) {
	s, ok := b.extractor(text)
	return int64(s), ok
}

// sink publishes each sample and then runs the sample callbacks.
func (b *Bridge) sink(pub *publisher.Publisher) source.Sink {
	return func(v int64) {
		pub.Publish(v)
		for _, cb := range b.sampleCallbacks {
			invokeCallbackSafe(cb, Sample(v), b.logger)
		}
	}
}

// startAdvertiser registers the mDNS service. Failures are logged and nil is
// returned; advertisement is a convenience, not part of the data path.
func (b *Bridge) startAdvertiser(addr net.Addr) *discovery.Advertiser {
	port := b.port
	if tcp, ok := addr.(*net.TCPAddr); ok {
		port = tcp.Port
	}

	adv, err := discovery.NewAdvertiser(discovery.Config{
		Instance:  b.advertise.Instance,
		Port:      port,
		Path:      b.path,
		Device:    b.device,
		TTL:       b.advertise.TTL,
		Interface: b.advertise.Interface,
	})
	if err != nil {
		b.logger.Warn("mdns advertisement disabled", "error", err)
		return nil
	}
	if err := adv.Advertise(); err != nil {
		b.logger.Warn("mdns advertisement failed", "error", err)
		return nil
	}

	b.logger.Info("mdns advertisement started",
		"instance", adv.Instance(),
		"service", discovery.ServiceType,
		"port", port,
	)
	return adv
}

// Ready returns a channel that is closed once [Bridge.Start] is serving.
// It is never closed if Start fails.
func (b *Bridge) Ready() <-chan struct{} {
	return b.ready
}

// Addr returns the address the server listens on, or nil before [Bridge.Ready].
func (b *Bridge) Addr() net.Addr {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addr
}

// Device returns the configured serial device path.
func (b *Bridge) Device() string {
	return b.device
}

// BaudRate returns the configured serial line speed.
func (b *Bridge) BaudRate() int {
	return b.baudRate
}

// Port returns the configured TCP port.
func (b *Bridge) Port() int {
	return b.port
}

// Path returns the configured websocket path.
func (b *Bridge) Path() string {
	return b.path
}

// bridgeStatus assembles the /api/status document from the reader and the
// publisher.
type bridgeStatus struct {
	device   string
	baudRate int
	reader   *source.Reader
	pub      *publisher.Publisher
}

func (s *bridgeStatus) Status(ctx context.Context) (server.Status, error) {
	snap, err := s.pub.Snapshot(ctx)
	if err != nil {
		return server.Status{}, err
	}
	stats := s.reader.Stats()

	var lastErr *string
	if stats.LastError != "" {
		e := stats.LastError
		lastErr = &e
	}

	return server.Status{
		Source: server.SourceStatus{
			Device:    s.device,
			BaudRate:  s.baudRate,
			State:     stats.State.String(),
			Chunks:    stats.Chunks,
			Samples:   stats.Samples,
			LastError: lastErr,
		},
		Subscriber: server.SubscriberStatus{
			Connected:   snap.Subscriber != "",
			ID:          snap.Subscriber,
			Connections: snap.Connections,
			Published:   snap.Published,
			Dropped:     snap.Dropped,
		},
	}, nil
}

// invokeCallbackSafe calls a sample callback with panic recovery.
// Panics are logged but do not propagate.
func invokeCallbackSafe(cb func(Sample), sample Sample, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("sample callback panicked",
				"panic", r,
				"sample", int64(sample),
			)
		}
	}()
	cb(sample)
}
