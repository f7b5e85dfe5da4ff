package adcbridge

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jpalmerr/adcbridge/internal/serial"
)

// bridgeConfig holds mutable state during Bridge construction.
type bridgeConfig struct {
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
}

// AdvertiseConfig controls mDNS advertisement of the websocket endpoint.
// See [WithAdvertise].
type AdvertiseConfig struct {
	// Instance is the DNS-SD instance name. Defaults to "adcbridge-<hostname>".
	Instance string

	// TTL overrides the record TTL when positive.
	TTL time.Duration

	// Interface restricts advertising to one network interface. Empty means all.
	Interface string
}

// Option is a function that configures a [Bridge] instance during construction.
//
// Option implements the functional options pattern, allowing optional
// configuration to be passed to [New] in a type-safe, extensible way.
// Options return an error if validation fails.
type Option func(*bridgeConfig) error

// WithDevice sets the serial device path, e.g. "/dev/ttyACM0".
// Defaults to "/dev/ttyUSB0".
//
// Returns an error if path is empty.
func WithDevice(path string) Option {
	return func(cfg *bridgeConfig) error {
		if path == "" {
			return errors.New("device path cannot be empty")
		}
		cfg.device = path
		return nil
	}
}

// WithBaudRate sets the serial line speed. Defaults to 115200.
//
// Returns an error unless the rate is one of 9600, 19200, 38400, 57600,
// 115200 or 230400.
func WithBaudRate(baud int) Option {
	return func(cfg *bridgeConfig) error {
		if !serial.SupportedBaudRate(baud) {
			return fmt.Errorf("unsupported baud rate %d (supported: %v)", baud, serial.BaudRates)
		}
		cfg.baudRate = baud
		return nil
	}
}

// WithDelimiter sets the byte sequence that ends one chunk of device output.
// Defaults to "\n"; surrounding whitespace such as a trailing "\r" is
// trimmed before extraction.
//
// An empty delimiter hands every raw read to the extractor as its own chunk,
// without reassembling lines that span reads.
func WithDelimiter(delim string) Option {
	return func(cfg *bridgeConfig) error {
		cfg.delimiter = delim
		return nil
	}
}

// WithPort sets the TCP port for the websocket and plotter server.
// Defaults to 8080. Port 0 picks a free port; use [Bridge.Addr] to find it.
//
// Returns an error if the port is outside 0-65535.
func WithPort(port int) Option {
	return func(cfg *bridgeConfig) error {
		if port < 0 || port > 65535 {
			return errors.New("port must be between 0 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithPath sets the URL path that accepts websocket upgrades. Defaults to "/ws".
//
// Returns an error if the path does not start with "/" or collides with the
// plotter page ("/") or the status API ("/api/status").
func WithPath(path string) Option {
	return func(cfg *bridgeConfig) error {
		if !strings.HasPrefix(path, "/") {
			return fmt.Errorf("path must start with /, got %q", path)
		}
		if path == "/" || path == statusPath {
			return fmt.Errorf("path %q is reserved", path)
		}
		cfg.path = path
		return nil
	}
}

// WithTitle sets the plotter page title. Defaults to "ADC Live Plotter".
func WithTitle(title string) Option {
	return func(cfg *bridgeConfig) error {
		cfg.title = title
		return nil
	}
}

// WithExtractor sets how samples are pulled out of device text.
// Defaults to [DefaultExtractor].
//
// Returns an error if the extractor is nil.
func WithExtractor(e Extractor) Option {
	return func(cfg *bridgeConfig) error {
		if e == nil {
			return errors.New("extractor cannot be nil")
		}
		cfg.extractor = e
		return nil
	}
}

// WithPattern is shorthand for [WithExtractor] with a [PatternExtractor].
//
// Returns an error if the pattern is invalid.
func WithPattern(pattern string) Option {
	return func(cfg *bridgeConfig) error {
		e, err := PatternExtractor(pattern)
		if err != nil {
			return err
		}
		cfg.extractor = e
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the Bridge instance.
// If not specified, [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *bridgeConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithSampleCallback registers a function to be called for every extracted
// sample, after it has been offered to the subscriber.
//
// Callbacks run synchronously on the serial read goroutine, in registration
// order, so they must be non-blocking. Panics are recovered and logged.
//
// Example:
//
//	bridge, err := adcbridge.New(
//	    adcbridge.WithSampleCallback(func(s adcbridge.Sample) {
//	        if s > 4000 {
//	            log.Printf("ADC near full scale: %d", s)
//	        }
//	    }),
//	)
//
// Nil callbacks are silently ignored.
func WithSampleCallback(cb func(Sample)) Option {
	return func(cfg *bridgeConfig) error {
		if cb == nil {
			return nil
		}
		cfg.sampleCallbacks = append(cfg.sampleCallbacks, cb)
		return nil
	}
}

// WithAdvertise enables mDNS advertisement of the websocket endpoint as
// "_adcbridge._tcp". Advertisement failures are logged, not fatal.
func WithAdvertise(ac AdvertiseConfig) Option {
	return func(cfg *bridgeConfig) error {
		if ac.TTL < 0 {
			return errors.New("advertise ttl cannot be negative")
		}
		cfg.advertise = &ac
		return nil
	}
}

// WithRequireSource makes [Bridge.Start] fail when the serial device cannot
// be opened. By default the failure is logged and the server keeps running
// without a data path.
func WithRequireSource(required bool) Option {
	return func(cfg *bridgeConfig) error {
		cfg.requireSource = required
		return nil
	}
}

// WithSendBuffer sets how many messages may queue for a slow subscriber
// before samples are dropped. Defaults to 16.
//
// Returns an error if n is not positive.
func WithSendBuffer(n int) Option {
	return func(cfg *bridgeConfig) error {
		if n <= 0 {
			return errors.New("send buffer must be positive")
		}
		cfg.sendBuffer = n
		return nil
	}
}
