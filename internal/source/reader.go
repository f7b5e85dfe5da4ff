package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/jpalmerr/adcbridge/internal/serial"
)

// State is the lifecycle state of a [Reader].
type State int32

const (
	// StateClosed means the transport has not been opened or was closed.
	StateClosed State = iota

	// StateListening means the transport is open and chunks are flowing.
	StateListening

	// StateFailed means the transport could not be opened or stopped
	// delivering data. No samples will flow until the process restarts.
	StateFailed
)

// String returns the lowercase name of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateListening:
		return "listening"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Transport is the serial collaborator consumed by a [Reader].
// *serial.Port satisfies it.
type Transport interface {
	// ReadLoop blocks, delivering chunks until the transport is closed or fails.
	ReadLoop(onChunk func([]byte), onError func(error))
	Close() error
}

// OpenFunc opens a [Transport].
type OpenFunc func(cfg serial.Config) (Transport, error)

// Extractor pulls a non-negative sample out of one trimmed chunk of text.
// It reports false when the chunk carries no sample.
type Extractor func(text string) (int64, bool)

// Sink receives every extracted sample. It must not block.
type Sink func(sample int64)

// Config contains everything a [Reader] needs.
type Config struct {
	// Serial is passed to Open unchanged.
	Serial serial.Config

	// Extract parses samples. Required.
	Extract Extractor

	// Open opens the transport. Nil uses the Linux serial driver.
	Open OpenFunc
}

// Stats is a point-in-time view of a [Reader].
type Stats struct {
	State     State
	Chunks    uint64
	Samples   uint64
	LastError string
}

// Reader consumes a serial transport and forwards samples to a [Sink].
//
// Open is called once. Chunk handling runs on the transport's read goroutine
// and is run to completion before the next chunk is read.
type Reader struct {
	cfg    Config
	sink   Sink
	logger *slog.Logger

	state   atomic.Int32
	chunks  atomic.Uint64
	samples atomic.Uint64
	closing atomic.Bool

	mu      sync.Mutex
	opened  bool
	lastErr string
	done    chan struct{}
}

// NewReader creates a [Reader]. The transport is not opened until
// [Reader.Open] is called.
func NewReader(cfg Config, sink Sink, logger *slog.Logger) *Reader {
	if cfg.Open == nil {
		cfg.Open = openSerial
	}
	return &Reader{
		cfg:    cfg,
		sink:   sink,
		logger: logger,
		done:   make(chan struct{}),
	}
}

func openSerial(cfg serial.Config) (Transport, error) {
	return serial.Open(cfg)
}

// Open establishes the transport and starts reading in a background goroutine.
//
// On failure the reader moves to [StateFailed], the error is logged and
// returned, and no retry is attempted. On success the reader is listening
// until ctx is cancelled, at which point the transport is closed.
//
// Open may only be called once.
func (r *Reader) Open(ctx context.Context) error {
	r.mu.Lock()
	if r.opened {
		r.mu.Unlock()
		return errors.New("source already opened")
	}
	r.opened = true
	r.mu.Unlock()

	device := r.cfg.Serial.Device
	transport, err := r.cfg.Open(r.cfg.Serial)
	if err != nil {
		r.state.Store(int32(StateFailed))
		r.setLastError(err)
		close(r.done)
		r.logger.Error("serial port open failed", "device", device, "error", err)
		return fmt.Errorf("open serial port %s: %w", device, err)
	}

	r.state.Store(int32(StateListening))
	r.logger.Info("serial port opened", "device", device, "baud_rate", r.cfg.Serial.BaudRate)

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		transport.ReadLoop(r.HandleChunk, r.handleError)
	}()

	go func() {
		defer close(r.done)
		select {
		case <-ctx.Done():
			r.closing.Store(true)
			if err := transport.Close(); err != nil {
				r.logger.Warn("serial port close failed", "device", device, "error", err)
			}
			<-loopDone
			r.state.Store(int32(StateClosed))
			r.logger.Info("serial port closed", "device", device)
		case <-loopDone:
			// transport gave up on its own; no reconnection
			r.state.Store(int32(StateFailed))
			r.logger.Error("serial port stopped delivering data", "device", device)
			<-ctx.Done()
			_ = transport.Close()
		}
	}()

	return nil
}

// Done returns a channel that is closed once the reader has fully stopped.
// If Open failed, it is closed immediately.
func (r *Reader) Done() <-chan struct{} {
	return r.done
}

// HandleChunk processes one inbound chunk.
//
// The chunk is decoded as text, trimmed, and matched with the extractor. A
// match is forwarded to the sink exactly once; anything else is discarded.
func (r *Reader) HandleChunk(raw []byte) {
	r.chunks.Add(1)

	text := strings.TrimSpace(string(raw))
	sample, ok := r.cfg.Extract(text)
	if !ok {
		r.logger.Debug("chunk discarded", "chunk", text)
		return
	}

	r.samples.Add(1)
	r.sink(sample)
}

// handleError reports a transport error. The reader keeps whatever state the
// transport leaves it in; there is no reconnection.
//
// A closed-port error raised after shutdown has begun is expected and dropped.
func (r *Reader) handleError(err error) {
	if r.closing.Load() && errors.Is(err, serial.ErrClosed) {
		return
	}
	r.setLastError(err)
	r.logger.Error("serial port error", "device", r.cfg.Serial.Device, "error", err)
}

func (r *Reader) setLastError(err error) {
	r.mu.Lock()
	r.lastErr = err.Error()
	r.mu.Unlock()
}

// Stats returns a snapshot of the reader's state and counters.
func (r *Reader) Stats() Stats {
	r.mu.Lock()
	lastErr := r.lastErr
	r.mu.Unlock()

	return Stats{
		State:     State(r.state.Load()),
		Chunks:    r.chunks.Load(),
		Samples:   r.samples.Load(),
		LastError: lastErr,
	}
}
