package serial

import (
	"bytes"
	"errors"
)

const (
	// DefaultBaudRate is used when Config.BaudRate is zero.
	DefaultBaudRate = 115200

	// readBufferSize is the size of a single read from the device.
	readBufferSize = 4096

	// maxPending bounds the unterminated data held between reads. A device
	// that never sends the delimiter gets its data flushed as one chunk
	// instead of growing the buffer without limit.
	maxPending = 64 * 1024
)

// ErrClosed is returned by operations on a closed [Port].
var ErrClosed = errors.New("serial port closed")

// Config holds configuration parameters for opening a serial port.
type Config struct {
	// Device is the tty path, e.g. "/dev/ttyUSB0".
	Device string

	// BaudRate is the line speed. Must be one of [BaudRates].
	BaudRate int

	// Delimiter splits the stream into chunks. The delimiter itself is not
	// part of the delivered chunk. Empty means no framing.
	Delimiter string
}

// BaudRates lists the line speeds [Open] accepts, in ascending order.
var BaudRates = []int{9600, 19200, 38400, 57600, 115200, 230400}

// SupportedBaudRate reports whether baud is one of [BaudRates].
func SupportedBaudRate(baud int) bool {
	for _, b := range BaudRates {
		if b == baud {
			return true
		}
	}
	return false
}

// splitter accumulates raw reads and cuts them into delimiter-framed chunks.
type splitter struct {
	delim   []byte
	pending []byte
}

// feed appends data and calls emit for every complete chunk. Each emitted
// slice is a fresh copy owned by the callee.
func (s *splitter) feed(data []byte, emit func([]byte)) {
	if len(s.delim) == 0 {
		emit(append([]byte(nil), data...))
		return
	}

	s.pending = append(s.pending, data...)
	for {
		idx := bytes.Index(s.pending, s.delim)
		if idx < 0 {
			break
		}
		emit(append([]byte(nil), s.pending[:idx]...))
		s.pending = s.pending[idx+len(s.delim):]
	}

	if len(s.pending) > maxPending {
		emit(append([]byte(nil), s.pending...))
		s.pending = s.pending[:0]
	}
}
