//go:build !linux

package serial

import (
	"errors"
	"fmt"
	"runtime"
)

// Port is unavailable on this platform.
type Port struct{}

// Open always fails on platforms other than Linux.
func Open(cfg Config) (*Port, error) {
	return nil, fmt.Errorf("serial ports on %s: %w", runtime.GOOS, errors.ErrUnsupported)
}

// ReadLoop reports [ErrClosed] immediately.
func (p *Port) ReadLoop(onChunk func([]byte), onError func(error)) {
	onError(ErrClosed)
}

// Close is a no-op.
func (p *Port) Close() error {
	return nil
}
