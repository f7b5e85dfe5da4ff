//go:build linux

package serial

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"golang.org/x/sys/unix"
)

var unixBaud = map[int]uint32{
	9600:   unix.B9600,
	19200:  unix.B19200,
	38400:  unix.B38400,
	57600:  unix.B57600,
	115200: unix.B115200,
	230400: unix.B230400,
}

// Port provides killable, chunk-oriented access to a Linux serial port.
//
// Only one [Port.ReadLoop] may run at a time. [Port.Close] is safe to call
// from any goroutine except from inside the ReadLoop callbacks.
type Port struct {
	fd     int
	config Config
	pipeR  int // self-pipe read fd
	pipeW  int // self-pipe write fd

	done      chan struct{}
	closeOnce sync.Once

	mu         sync.Mutex
	running    bool
	loopExited chan struct{}
}

// Open opens a serial port using the provided Config.
// The port is configured for raw 8N1 operation with VMIN=1, VTIME=0.
func Open(cfg Config) (*Port, error) {
	if cfg.Device == "" {
		return nil, errors.New("device is required")
	}
	if cfg.BaudRate == 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	baud, ok := unixBaud[cfg.BaudRate]
	if !ok {
		return nil, fmt.Errorf("unsupported baud rate %d", cfg.BaudRate)
	}

	fd, err := unix.Open(cfg.Device, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Device, err)
	}

	if err := makeRaw(fd, baud); err != nil {
		unix.Close(fd)
		return nil, err
	}

	// blocking again now that configuration is done; reads only happen after poll
	if err := unix.SetNonblock(fd, false); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("set blocking: %w", err)
	}

	var pipeFds [2]int
	if err := unix.Pipe2(pipeFds[:], unix.O_CLOEXEC); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("pipe: %w", err)
	}

	return &Port{
		fd:         fd,
		config:     cfg,
		pipeR:      pipeFds[0],
		pipeW:      pipeFds[1],
		done:       make(chan struct{}),
		loopExited: make(chan struct{}),
	}, nil
}

func makeRaw(fd int, baud uint32) error {
	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return fmt.Errorf("get termios: %w", err)
	}

	termios.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	termios.Oflag &^= unix.OPOST
	termios.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	termios.Cflag &^= unix.CSIZE | unix.PARENB
	termios.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL

	termios.Cflag &^= unix.CBAUD
	termios.Cflag |= baud

	termios.Cc[unix.VMIN] = 1
	termios.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
		return fmt.Errorf("set termios: %w", err)
	}
	return nil
}

// ReadLoop reads from the port until it is closed or a read fails.
//
// onChunk receives each delimiter-framed chunk (or each raw read when the
// delimiter is empty). onError receives the error that ended the loop; it is
// not called when the loop ends because of [Port.Close].
func (p *Port) ReadLoop(onChunk func([]byte), onError func(error)) {
	p.mu.Lock()
	select {
	case <-p.done:
		p.mu.Unlock()
		onError(ErrClosed)
		return
	default:
	}
	if p.running {
		p.mu.Unlock()
		onError(errors.New("read loop already running"))
		return
	}
	p.running = true
	p.mu.Unlock()
	defer close(p.loopExited)

	buf := make([]byte, readBufferSize)
	split := splitter{delim: []byte(p.config.Delimiter)}
	pfd := []unix.PollFd{
		{Fd: int32(p.fd), Events: unix.POLLIN},
		{Fd: int32(p.pipeR), Events: unix.POLLIN},
	}

	for {
		pfd[0].Revents, pfd[1].Revents = 0, 0
		if _, err := unix.Poll(pfd, -1); err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			onError(fmt.Errorf("poll: %w", err))
			return
		}

		select {
		case <-p.done:
			return
		default:
		}
		if pfd[1].Revents&unix.POLLIN != 0 {
			return
		}
		if pfd[0].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) == 0 {
			continue
		}

		n, err := unix.Read(p.fd, buf)
		if err != nil {
			if errors.Is(err, unix.EINTR) || errors.Is(err, unix.EAGAIN) {
				continue
			}
			onError(fmt.Errorf("read %s: %w", p.config.Device, err))
			return
		}
		if n == 0 {
			onError(fmt.Errorf("read %s: %w", p.config.Device, io.EOF))
			return
		}
		split.feed(buf[:n], onChunk)
	}
}

// Close closes the serial port and unblocks a running ReadLoop.
// Safe to call multiple times; subsequent calls are no-ops.
func (p *Port) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.done)
		// wake up poll
		_, _ = unix.Write(p.pipeW, []byte{1})

		p.mu.Lock()
		running := p.running
		p.mu.Unlock()
		if running {
			<-p.loopExited
		}

		err = unix.Close(p.fd)
		unix.Close(p.pipeR)
		unix.Close(p.pipeW)
	})
	return err
}
