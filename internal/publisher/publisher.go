package publisher

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

const (
	// DefaultSendBuffer is the per-connection queue length used when none is given.
	DefaultSendBuffer = 16

	// inboxSize bounds messages waiting for the event loop. Publish drops
	// samples when it is full rather than waiting.
	inboxSize = 256
)

// ErrStopped is returned by [Publisher.Snapshot] once the event loop has exited.
var ErrStopped = errors.New("publisher stopped")

// Snapshot is a point-in-time view of the subscriber slot and counters.
type Snapshot struct {
	// Subscriber is the id of the connection in the slot, or empty.
	Subscriber string

	// Connections counts every client that ever connected.
	Connections uint64

	// Published counts samples handed to a subscriber.
	Published uint64

	// Dropped counts samples that found no ready subscriber.
	Dropped uint64
}

type eventKind int

const (
	eventConnect eventKind = iota
	eventDisconnect
	eventError
	eventSample
	eventSnapshot
)

// event is one message for the event loop. Samples, connection lifecycle
// changes and snapshot queries share a single inbox so they are handled in
// the order they were sent.
type event struct {
	kind   eventKind
	sub    *subscriber // set for eventConnect
	id     uuid.UUID
	err    error
	sample int64         // set for eventSample
	reply  chan Snapshot // set for eventSnapshot
}

// Publisher exposes exactly one live publish target at a time.
//
// The subscriber slot is owned by a single event-loop goroutine started by
// [Publisher.Start]. Connects, disconnects, errors and samples are messages
// on one inbox into that loop, so the slot needs no lock and a sample is
// always judged against the slot as it was when the sample was published. The policy is last writer wins:
// a new connection replaces the slot without notifying or closing the one it
// displaced, and a late disconnect from a displaced connection is ignored
// because its id no longer matches.
type Publisher struct {
	logger     *slog.Logger
	sendBuffer int

	inbox chan event
	done  chan struct{}

	connections atomic.Uint64
	published   atomic.Uint64
	dropped     atomic.Uint64

	mu      sync.Mutex
	started bool
}

// New creates a [Publisher]. sendBuffer is the per-connection queue length;
// values below 1 use [DefaultSendBuffer].
//
// The event loop does not run until [Publisher.Start] is called.
func New(sendBuffer int, logger *slog.Logger) *Publisher {
	if sendBuffer < 1 {
		sendBuffer = DefaultSendBuffer
	}
	return &Publisher{
		logger:     logger,
		sendBuffer: sendBuffer,
		inbox:      make(chan event, inboxSize),
		done:       make(chan struct{}),
	}
}

// Start runs the event loop in a background goroutine until ctx is cancelled.
// Start is idempotent; calls after the first are no-ops.
func (p *Publisher) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	go p.run(ctx)
}

// Done returns a channel that is closed when the event loop has exited.
func (p *Publisher) Done() <-chan struct{} {
	return p.done
}

// Publish offers one sample to the current subscriber.
//
// Publish never blocks and never fails: when the loop is busy, the slot is
// empty, or the subscriber is not ready, the sample is dropped and logged at
// debug level.
func (p *Publisher) Publish(sample int64) {
	select {
	case p.inbox <- event{kind: eventSample, sample: sample}:
	default:
		p.dropped.Add(1)
		p.logger.Debug("publisher busy, sample dropped", "sample", sample)
	}
}

// Snapshot asks the event loop for the current slot state.
func (p *Publisher) Snapshot(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	select {
	case p.inbox <- event{kind: eventSnapshot, reply: reply}:
	case <-p.done:
		return Snapshot{}, ErrStopped
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}

	select {
	case s := <-reply:
		return s, nil
	case <-p.done:
		return Snapshot{}, ErrStopped
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// notify hands a lifecycle event to the loop. It gives up once the loop has
// exited so connection handlers never hang during shutdown.
func (p *Publisher) notify(ctx context.Context, ev event) bool {
	select {
	case p.inbox <- ev:
		return true
	case <-p.done:
		return false
	case <-ctx.Done():
		return false
	}
}

func (p *Publisher) run(ctx context.Context) {
	defer close(p.done)

	var current *subscriber
	for {
		select {
		case <-ctx.Done():
			return

		case ev := <-p.inbox:
			switch ev.kind {
			case eventSample:
				p.deliver(current, ev.sample)
			case eventSnapshot:
				ev.reply <- p.snapshot(current)
			default:
				current = p.apply(current, ev)
			}
		}
	}
}

func (p *Publisher) snapshot(current *subscriber) Snapshot {
	s := Snapshot{
		Connections: p.connections.Load(),
		Published:   p.published.Load(),
		Dropped:     p.dropped.Load(),
	}
	if current != nil {
		s.Subscriber = current.id.String()
	}
	return s
}

// apply performs one subscriber slot transition and returns the new holder.
func (p *Publisher) apply(current *subscriber, ev event) *subscriber {
	switch ev.kind {
	case eventConnect:
		p.connections.Add(1)
		if current != nil {
			p.logger.Warn("subscriber replaced",
				"previous", current.id.String(),
				"subscriber", ev.sub.id.String(),
			)
		}
		p.logger.Info("client connected", "subscriber", ev.sub.id.String(), "remote", ev.sub.remote)
		return ev.sub

	case eventDisconnect, eventError:
		if current == nil || current.id != ev.id {
			// displaced or already cleared connection; the slot is unchanged
			if ev.kind == eventError {
				p.logger.Warn("displaced client connection error", "connection", ev.id.String(), "error", ev.err)
			} else {
				p.logger.Debug("displaced client disconnected", "connection", ev.id.String())
			}
			return current
		}
		if ev.kind == eventError {
			p.logger.Error("client connection error", "subscriber", ev.id.String(), "error", ev.err)
		} else {
			p.logger.Info("client disconnected", "subscriber", ev.id.String())
		}
		return nil
	}
	return current
}

// deliver sends the sample's decimal text to current if it is ready.
func (p *Publisher) deliver(current *subscriber, sample int64) {
	if current == nil {
		p.dropped.Add(1)
		p.logger.Debug("no subscriber, sample dropped", "sample", sample)
		return
	}

	if !current.offer(strconv.AppendInt(nil, sample, 10)) {
		p.dropped.Add(1)
		p.logger.Debug("subscriber not ready, sample dropped",
			"sample", sample,
			"subscriber", current.id.String(),
		)
		return
	}
	p.published.Add(1)
}
