package publisher

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// writeWait is the time allowed to write one message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong from the peer.
	// Missing it is a connection error.
	pongWait = 60 * time.Second

	// pingPeriod must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize bounds inbound frames. Clients have nothing to say.
	maxMessageSize = 512
)

// upgrader accepts any origin; the plotter page may be served from elsewhere.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// subscriber is one accepted client connection.
type subscriber struct {
	id     uuid.UUID
	remote string
	send   chan []byte

	// closed is closed by the writer when it exits; the connection is no
	// longer ready from then on. err is the write error that ended it, if any.
	closed chan struct{}
	err    error
}

func newSubscriber(remote string, sendBuffer int) *subscriber {
	return &subscriber{
		id:     uuid.New(),
		remote: remote,
		send:   make(chan []byte, sendBuffer),
		closed: make(chan struct{}),
	}
}

// offer queues msg without blocking. It reports false when the connection
// is closing or its queue is full.
func (s *subscriber) offer(msg []byte) bool {
	select {
	case <-s.closed:
		return false
	default:
	}

	select {
	case s.send <- msg:
		return true
	default:
		return false
	}
}

// ServeHTTP upgrades the request to a websocket and makes it the subscriber.
//
// The handler blocks until the peer goes away, then reports a disconnect
// (clean close) or an error (anything else) for this connection's id.
func (p *Publisher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error response
		p.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	ctx := r.Context()
	sub := newSubscriber(r.RemoteAddr, p.sendBuffer)
	if !p.notify(ctx, event{kind: eventConnect, sub: sub, id: sub.id}) {
		conn.Close()
		return
	}

	stop := make(chan struct{})
	go p.writePump(ctx, conn, sub, stop)

	readErr := p.readPump(conn)
	close(stop)
	<-sub.closed

	ev := event{kind: eventDisconnect, id: sub.id}
	switch {
	case sub.err != nil:
		ev.kind, ev.err = eventError, sub.err
	case !websocket.IsCloseError(readErr, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived):
		ev.kind, ev.err = eventError, readErr
	}
	p.notify(ctx, ev)
}

// readPump discards inbound frames and returns the error that ended the
// connection. Pongs extend the read deadline.
func (p *Publisher) readPump(conn *websocket.Conn) error {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.NextReader(); err != nil {
			return err
		}
	}
}

// writePump is the only writer for conn. It exits when the reader stops, a
// write fails, or ctx is cancelled, closing the connection on the way out.
func (p *Publisher) writePump(ctx context.Context, conn *websocket.Conn, sub *subscriber, stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
		close(sub.closed)
	}()

	for {
		select {
		case msg := <-sub.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				sub.err = err
				return
			}

		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				sub.err = err
				return
			}

		case <-stop:
			return

		case <-ctx.Done():
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			return
		}
	}
}
