// Package ws implements the client side of the LANSend websocket
// protocol: a JSON envelope codec and a reconnecting connection manager.
package ws

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// State of a Conn. Closed is terminal.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateClosed
)

const (
	// DefaultRetryDelay is the pause between a drop and the next dial.
	DefaultRetryDelay = 2 * time.Second

	dialTimeout    = 10 * time.Second
	writeTimeout   = 10 * time.Second
	maxMessageSize = 512 * 1024
)

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("ws: connection closed")

// Event is the closed set of notifications a Conn emits. Events arrive
// on a single channel in the order the transport produced them.
type Event interface {
	isEvent()
}

// Opened is emitted once the transport is up and the queue has flushed.
type Opened struct{}

// Closed is emitted when the transport drops. A reconnect attempt
// follows automatically unless the Conn has been closed for good.
type Closed struct{}

// Received carries one decoded inbound envelope.
type Received struct {
	Envelope Envelope
}

func (Opened) isEvent()   {}
func (Closed) isEvent()   {}
func (Received) isEvent() {}

// Conn owns a single websocket connection to the server. It redials on
// drops after a fixed delay and queues outbound frames while the
// transport is down, flushing them FIFO on the next open.
type Conn struct {
	url        string
	retryDelay time.Duration

	mu    sync.Mutex
	state State
	gen   int // bumped on every new connection attempt; stale sockets check it
	sock  *websocket.Conn
	queue [][]byte

	events chan Event
	done   chan struct{}
}

// NewConn prepares a manager for the given ws:// URL. Nothing is dialed
// until Open.
func NewConn(url string, retryDelay time.Duration) *Conn {
	if retryDelay <= 0 {
		retryDelay = DefaultRetryDelay
	}
	return &Conn{
		url:        url,
		retryDelay: retryDelay,
		events:     make(chan Event, 64),
		done:       make(chan struct{}),
	}
}

// Events delivers Opened, Closed and Received notifications in arrival
// order. The channel is never closed; select on Done to stop consuming.
func (c *Conn) Events() <-chan Event {
	return c.events
}

// Done is closed when the Conn is closed for good.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// State returns the current connection state.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Open starts a connection attempt. It is a no-op while an attempt is
// already in flight or a connection is held, and after Close.
func (c *Conn) Open() {
	c.mu.Lock()
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return
	}
	c.state = StateConnecting
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	go c.dial(gen)
}

// Send transmits the envelope immediately when connected. Otherwise the
// encoded frame joins the outbound queue and goes out, in order, on the
// next successful open.
func (c *Conn) Send(msgType string, content any) error {
	data, err := Encode(msgType, content)
	if err != nil {
		return err
	}

	c.mu.Lock()
	switch c.state {
	case StateClosed:
		c.mu.Unlock()
		return ErrClosed
	case StateConnected:
		sock := c.sock
		c.mu.Unlock()
		return c.write(sock, data)
	default:
		c.queue = append(c.queue, data)
		c.mu.Unlock()
		return nil
	}
}

// Close tears the connection down for good. No reconnect follows and
// further Send calls fail with ErrClosed.
func (c *Conn) Close() {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	c.state = StateClosed
	c.gen++
	sock := c.sock
	c.sock = nil
	c.mu.Unlock()

	if sock != nil {
		_ = sock.Close(websocket.StatusNormalClosure, "client closing")
	}
	close(c.done)
}

func (c *Conn) dial(gen int) {
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	sock, _, err := websocket.Dial(ctx, c.url, nil)
	cancel()

	c.mu.Lock()
	if c.gen != gen || c.state == StateClosed {
		// A newer attempt or Close superseded this dial.
		c.mu.Unlock()
		if sock != nil {
			sock.CloseNow()
		}
		return
	}
	if err != nil {
		c.mu.Unlock()
		slog.Warn("ws dial failed", "url", c.url, "error", err)
		c.handleClose(gen)
		return
	}

	sock.SetReadLimit(maxMessageSize)
	c.state = StateConnected
	c.sock = sock
	pending := c.queue
	c.queue = nil
	c.mu.Unlock()

	for _, frame := range pending {
		if err := c.write(sock, frame); err != nil {
			slog.Warn("ws queue flush write failed", "error", err)
			break
		}
	}
	c.emit(Opened{})

	go c.readLoop(gen, sock)
}

func (c *Conn) readLoop(gen int, sock *websocket.Conn) {
	for {
		msgType, data, err := sock.Read(context.Background())
		if err != nil {
			c.handleClose(gen)
			return
		}
		if msgType != websocket.MessageText {
			continue
		}
		env := Decode(data)
		if env == nil {
			// Malformed frame: drop it, keep the connection.
			slog.Debug("ws dropping malformed frame", "size", len(data))
			continue
		}
		if c.stale(gen) {
			return
		}
		c.emit(Received{Envelope: *env})
	}
}

// handleClose runs for an unplanned drop. It ignores events from
// superseded sockets so a teardown racing a fresh dial cannot trigger a
// duplicate reconnect.
func (c *Conn) handleClose(gen int) {
	c.mu.Lock()
	if c.gen != gen || c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	c.state = StateDisconnected
	c.sock = nil
	c.mu.Unlock()

	c.emit(Closed{})

	time.AfterFunc(c.retryDelay, func() {
		c.mu.Lock()
		if c.gen != gen || c.state != StateDisconnected {
			c.mu.Unlock()
			return
		}
		c.state = StateConnecting
		c.gen++
		next := c.gen
		c.mu.Unlock()

		go c.dial(next)
	})
}

func (c *Conn) stale(gen int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen != gen
}

func (c *Conn) write(sock *websocket.Conn, data []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	return sock.Write(ctx, websocket.MessageText, data)
}

func (c *Conn) emit(ev Event) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}
