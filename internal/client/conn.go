// Package client connects a session to a game hub over a websocket.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Seednode/sketchbox/internal/protocol"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = time.Minute
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 64
)

var ErrClosed = errors.New("connection closed")

type Options struct {
	// Binary sends drawing events as compact binary frames and asks the hub
	// to do the same.
	Binary bool

	Header http.Header
	Dialer *websocket.Dialer
	Logger zerolog.Logger
}

// Conn is a websocket connection to one game. Send is safe for concurrent use;
// Receive must only be called from one goroutine.
type Conn struct {
	ws     *websocket.Conn
	binary bool
	log    zerolog.Logger

	send chan frame

	done      chan struct{}
	closeOnce sync.Once

	mu  sync.Mutex
	err error
}

// Dial opens a connection to a game websocket such as
// ws://host/sketch/AbCd1234/ws.
func Dial(ctx context.Context, rawURL string, opts Options) (*Conn, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", rawURL, err)
	}
	if opts.Binary {
		q := u.Query()
		q.Set("binary", "1")
		u.RawQuery = q.Encode()
	}

	dialer := opts.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	ws, _, err := dialer.DialContext(ctx, u.String(), opts.Header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u.Redacted(), err)
	}

	return newConn(ws, opts.Binary, opts.Logger), nil
}

func newConn(ws *websocket.Conn, binary bool, log zerolog.Logger) *Conn {
	c := &Conn{
		ws:     ws,
		binary: binary,
		log:    log,
		send:   make(chan frame, sendBuffer),
		done:   make(chan struct{}),
	}

	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	go c.writePump()

	return c
}

func (c *Conn) fail(err error) {
	c.mu.Lock()
	if c.err == nil {
		c.err = err
	}
	c.mu.Unlock()

	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Conn) failure() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.err == nil {
		return ErrClosed
	}
	return c.err
}

type frame struct {
	kind int
	data []byte
}

func (c *Conn) encode(env protocol.Envelope) (frame, error) {
	kind, b, err := protocol.EncodeMessage(env, c.binary)
	return frame{kind, b}, err
}

// Send queues env for writing.
func (c *Conn) Send(env protocol.Envelope) error {
	f, err := c.encode(env)
	if err != nil {
		return fmt.Errorf("encode %s: %w", env.Type, err)
	}

	select {
	case <-c.done:
		return c.failure()
	default:
	}

	select {
	case c.send <- f:
		return nil
	default:
		return fmt.Errorf("%w: send buffer full", ErrClosed)
	}
}

// Receive blocks for the next envelope. Binary frames are decoded into the
// same envelope form as text frames.
func (c *Conn) Receive(ctx context.Context) (protocol.Envelope, error) {
	type result struct {
		env protocol.Envelope
		err error
	}

	out := make(chan result, 1)
	go func() {
		env, err := c.read()
		out <- result{env, err}
	}()

	select {
	case r := <-out:
		if r.err != nil {
			c.fail(r.err)
		}
		return r.env, r.err
	case <-ctx.Done():
		c.Close()
		return protocol.Envelope{}, ctx.Err()
	}
}

// read returns the next well-formed envelope. Frames that fail to decode are
// logged and skipped; only transport errors are returned.
func (c *Conn) read() (protocol.Envelope, error) {
	for {
		kind, b, err := c.ws.ReadMessage()
		if err != nil {
			return protocol.Envelope{}, err
		}

		env, err := protocol.DecodeMessage(kind, b)
		if err != nil {
			c.log.Warn().Err(err).Int("bytes", len(b)).Msg("skipping frame")
			continue
		}

		return env, nil
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case f := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(f.kind, f.data); err != nil {
				c.fail(err)
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.fail(err)
				return
			}

		case <-c.done:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// Close shuts the connection down. Pending sends may be lost.
func (c *Conn) Close() error {
	c.fail(ErrClosed)
	return nil
}

// Err reports why the connection stopped, or nil while it is open.
func (c *Conn) Err() error {
	select {
	case <-c.done:
		return c.failure()
	default:
		return nil
	}
}
