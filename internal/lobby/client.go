package lobby

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/Seednode/sketchbox/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = time.Minute
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 64 << 10
	sendBuffer     = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is one websocket connection to a hub.
type Client struct {
	id      string
	conn    *websocket.Conn
	send    chan protocol.Envelope
	binary  bool
	limiter *rate.Limiter
	log     zerolog.Logger
}

func newClient(conn *websocket.Conn, binary bool, cfg Config) *Client {
	id := uuid.NewString()

	return &Client{
		id:      id,
		conn:    conn,
		send:    make(chan protocol.Envelope, sendBuffer),
		binary:  binary,
		limiter: rate.NewLimiter(cfg.ChatRate, cfg.ChatBurst),
		log:     cfg.Logger.With().Str("player", id).Logger(),
	}
}

func (c *Client) ID() string {
	return c.id
}

// Serve upgrades the request and pumps the connection until either side
// closes it.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("upgrade: %w", err)
	}

	c := newClient(conn, r.URL.Query().Get("binary") == "1", h.cfg)

	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return ErrHubClosed
	}

	go c.writePump()
	c.readPump(h)

	return nil
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unreg <- c:
		case <-h.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, b, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug().Err(err).Msg("read failed")
			}
			return
		}

		env, err := protocol.DecodeMessage(kind, b)
		if err != nil {
			c.log.Warn().Err(err).Msg("skipping frame")
			continue
		}

		select {
		case h.inbound <- message{client: c, env: env}:
		case <-h.done:
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case env, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			kind, b, err := protocol.EncodeMessage(env, c.binary)
			if err != nil {
				c.log.Warn().Err(err).Str("type", env.Type).Msg("encode failed")
				continue
			}
			if err := c.conn.WriteMessage(kind, b); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
