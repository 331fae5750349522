// Package ws is the WebSocket transport for the realtime core. Each upgraded
// connection becomes a Client with one read goroutine (decoding inbound
// envelopes in order and handing them to the realtime.Router) and one write
// goroutine (draining a bounded outbound buffer and sending keepalive pings).
package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-messaging-backend/internal/realtime"
)

// Options tunes per-connection behaviour.
type Options struct {
	WriteWait       time.Duration
	PongWait        time.Duration
	PingPeriod      time.Duration
	MaxMessageBytes int64
	SendBuffer      int
}

// DefaultOptions returns the standard keepalive and buffer settings.
func DefaultOptions() Options {
	return Options{
		WriteWait:       10 * time.Second,
		PongWait:        60 * time.Second,
		PingPeriod:      54 * time.Second,
		MaxMessageBytes: 8 << 10,
		SendBuffer:      256,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.WriteWait <= 0 {
		o.WriteWait = d.WriteWait
	}
	if o.PongWait <= 0 {
		o.PongWait = d.PongWait
	}
	if o.PingPeriod <= 0 || o.PingPeriod >= o.PongWait {
		o.PingPeriod = o.PongWait * 9 / 10
	}
	if o.MaxMessageBytes <= 0 {
		o.MaxMessageBytes = d.MaxMessageBytes
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = d.SendBuffer
	}
	return o
}

// Client adapts one WebSocket connection to realtime.Conn.
type Client struct {
	id   uint64
	conn *websocket.Conn
	opts Options
	log  zerolog.Logger

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	// slow is set when Close was triggered by a full buffer.
	slow bool
}

var _ realtime.Conn = (*Client)(nil)

func newClient(conn *websocket.Conn, opts Options, log zerolog.Logger) *Client {
	opts = opts.withDefaults()
	id := realtime.NextConnID()
	return &Client{
		id:   id,
		conn: conn,
		opts: opts,
		log:  log.With().Uint64("conn_id", id).Logger(),
		send: make(chan []byte, opts.SendBuffer),
		done: make(chan struct{}),
	}
}

// ID implements realtime.Conn.
func (c *Client) ID() uint64 { return c.id }

// Send implements realtime.Conn. It never blocks: when the buffer is full
// the event is dropped and the connection is closed so the client
// reconnects and resynchronises.
func (c *Client) Send(ev realtime.Event) bool {
	b, err := json.Marshal(ev)
	if err != nil {
		c.log.Error().Err(err).Str("event", ev.Name).Msg("encode outbound event")
		return false
	}
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- b:
		return true
	default:
		c.log.Warn().Str("event", ev.Name).Int("buffer", cap(c.send)).Msg("send buffer full; closing slow connection")
		c.closeSlow()
		return false
	}
}

// Close implements realtime.Conn. It is safe to call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

func (c *Client) closeSlow() {
	c.closeOnce.Do(func() {
		c.slow = true
		close(c.done)
	})
}

// run serves the connection until either side closes it. The router sees
// every inbound event in order and exactly one disconnect.
func (c *Client) run(ctx context.Context, router *realtime.Router) {
	router.Attach(c)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.writePump()
	}()

	c.readPump(ctx, router)
	_ = c.Close()
	wg.Wait()

	router.HandleDisconnect(context.WithoutCancel(ctx), c, "")
}

func (c *Client) readPump(ctx context.Context, router *realtime.Router) {
	c.conn.SetReadLimit(c.opts.MaxMessageBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug().Err(err).Msg("websocket read error")
			}
			return
		}

		var env realtime.Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Event == "" {
			c.Send(realtime.ErrorEvent(realtime.CodeBadPayload, "frame must be {\"event\",\"data\"}"))
			continue
		}
		_ = router.Dispatch(ctx, c, env)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				_ = c.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = c.Close()
				return
			}
		case <-c.done:
			code, text := websocket.CloseNormalClosure, ""
			if c.slow {
				code, text = websocket.CloseTryAgainLater, "slow consumer"
			}
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(code, text),
				time.Now().Add(c.opts.WriteWait))
			return
		}
	}
}
