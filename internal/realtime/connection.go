package realtime

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

var (
	// ErrConnClosed is returned by Send after Close.
	ErrConnClosed = errors.New("connection closed")
	// ErrSlowConsumer is returned by Send when the outbound buffer is full.
	// The connection is closed as a side effect.
	ErrSlowConsumer = errors.New("connection send buffer full")
)

// Close codes used by the server. 4xxx codes are application-defined.
const (
	CloseSlowConsumer = 4008
	CloseShutdown     = websocket.CloseGoingAway
)

// Options tunes a Connection. Zero values fall back to the defaults below.
type Options struct {
	SendBuffer      int
	MaxMessageBytes int64
	PingPeriod      time.Duration
	PongWait        time.Duration
	WriteWait       time.Duration
	// EventRPS limits inbound events per second; 0 disables the limit.
	EventRPS   float64
	EventBurst int
}

func (o Options) withDefaults() Options {
	if o.SendBuffer <= 0 {
		o.SendBuffer = 256
	}
	if o.MaxMessageBytes <= 0 {
		o.MaxMessageBytes = 64 << 10
	}
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	if o.PingPeriod <= 0 || o.PingPeriod >= o.PongWait {
		o.PingPeriod = (o.PongWait * 9) / 10
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 10 * time.Second
	}
	if o.EventBurst < 1 {
		o.EventBurst = 1
	}
	return o
}

// Connection wraps a websocket and serializes outbound writes through a
// bounded channel drained by WriteLoop. Send and Close are safe for
// concurrent use.
type Connection struct {
	id     string
	userID string

	ws      *websocket.Conn
	opts    Options
	send    chan Outbound
	done    chan struct{}
	once    sync.Once
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewConnection wraps ws for userID. Call WriteLoop in its own goroutine and
// ReadLoop on the serving goroutine.
func NewConnection(userID string, ws *websocket.Conn, opts Options) *Connection {
	opts = opts.withDefaults()
	id := uuid.NewString()
	c := &Connection{
		id:     id,
		userID: userID,
		ws:     ws,
		opts:   opts,
		send:   make(chan Outbound, opts.SendBuffer),
		done:   make(chan struct{}),
		log: log.With().
			Str("component", "ws").
			Str("user_id", userID).
			Str("conn_id", id).
			Logger(),
	}
	if opts.EventRPS > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.EventRPS), opts.EventBurst)
	}
	return c
}

// ID returns the server-assigned connection id.
func (c *Connection) ID() string { return c.id }

// UserID returns the identity admitted by the handshake.
func (c *Connection) UserID() string { return c.userID }

// Done is closed once the connection is closed.
func (c *Connection) Done() <-chan struct{} { return c.done }

// Send enqueues ev for delivery. If the client is slow and the buffer is
// full, the connection is closed to keep backpressure bounded.
func (c *Connection) Send(ev Outbound) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}
	select {
	case c.send <- ev:
		return nil
	default:
		c.Close(CloseSlowConsumer, "send buffer full")
		return ErrSlowConsumer
	}
}

// Close sends a close frame with code and reason, then tears the socket
// down. Only the first call has an effect.
func (c *Connection) Close(code int, reason string) {
	c.once.Do(func() {
		close(c.done)
		deadline := time.Now().Add(c.opts.WriteWait)
		_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
		_ = c.ws.Close()
	})
}

// WriteLoop drains the send buffer onto the socket and pings the peer every
// PingPeriod. It returns when the connection closes or a write fails.
func (c *Connection) WriteLoop() {
	ticker := time.NewTicker(c.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Close(websocket.CloseNormalClosure, "")
	}()

	for {
		select {
		case <-c.done:
			return
		case ev := <-c.send:
			payload, err := Encode(ev)
			if err != nil {
				c.log.Error().Err(err).Str("event", ev.EventType()).Msg("encode event")
				continue
			}
			if err := c.write(websocket.TextMessage, payload); err != nil {
				c.log.Debug().Err(err).Msg("write failed")
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.log.Debug().Err(err).Msg("ping failed")
				return
			}
		}
	}
}

func (c *Connection) write(kind int, payload []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(kind, payload)
}

// ReadLoop reads text frames until the peer disconnects or the read deadline
// passes, calling handle for each frame in arrival order. Frames beyond the
// inbound rate limit are answered with an error event and not handled.
func (c *Connection) ReadLoop(handle func(raw []byte)) {
	defer c.Close(websocket.CloseNormalClosure, "")

	c.ws.SetReadLimit(c.opts.MaxMessageBytes)
	_ = c.ws.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	})

	for {
		kind, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.log.Debug().Err(err).Msg("read failed")
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		if c.limiter != nil && !c.limiter.Allow() {
			ObserveInbound("any", "rejected")
			_ = c.Send(ErrorEvent{Message: "rate limit exceeded"})
			continue
		}
		handle(raw)
	}
}
