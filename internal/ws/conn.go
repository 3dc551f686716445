package ws

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Conn is one client connection. Reads, dispatch and response writes happen on the
// serving goroutine, so responses leave in request order. A second goroutine only
// sends pings.
type Conn struct {
	id   string
	ws   *websocket.Conn
	opts Options
	log  zerolog.Logger

	mu   sync.Mutex // guards writes to ws
	done chan struct{}
	once sync.Once
}

func newConn(id string, wsConn *websocket.Conn, opts Options) *Conn {
	return &Conn{
		id:   id,
		ws:   wsConn,
		opts: opts,
		log:  log.With().Str("connId", id).Logger(),
		done: make(chan struct{}),
	}
}

func (c *Conn) serve(ctx context.Context, frames FrameHandler) {
	defer c.shutdown()

	c.ws.SetReadLimit(c.opts.MaxMessageBytes)
	if err := c.extendReadDeadline(); err != nil {
		c.log.Warn().Err(err).Msg("failed to set read deadline")
		return
	}
	c.ws.SetPongHandler(func(string) error {
		return c.extendReadDeadline()
	})

	go c.pingLoop()

	for {
		_, frame, err := c.ws.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}
		if err := c.extendReadDeadline(); err != nil {
			return
		}

		resp := c.handle(ctx, frames, frame)

		if err := c.write(websocket.TextMessage, resp); err != nil {
			c.log.Warn().Err(err).Msg("failed to write response")
			return
		}
	}
}

func (c *Conn) handle(ctx context.Context, frames FrameHandler, frame []byte) []byte {
	reqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.RequestTimeout)
	defer cancel()
	return frames.Handle(reqCtx, frame)
}

func (c *Conn) pingLoop() {
	ticker := time.NewTicker(c.opts.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.log.Debug().Err(err).Msg("ping failed")
				return
			}
		}
	}
}

func (c *Conn) write(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(messageType, data)
}

// close sends a close frame; the serving goroutine then sees the read fail and exits.
func (c *Conn) close(code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)

	c.mu.Lock()
	err := c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.opts.WriteWait))
	c.mu.Unlock()

	if err != nil {
		c.shutdown()
	}
}

func (c *Conn) shutdown() {
	c.once.Do(func() {
		close(c.done)
		c.ws.Close()
	})
}

func (c *Conn) extendReadDeadline() error {
	return c.ws.SetReadDeadline(time.Now().Add(c.opts.PongWait))
}

func (c *Conn) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.log.Warn().Int64("limit", c.opts.MaxMessageBytes).Msg("message too large, closing connection")
	case websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure):
		c.log.Warn().Err(err).Msg("unexpected close")
	default:
		c.log.Debug().Err(err).Msg("read loop ended")
	}
}
