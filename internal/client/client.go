// Package client is a WebSocket client for the discount protocol.
package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/discountcodes/discount-server-go/internal/config"
	"github.com/discountcodes/discount-server-go/internal/model"
	"github.com/discountcodes/discount-server-go/internal/protocol"
)

// ErrClosed is returned once the connection has gone away.
var ErrClosed = errors.New("connection closed")

// Client sends requests and delivers server responses, in arrival order, on Responses.
type Client struct {
	conn      *websocket.Conn
	mu        sync.Mutex // guards writes to conn
	responses chan protocol.Message
	done      chan struct{}
	err       error

	closing   chan struct{}
	closeOnce sync.Once

	// stale counts replies still owed to Generate or UseCode calls that gave up
	// waiting. The server answers in request order, so the next stale replies
	// to arrive are exactly those.
	staleMu sync.Mutex
	stale   int
}

// Dial connects to serverURL and starts the receive loop.
func Dial(ctx context.Context, serverURL string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, serverURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", serverURL, err)
	}

	c := &Client{
		conn:      conn,
		responses: make(chan protocol.Message, 16),
		done:      make(chan struct{}),
		closing:   make(chan struct{}),
	}
	go c.receiveLoop()
	return c, nil
}

// Responses yields decoded server frames. It is closed when the connection ends.
func (c *Client) Responses() <-chan protocol.Message {
	return c.responses
}

// Err reports why the receive loop stopped. Valid after Responses is closed.
func (c *Client) Err() error {
	<-c.done
	return c.err
}

func (c *Client) SendGenerate(count uint16, length uint8) error {
	return c.send(protocol.GenerateRequest{Count: count, Length: length})
}

func (c *Client) SendUseCode(code string) error {
	return c.send(protocol.UseCodeRequest{Code: code})
}

// Generate sends a generate request and waits for its response.
// It must not be mixed with another consumer of Responses.
func (c *Client) Generate(ctx context.Context, count uint16, length uint8) (bool, error) {
	if err := c.SendGenerate(count, length); err != nil {
		return false, err
	}
	msg, err := c.next(ctx)
	if err != nil {
		return false, err
	}
	switch resp := msg.(type) {
	case protocol.GenerateResponse:
		return resp.Result, nil
	case protocol.ErrorResponse:
		return false, &ServerError{Message: resp.Message}
	default:
		return false, fmt.Errorf("unexpected %s in reply to generateRequest", msg.MessageType())
	}
}

// UseCode sends a use-code request and waits for its response.
// It must not be mixed with another consumer of Responses.
func (c *Client) UseCode(ctx context.Context, code string) (model.UseCodeResult, error) {
	if err := c.SendUseCode(code); err != nil {
		return 0, err
	}
	msg, err := c.next(ctx)
	if err != nil {
		return 0, err
	}
	switch resp := msg.(type) {
	case protocol.UseCodeResponse:
		return resp.Result, nil
	case protocol.ErrorResponse:
		return 0, &ServerError{Message: resp.Message}
	default:
		return 0, fmt.Errorf("unexpected %s in reply to useCodeRequest", msg.MessageType())
	}
}

// Close performs the close handshake and waits briefly for the receive loop to end.
// A receive loop blocked on unread Responses is released rather than waited for.
func (c *Client) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client closing")
	c.mu.Lock()
	err := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(config.WSWriteWait))
	c.mu.Unlock()
	c.closeOnce.Do(func() { close(c.closing) })

	select {
	case <-c.done:
	case <-time.After(config.WSWriteWait):
	}
	if cerr := c.conn.Close(); err == nil {
		err = cerr
	}
	if errors.Is(err, websocket.ErrCloseSent) || errors.Is(err, ErrClosed) {
		return nil
	}
	return err
}

// ServerError is an errorResponse received from the server.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return "server error: " + e.Message
}

func (c *Client) send(msg protocol.Message) error {
	frame, err := protocol.Encode(msg)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(config.WSWriteWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, frame)
}

// next waits for the reply to the most recent request, discarding late replies
// to requests whose callers already timed out.
func (c *Client) next(ctx context.Context) (protocol.Message, error) {
	for {
		select {
		case msg, ok := <-c.responses:
			if !ok {
				return nil, c.Err()
			}
			if c.dropStale() {
				log.Debug().Str("type", msg.MessageType().String()).Msg("discarding late reply")
				continue
			}
			return msg, nil
		case <-ctx.Done():
			c.staleMu.Lock()
			c.stale++
			c.staleMu.Unlock()
			return nil, ctx.Err()
		}
	}
}

func (c *Client) dropStale() bool {
	c.staleMu.Lock()
	defer c.staleMu.Unlock()
	if c.stale == 0 {
		return false
	}
	c.stale--
	return true
}

func (c *Client) receiveLoop() {
	defer close(c.done)
	defer close(c.responses)

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.err = ErrClosed
			} else {
				c.err = err
			}
			return
		}

		msg, err := protocol.Decode(frame)
		if err != nil {
			log.Warn().Err(err).Msg("undecodable server frame")
			continue
		}
		select {
		case c.responses <- msg:
		case <-c.closing:
			c.err = ErrClosed
			return
		}
	}
}
