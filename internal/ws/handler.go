// Package ws serves the discount protocol over WebSocket.
package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/discountcodes/discount-server-go/internal/audit"
	"github.com/discountcodes/discount-server-go/internal/config"
	"github.com/discountcodes/discount-server-go/internal/metrics"
)

// FrameHandler answers one request frame with one response frame.
type FrameHandler interface {
	Handle(ctx context.Context, frame []byte) []byte
}

type Options struct {
	MaxMessageBytes int64
	WriteWait       time.Duration
	PongWait        time.Duration
	PingPeriod      time.Duration
	// RequestTimeout bounds the handling of one frame. It is applied to a context
	// detached from the connection so a closing peer does not abort a store call.
	RequestTimeout time.Duration
}

func DefaultOptions(maxMessageBytes int64) Options {
	return Options{
		MaxMessageBytes: maxMessageBytes,
		WriteWait:       config.WSWriteWait,
		PongWait:        config.WSPongWait,
		PingPeriod:      config.WSPingPeriod,
		RequestTimeout:  config.StoreOperationTimeout,
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Handler struct {
	frames FrameHandler
	opts   Options

	mu     sync.Mutex
	conns  map[*Conn]struct{}
	closed bool
	wg     sync.WaitGroup
}

func NewHandler(frames FrameHandler, opts Options) *Handler {
	return &Handler{
		frames: frames,
		opts:   opts,
		conns:  make(map[*Conn]struct{}),
	}
}

// ServeHTTP upgrades the request and serves the connection until it closes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("remoteAddr", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}

	c := newConn(uuid.NewString(), wsConn, h.opts)
	if !h.track(c) {
		c.close(websocket.CloseGoingAway, "server shutting down")
		c.shutdown()
		return
	}
	defer h.untrack(c)

	metrics.ConnectionOpened()
	defer metrics.ConnectionClosed()

	ip := audit.ClientIP(r)
	audit.Log(audit.Event{Type: audit.EventConnectionOpened, ConnID: c.id, IP: ip})
	start := time.Now()

	c.serve(r.Context(), h.frames)

	audit.Log(audit.Event{
		Type:    audit.EventConnectionClosed,
		ConnID:  c.id,
		IP:      ip,
		Details: map[string]interface{}{"duration_ms": time.Since(start).Milliseconds()},
	})
}

// Close sends a close frame to every open connection and stops accepting new ones.
func (h *Handler) Close() {
	h.mu.Lock()
	h.closed = true
	conns := make([]*Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		c.close(websocket.CloseGoingAway, "server shutting down")
	}
}

// Shutdown closes every connection and waits until their handlers return or ctx ends.
func (h *Handler) Shutdown(ctx context.Context) error {
	h.Close()

	drained := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ActiveConnections returns the number of open connections.
func (h *Handler) ActiveConnections() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

func (h *Handler) track(c *Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.conns[c] = struct{}{}
	h.wg.Add(1)
	return true
}

func (h *Handler) untrack(c *Conn) {
	h.mu.Lock()
	delete(h.conns, c)
	h.mu.Unlock()
	h.wg.Done()
}
