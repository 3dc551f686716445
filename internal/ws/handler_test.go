package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoHandler struct {
	calls   atomic.Int32
	mu      sync.Mutex
	lastCtx context.Context
	delay   time.Duration
}

func (e *echoHandler) Handle(ctx context.Context, frame []byte) []byte {
	e.calls.Add(1)
	e.mu.Lock()
	e.lastCtx = ctx
	e.mu.Unlock()
	if e.delay > 0 {
		time.Sleep(e.delay)
	}
	return append([]byte("echo:"), frame...)
}

func testOptions() Options {
	return Options{
		MaxMessageBytes: 1024,
		WriteWait:       time.Second,
		PongWait:        2 * time.Second,
		PingPeriod:      time.Second,
		RequestTimeout:  time.Second,
	}
}

func startServer(t *testing.T, frames FrameHandler, opts Options) (*Handler, string) {
	t.Helper()
	h := NewHandler(frames, opts)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return h, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHandler_RequestResponsePairing(t *testing.T) {
	frames := &echoHandler{}
	_, url := startServer(t, frames, testOptions())
	conn := dial(t, url)

	for i := 0; i < 20; i++ {
		msg := []byte(strings.Repeat("x", i+1))
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, msg))
	}

	for i := 0; i < 20; i++ {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		mt, resp, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, websocket.TextMessage, mt)
		assert.Equal(t, "echo:"+strings.Repeat("x", i+1), string(resp))
	}
	assert.Equal(t, int32(20), frames.calls.Load())
}

func TestHandler_RequestContextHasDeadline(t *testing.T) {
	frames := &echoHandler{}
	_, url := startServer(t, frames, testOptions())
	conn := dial(t, url)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("hi")))
	_, _, err := conn.ReadMessage()
	require.NoError(t, err)

	frames.mu.Lock()
	defer frames.mu.Unlock()
	_, ok := frames.lastCtx.Deadline()
	assert.True(t, ok)
}

func TestHandler_MessageTooLarge(t *testing.T) {
	opts := testOptions()
	opts.MaxMessageBytes = 16
	frames := &echoHandler{}
	_, url := startServer(t, frames, opts)
	conn := dial(t, url)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(strings.Repeat("a", 64))))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseMessageTooBig))
	assert.Equal(t, int32(0), frames.calls.Load())
}

func TestHandler_SendsPings(t *testing.T) {
	opts := testOptions()
	opts.PingPeriod = 50 * time.Millisecond
	_, url := startServer(t, &echoHandler{}, opts)
	conn := dial(t, url)

	pinged := make(chan struct{}, 1)
	conn.SetPingHandler(func(string) error {
		select {
		case pinged <- struct{}{}:
		default:
		}
		return nil
	})

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	select {
	case <-pinged:
	case <-time.After(2 * time.Second):
		t.Fatal("no ping received")
	}
}

func TestHandler_Close(t *testing.T) {
	h, url := startServer(t, &echoHandler{}, testOptions())
	conn := dial(t, url)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("hi")))
	_, _, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, 1, h.ActiveConnections())

	h.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway))

	assert.Eventually(t, func() bool { return h.ActiveConnections() == 0 }, 2*time.Second, 10*time.Millisecond)

	late := dial(t, url)
	require.NoError(t, late.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = late.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway))
}

func TestHandler_ConcurrentClients(t *testing.T) {
	frames := &echoHandler{delay: 5 * time.Millisecond}
	_, url := startServer(t, frames, testOptions())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conn, _, err := websocket.DefaultDialer.Dial(url, nil)
			if !assert.NoError(t, err) {
				return
			}
			defer conn.Close()

			msg := strings.Repeat("c", i+1)
			assert.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(msg)))
			_, resp, err := conn.ReadMessage()
			assert.NoError(t, err)
			assert.Equal(t, "echo:"+msg, string(resp))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int32(10), frames.calls.Load())
}

func TestHandler_Shutdown(t *testing.T) {
	h, url := startServer(t, &echoHandler{}, testOptions())
	conn := dial(t, url)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("hi")))
	_, _, err := conn.ReadMessage()
	require.NoError(t, err)

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, h.Shutdown(ctx))
	assert.Equal(t, 0, h.ActiveConnections())
}
