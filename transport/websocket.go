// Package transport provides the narrow WebSocket and UDP shims the
// signalling and media paths are built against (§4.4), so the protocol
// logic in package voicegateway never touches gorilla/websocket or net
// directly.
package transport

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// ErrClosed is returned by SendText once the socket has been closed.
var ErrClosed = errors.New("transport: websocket is closed")

// TextMessage carries one inbound WebSocket text frame, or a non-nil
// Err if the read loop terminated abnormally.
type TextMessage struct {
	Data []byte
	Err  error
}

// WebSocket is a minimal JSON-text-frame WebSocket client: connect,
// send text, and consume a channel of inbound messages, grounded on the
// dial/read-loop split in internal/wsutil/conn.go and the send-rate
// limiting in internal/wsutil/ws.go.
type WebSocket struct {
	dialer *websocket.Dialer
	limit  *rate.Limiter

	mu   sync.Mutex
	conn *websocket.Conn

	messages chan TextMessage
}

// NewWebSocket constructs an unconnected WebSocket client.
func NewWebSocket() *WebSocket {
	return &WebSocket{
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
		limit: rate.NewLimiter(rate.Every(60*time.Second/120), 120),
	}
}

// Connect dials url and starts the background read loop. The returned
// channel receives every subsequent text frame until the connection
// closes, at which point a final TextMessage with the read error as Err
// (a *websocket.CloseError when the peer sent a close frame) is sent and
// the channel is closed.
func (w *WebSocket) Connect(ctx context.Context, url string) (<-chan TextMessage, error) {
	conn, _, err := w.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "transport: dial failed")
	}

	w.mu.Lock()
	w.conn = conn
	w.mu.Unlock()

	w.messages = make(chan TextMessage)
	go w.readLoop(conn)

	return w.messages, nil
}

func (w *WebSocket) readLoop(conn *websocket.Conn) {
	defer close(w.messages)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			w.messages <- TextMessage{Err: err}
			return
		}
		w.messages <- TextMessage{Data: data}
	}
}

// SendText writes message as a single text frame, rate-limited to avoid
// tripping the peer's connection-level rate limit.
func (w *WebSocket) SendText(ctx context.Context, message []byte) error {
	if err := w.limit.Wait(ctx); err != nil {
		return errors.Wrap(err, "transport: send rate limiter")
	}

	w.mu.Lock()
	conn := w.conn
	w.mu.Unlock()

	if conn == nil {
		return ErrClosed
	}

	if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
		return errors.Wrap(err, "transport: write failed")
	}
	return nil
}

// Disconnect sends a close frame with code and tears down the
// connection. It is safe to call more than once.
func (w *WebSocket) Disconnect(code int) error {
	w.mu.Lock()
	conn := w.conn
	w.conn = nil
	w.mu.Unlock()

	if conn == nil {
		return nil
	}

	deadline := time.Now().Add(time.Second)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, ""), deadline)

	return conn.Close()
}
