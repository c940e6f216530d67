package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func newEchoServer(t *testing.T) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, data); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	return srv
}

func TestWebSocketConnectSendReceive(t *testing.T) {
	srv := newEchoServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	ws := NewWebSocket()
	messages, err := ws.Connect(context.Background(), url)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer ws.Disconnect(websocket.CloseNormalClosure)

	if err := ws.SendText(context.Background(), []byte(`{"op":0}`)); err != nil {
		t.Fatalf("SendText: %v", err)
	}

	select {
	case msg := <-messages:
		if msg.Err != nil {
			t.Fatalf("unexpected error message: %v", msg.Err)
		}
		if string(msg.Data) != `{"op":0}` {
			t.Fatalf("echoed = %q, want %q", msg.Data, `{"op":0}`)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for echo")
	}
}

func TestWebSocketDisconnectClosesChannel(t *testing.T) {
	srv := newEchoServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	ws := NewWebSocket()
	messages, err := ws.Connect(context.Background(), url)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}

	if err := ws.Disconnect(websocket.CloseNormalClosure); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if err := ws.Disconnect(websocket.CloseNormalClosure); err != nil {
		t.Fatalf("second Disconnect: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-messages:
			if !ok {
				return
			}
			// a close message delivered before the channel closed is fine
		case <-deadline:
			t.Fatalf("messages channel never closed")
		}
	}
}

func TestWebSocketSendAfterDisconnectFails(t *testing.T) {
	srv := newEchoServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	ws := NewWebSocket()
	if _, err := ws.Connect(context.Background(), url); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	ws.Disconnect(websocket.CloseNormalClosure)

	if err := ws.SendText(context.Background(), []byte("x")); err != ErrClosed {
		t.Fatalf("SendText after disconnect = %v, want ErrClosed", err)
	}
}
