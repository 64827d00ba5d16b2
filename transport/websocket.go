package transport

import (
	"context"
	"fmt"
	"net"
	"time"

	"nhooyr.io/websocket"
)

// WebSocket is a Transport backed by nhooyr.io/websocket, for brokers or
// proxies reachable only over HTTP(S). The MQTT-over-WebSocket subprotocol
// ("mqtt") is negotiated as OASIS MQTT v5.0 section 6 requires.
type WebSocket struct {
	url  string
	conn net.Conn
	ws   *websocket.Conn
}

// NewWebSocket returns an unconnected WebSocket transport that will dial
// url (e.g. "wss://broker.example.com:8883/mqtt") on Connect. host/port
// passed to Connect are ignored in favor of url, since a WebSocket address
// already carries host, port, and path.
func NewWebSocket(url string) *WebSocket {
	return &WebSocket{url: url}
}

func (w *WebSocket) Connect(ctx context.Context, _ string, _ uint16, _ Config) error {
	c, _, err := websocket.Dial(ctx, w.url, &websocket.DialOptions{
		Subprotocols: []string{"mqtt"},
	})
	if err != nil {
		return fmt.Errorf("transport: websocket dial %s: %w", w.url, err)
	}
	w.ws = c
	w.conn = websocket.NetConn(ctx, c, websocket.MessageBinary)
	return nil
}

func (w *WebSocket) Send(b []byte, timeout time.Duration) (int, error) {
	if timeout > 0 {
		if err := w.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			return 0, err
		}
	}
	return w.conn.Write(b)
}

func (w *WebSocket) Recv(b []byte, timeout time.Duration) (int, error) {
	if timeout > 0 {
		if err := w.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return 0, err
		}
	}
	return w.conn.Read(b)
}

func (w *WebSocket) Close() error {
	if w.ws == nil {
		return nil
	}
	return w.ws.Close(websocket.StatusNormalClosure, "")
}

// DialWebSocket returns a constructor that builds a fresh WebSocket
// transport for url on each call. It is not a ContextDialer, so it cannot be
// passed to mqttc.WithDialer; the transport it builds is passed to
// mqttc.WithTransport.
func DialWebSocket(url string) func() Transport {
	return func() Transport { return NewWebSocket(url) }
}
