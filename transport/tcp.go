package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"
)

// TCP is the default Transport: a plain or TLS-wrapped net.Conn.
type TCP struct {
	conn net.Conn
}

// NewTCP returns an unconnected TCP transport; call Connect before use.
func NewTCP() *TCP {
	return &TCP{}
}

func (t *TCP) Connect(ctx context.Context, host string, port uint16, cfg Config) error {
	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))

	dialer := cfg.Dialer
	if dialer == nil {
		dialer = &net.Dialer{}
	}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("transport: dial %s: %w", addr, err)
	}

	if cfg.UseTLS {
		tlsCfg, err := buildTLSConfig(host, cfg)
		if err != nil {
			conn.Close()
			return err
		}
		tlsConn := tls.Client(conn, tlsCfg)
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			conn.Close()
			return fmt.Errorf("transport: TLS handshake: %w", err)
		}
		conn = tlsConn
	}

	t.conn = conn
	return nil
}

func (t *TCP) Send(b []byte, timeout time.Duration) (int, error) {
	if timeout > 0 {
		if err := t.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			return 0, err
		}
	}
	return t.conn.Write(b)
}

func (t *TCP) Recv(b []byte, timeout time.Duration) (int, error) {
	if timeout > 0 {
		if err := t.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return 0, err
		}
	}
	return t.conn.Read(b)
}

func (t *TCP) Close() error {
	if t.conn == nil {
		return nil
	}
	return t.conn.Close()
}
