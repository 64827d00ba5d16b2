// Package transport provides the reliable, ordered byte-stream connection
// the client reads MQTT control packets from and writes them to: plain TCP,
// TLS-on-TCP with optional DER certificate pinning and mutual TLS, and a
// WebSocket variant for browsers and proxies that only pass HTTP(S).
package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"time"
)

// Transport is the byte-stream abstraction the client depends on. No
// implementation buffers above what the OS (or, for TLS, the TLS record
// layer) already buffers; any accumulation needed to assemble a complete
// MQTT packet is the caller's responsibility.
type Transport interface {
	// Connect dials host:port and completes any TLS handshake cfg requires.
	Connect(ctx context.Context, host string, port uint16, cfg Config) error

	// Send writes b, observing timeout as a write deadline. Returns the
	// number of bytes written.
	Send(b []byte, timeout time.Duration) (int, error)

	// Recv reads into b, observing timeout as a read deadline. Returns the
	// number of bytes read.
	Recv(b []byte, timeout time.Duration) (int, error)

	// Close tears down the underlying connection. Safe to call more than
	// once.
	Close() error
}

// Config configures how Connect establishes the stream.
type Config struct {
	UseTLS bool

	// BrokerCertDER, when UseTLS is set, pins the broker's certificate:
	// nil leaves normal system-root verification in place; a non-nil but
	// empty slice disables verification entirely (InsecureSkipVerify);
	// a non-empty slice is parsed as the one acceptable leaf certificate.
	BrokerCertDER []byte

	// ClientCertDER and ClientKeyDER, both non-empty, enable mutual TLS by
	// presenting this DER-encoded certificate and key to the broker.
	ClientCertDER []byte
	ClientKeyDER  []byte

	// Dialer overrides how the underlying connection is established. TCP
	// uses it in place of net.Dialer.DialContext; WebSocket has no use for
	// it today since nhooyr.io/websocket owns its own dial.
	Dialer ContextDialer
}

// ContextDialer matches net.Dialer.DialContext and lets callers swap in an
// alternate way of establishing the raw connection (a SOCKS proxy, a test
// double, ...) ahead of any TLS handshake.
type ContextDialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// buildTLSConfig translates Config's pinning/mTLS options into a
// *tls.Config. serverName is used for SNI and, absent pinning, for normal
// hostname verification.
func buildTLSConfig(serverName string, cfg Config) (*tls.Config, error) {
	tlsCfg := &tls.Config{ServerName: serverName}

	if cfg.BrokerCertDER != nil {
		if len(cfg.BrokerCertDER) == 0 {
			tlsCfg.InsecureSkipVerify = true
		} else {
			pinned, err := x509.ParseCertificate(cfg.BrokerCertDER)
			if err != nil {
				return nil, fmt.Errorf("transport: parse broker certificate: %w", err)
			}
			tlsCfg.InsecureSkipVerify = true
			tlsCfg.VerifyPeerCertificate = func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
				for _, raw := range rawCerts {
					if len(raw) == len(pinned.Raw) && string(raw) == string(pinned.Raw) {
						return nil
					}
				}
				return fmt.Errorf("transport: server certificate does not match pinned certificate")
			}
		}
	}

	if len(cfg.ClientCertDER) > 0 && len(cfg.ClientKeyDER) > 0 {
		cert, err := x509.ParseCertificate(cfg.ClientCertDER)
		if err != nil {
			return nil, fmt.Errorf("transport: parse client certificate: %w", err)
		}
		key, err := x509.ParsePKCS8PrivateKey(cfg.ClientKeyDER)
		if err != nil {
			return nil, fmt.Errorf("transport: parse client key: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{{
			Certificate: [][]byte{cert.Raw},
			PrivateKey:  key,
			Leaf:        cert,
		}}
	}

	return tlsCfg, nil
}
