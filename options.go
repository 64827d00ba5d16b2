package mqttc

import (
	"log/slog"
	"time"

	"github.com/riftio/mqttc/storage"
	"github.com/riftio/mqttc/transport"
	"github.com/riftio/mqttc/wire"
)

// Authenticator drives one side of an MQTT v5 Enhanced Authentication
// exchange. A Client configured WithAuthenticator supplies Method and
// InitialData in its CONNECT packet and, once Handler.AuthReceived accepts
// a challenge, calls HandleChallenge automatically and writes the AUTH
// packet it returns. Complete runs once the exchange succeeds.
type Authenticator interface {
	Method() string
	InitialData() ([]byte, error)
	HandleChallenge(challengeData []byte, reasonCode uint8) ([]byte, error)
	Complete() error
}

// options holds client-construction configuration, assembled by Option
// functions passed to New.
type options struct {
	Logger          *slog.Logger
	Storage         storage.PacketStorage
	Authenticator   Authenticator
	Dialer          transport.ContextDialer
	Transport       transport.Transport
	DefaultTimeout  time.Duration
	TransportConfig transport.Config
}

func defaultOptions() *options {
	return &options{
		Logger:         slog.New(slog.DiscardHandler),
		DefaultTimeout: 30 * time.Second,
	}
}

// Option configures a Client at construction time.
type Option func(*options)

// WithLogger sets the structured logger used for every state transition,
// retransmission, and teardown. The default discards all output.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.Logger = l }
}

// WithPacketStorage overrides the default in-memory ring buffer used to
// persist unacknowledged outbound QoS 1/2 packet bodies.
func WithPacketStorage(s storage.PacketStorage) Option {
	return func(o *options) { o.Storage = s }
}

// WithAuthenticator enables MQTT v5 Enhanced Authentication, supplying the
// method name and initial data sent in CONNECT and driving subsequent
// challenge/response rounds.
func WithAuthenticator(a Authenticator) Option {
	return func(o *options) { o.Authenticator = a }
}

// WithDialer overrides how the default transport.TCP dials the broker (a
// SOCKS proxy, a test double, ...). To use a WebSocket transport instead of
// a raw TCP connection, pass transport.NewWebSocket(url) to WithTransport.
func WithDialer(d transport.ContextDialer) Option {
	return func(o *options) { o.Dialer = d }
}

// WithTransportConfig sets the TLS/mTLS configuration passed to the
// transport's Connect.
func WithTransportConfig(cfg transport.Config) Option {
	return func(o *options) { o.TransportConfig = cfg }
}

// WithTransport overrides the byte-stream implementation Connect dials,
// transport.NewTCP() by default. Pass transport.NewWebSocket(url) to speak
// MQTT over a WebSocket, or a test double that implements
// transport.Transport without touching the network.
func WithTransport(t transport.Transport) Option {
	return func(o *options) { o.Transport = t }
}

// WithDefaultTimeout sets the per-client transport timeout, with the same
// scope as Client.SetDefaultTimeout (EventLoop's reads excluded).
// Equivalent to calling Client.SetDefaultTimeout immediately after New.
func WithDefaultTimeout(d time.Duration) Option {
	return func(o *options) { o.DefaultTimeout = d }
}

// Handler is the embedder-implemented callback surface, invoked exclusively
// from the event-loop thread (the goroutine calling EventLoop, or the
// goroutine calling Connect before EventLoop has started), in total order.
type Handler interface {
	// MessageReceived is invoked once per delivered application message.
	// For an inbound QoS2 PUBLISH, it is invoked exactly once even under
	// duplicate delivery before the matching PUBREL.
	MessageReceived(topic string, payload []byte, packetID uint16, props *wire.Properties)

	// MaxPacketSize is queried once, at client construction, and caps the
	// size of any inbound packet the wire codec will accept.
	MaxPacketSize() int

	// MaxUnACKedPackets is queried once, at connect time, and sizes the
	// outbound in-flight slot tables (one sub-table each for outbound QoS1
	// and outbound QoS2). Inbound QoS2 ids awaiting PUBREL are not bounded
	// by it.
	MaxUnACKedPackets() int

	// ConnectionLost is invoked from the event loop when the transport is
	// torn down, whether by a fatal I/O error, a server DISCONNECT, or a
	// refused/failed authentication.
	ConnectionLost(reason error)

	// AuthReceived is invoked on an inbound CONNACK or AUTH carrying
	// ContinueAuthentication. Returning false rejects the continuation:
	// the client closes the transport without sending DISCONNECT and
	// reports a NotAuthorized *ReasonError.
	AuthReceived(reasonCode wire.ReasonCode, method string, data []byte, props *wire.Properties) bool
}

// DefaultHandler is a Handler that discards inbound messages, reports the
// spec's documented defaults (2048, 1), logs connection loss, and rejects
// any authentication continuation it did not expect. Embedders typically
// embed it and override only the methods they need.
type DefaultHandler struct {
	Logger *slog.Logger

	// MaxPacketSizeValue and MaxUnACKedPacketsValue override the defaults
	// (2048 and 1) when non-zero.
	MaxPacketSizeValue     int
	MaxUnACKedPacketsValue int
}

func (h DefaultHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.New(slog.DiscardHandler)
}

func (h DefaultHandler) MessageReceived(topic string, payload []byte, packetID uint16, props *wire.Properties) {
	h.logger().Debug("message received with no handler installed", "topic", topic, "packetID", packetID)
}

func (h DefaultHandler) MaxPacketSize() int {
	if h.MaxPacketSizeValue > 0 {
		return h.MaxPacketSizeValue
	}
	return 2048
}

func (h DefaultHandler) MaxUnACKedPackets() int {
	if h.MaxUnACKedPacketsValue > 0 {
		return h.MaxUnACKedPacketsValue
	}
	return 1
}

func (h DefaultHandler) ConnectionLost(reason error) {
	h.logger().Warn("connection lost", "reason", reason)
}

func (h DefaultHandler) AuthReceived(reasonCode wire.ReasonCode, method string, data []byte, props *wire.Properties) bool {
	h.logger().Warn("rejecting unexpected authentication continuation", "method", method)
	return false
}
