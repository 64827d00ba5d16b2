package mqttc

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/riftio/mqttc/qos"
	"github.com/riftio/mqttc/storage"
	"github.com/riftio/mqttc/transport"
	"github.com/riftio/mqttc/wire"
)

type connState uint8

const (
	stateDisconnected connState = iota
	stateConnecting
	stateAuthenticating
	stateConnected
)

func (s connState) String() string {
	switch s {
	case stateDisconnected:
		return "disconnected"
	case stateConnecting:
		return "connecting"
	case stateAuthenticating:
		return "authenticating"
	case stateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// ConnectOptions parameterizes one Connect call.
type ConnectOptions struct {
	Host     string
	Port     uint16
	ClientID string

	CleanStart bool
	KeepAlive  uint16

	Username    string
	HasUsername bool
	Password    string
	HasPassword bool

	Will *Will

	Properties *Properties
}

// Client is a single MQTT v5 session. Construct with New, then call Connect
// followed by EventLoop (typically in its own goroutine).
type Client struct {
	handler Handler
	opts    *options
	logger  *slog.Logger

	// mu guards every field below it, the qos engine, packet storage, and
	// every transport write. It is the single lock shared between the
	// event-loop goroutine and any concurrent Publish caller, per the
	// reentrancy contract: a publisher never blocks the event loop for
	// longer than one transport write, and the event loop never observes a
	// torn write.
	mu sync.Mutex

	transport transport.Transport
	engine    *qos.Engine
	storage   storage.PacketStorage

	state      connState
	clientID   string
	keepAlive  uint16
	defaultTTL time.Duration

	// maxPacketSize is queried from Handler once, in New, per the doc on
	// Handler.MaxPacketSize.
	maxPacketSize int

	// Server limits recorded from the CONNACK properties of the most
	// recent successful connect (§4.5/§3). serverReceiveMaximum clamps
	// outbound QoS1/2 flow control alongside the handler's own
	// MaxUnACKedPackets; the others are recorded for the embedder to read
	// back but are not otherwise enforced by this package.
	serverReceiveMaximum    uint16
	serverMaxPacketSize     uint32
	serverTopicAliasMaximum uint16
	sessionExpiryInterval   uint32

	// teardownErr is set by a publisher that hits a transport write error.
	// A concurrent writer never tears down synchronously or calls
	// Handler.ConnectionLost itself — only the event-loop goroutine does,
	// on its next pass, so the callback is always delivered from the same
	// goroutine the embedder expects it from.
	teardownErr error

	lastSend time.Time

	// awaitingPingResp and pingSentAt track the liveness half of the
	// keep-alive contract: once a PINGREQ is sent, EventLoop declares the
	// connection TimedOut if no PINGRESP arrives within keepAlive.
	awaitingPingResp bool
	pingSentAt       time.Time

	recvBuf []byte

	// recvScratch is readPacket's reusable transport.Recv destination.
	// Never touched concurrently: only the event-loop goroutine (or Connect
	// before the event loop starts) ever calls readPacket.
	recvScratch []byte

	// qos2Inbound stashes the first-seen PUBLISH for each inbound QoS2 id
	// still awaiting PUBREL, so MessageReceived can be called with the
	// actual payload once delivery is triggered at PUBREL time.
	qos2Inbound map[uint16]*wire.PublishPacket

	authenticator Authenticator
}

// New constructs a Client. handler receives every application-level
// callback; its MaxPacketSize is queried once here, and its
// MaxUnACKedPackets once per Connect.
func New(handler Handler, opts ...Option) *Client {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	store := o.Storage
	if store == nil {
		store = storage.NewRing(1 << 20)
	}

	return &Client{
		handler:       handler,
		opts:          o,
		logger:        o.Logger,
		storage:       store,
		state:         stateDisconnected,
		defaultTTL:    o.DefaultTimeout,
		authenticator: o.Authenticator,
		maxPacketSize: handler.MaxPacketSize(),
	}
}

// SetDefaultTimeout overrides the per-transport-operation timeout used for
// every Send, and for the Recv calls made by Connect, Subscribe, and
// Unsubscribe, after this call. EventLoop does not use it: its reads poll
// with a fixed one-second timeout.
func (c *Client) SetDefaultTimeout(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defaultTTL = d
}

// ServerLimits returns the broker limits recorded from the most recent
// successful CONNACK.
func (c *Client) ServerLimits() ServerLimits {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ServerLimits{
		ReceiveMaximum:        c.serverReceiveMaximum,
		MaximumPacketSize:     c.serverMaxPacketSize,
		TopicAliasMaximum:     c.serverTopicAliasMaximum,
		SessionExpiryInterval: c.sessionExpiryInterval,
	}
}

// recordServerLimits copies the CONNACK properties onto the session and
// clamps outbound QoS1/2 flow control to the broker's Receive Maximum,
// adopting a broker-assigned Server Keep Alive when present (§3, §4.5).
// Called with mu held.
func (c *Client) recordServerLimits(maxUnacked int, props *wire.Properties) {
	if props == nil {
		c.engine.SetMaxSlots(maxUnacked)
		return
	}
	if props.Presence&wire.PresReceiveMaximum != 0 {
		c.serverReceiveMaximum = props.ReceiveMaximum
	}
	if props.Presence&wire.PresMaximumPacketSize != 0 {
		c.serverMaxPacketSize = props.MaximumPacketSize
	}
	if props.Presence&wire.PresTopicAliasMaximum != 0 {
		c.serverTopicAliasMaximum = props.TopicAliasMaximum
	}
	if props.Presence&wire.PresSessionExpiryInterval != 0 {
		c.sessionExpiryInterval = props.SessionExpiryInterval
	}
	if props.Presence&wire.PresServerKeepAlive != 0 {
		c.keepAlive = props.ServerKeepAlive
	}

	effective := maxUnacked
	if c.serverReceiveMaximum > 0 && int(c.serverReceiveMaximum) < effective {
		effective = int(c.serverReceiveMaximum)
	}
	c.engine.SetMaxSlots(effective)
}

// Connect dials host:port, performs the CONNECT/CONNACK exchange, and
// blocks until a final CONNACK arrives. AUTH continuation rounds (and a
// CONNACK carrying ContinueAuthentication) that arrive before it are
// answered by Connect itself through dispatchAuth.
func (c *Client) Connect(ctx context.Context, co ConnectOptions) error {
	c.mu.Lock()
	if c.state != stateDisconnected {
		c.mu.Unlock()
		return AlreadyConnected
	}
	c.state = stateConnecting
	c.mu.Unlock()

	maxUnacked := c.handler.MaxUnACKedPackets()
	if maxUnacked <= 0 {
		maxUnacked = 1
	}

	cfg := c.opts.TransportConfig
	if c.opts.Dialer != nil {
		cfg.Dialer = c.opts.Dialer
	}

	tr := c.opts.Transport
	if tr == nil {
		tr = transport.NewTCP()
	}
	if err := tr.Connect(ctx, co.Host, co.Port, cfg); err != nil {
		c.mu.Lock()
		c.state = stateDisconnected
		c.mu.Unlock()
		return fmt.Errorf("%w: %v", NetworkError, err)
	}

	c.mu.Lock()
	c.transport = tr
	if c.engine == nil {
		c.engine = qos.NewEngine(maxUnacked, c.storage)
	} else {
		c.engine.SetMaxSlots(maxUnacked)
	}
	if co.CleanStart {
		c.engine.Reset()
		c.serverReceiveMaximum = 0
		c.serverMaxPacketSize = 0
		c.serverTopicAliasMaximum = 0
		c.sessionExpiryInterval = 0
	}
	c.clientID = co.ClientID
	c.keepAlive = co.KeepAlive
	c.recvBuf = c.recvBuf[:0]
	c.mu.Unlock()

	props := co.Properties
	if c.authenticator != nil {
		initial, err := c.authenticator.InitialData()
		if err != nil {
			c.teardown(fmt.Errorf("mqttc: authenticator initial data: %w", err))
			return err
		}
		if props == nil {
			props = &Properties{}
		}
		props.AuthenticationMethod = c.authenticator.Method()
		props.Presence |= wire.PresAuthenticationMethod
		props.AuthenticationData = initial
	}

	connect := &wire.ConnectPacket{
		CleanStart:  co.CleanStart,
		KeepAlive:   co.KeepAlive,
		ClientID:    co.ClientID,
		Will:        co.Will,
		Username:    co.Username,
		HasUsername: co.HasUsername,
		Password:    co.Password,
		HasPassword: co.HasPassword,
		Properties:  props,
	}

	if err := c.writePacket(connect); err != nil {
		c.teardown(err)
		return err
	}

	c.mu.Lock()
	c.state = stateAuthenticating
	c.mu.Unlock()

	for {
		pkt, err := c.readPacket(ctx, c.defaultTTL)
		if err != nil {
			c.teardown(err)
			return err
		}
		switch p := pkt.(type) {
		case *wire.ConnAckPacket:
			if p.ReasonCode.IsError() {
				rerr := &ReasonError{Code: p.ReasonCode}
				c.teardown(rerr)
				return rerr
			}
			if p.ReasonCode == wire.ContinueAuthentication {
				// Per the CONNACK reason=ContinueAuth row, the session stays
				// Authenticating; in practice brokers carry the continuation
				// in an AUTH packet instead, but honor it here too.
				if !c.dispatchAuth(p.ReasonCode, p.Properties) {
					rerr := &ReasonError{Code: wire.NotAuthorized}
					c.teardown(rerr)
					return rerr
				}
				continue
			}
			c.mu.Lock()
			c.state = stateConnected
			cleanStart := co.CleanStart
			c.recordServerLimits(maxUnacked, p.Properties)
			c.mu.Unlock()
			if c.authenticator != nil {
				if err := c.authenticator.Complete(); err != nil {
					rerr := &ReasonError{Code: wire.NotAuthorized}
					c.teardown(rerr)
					return fmt.Errorf("mqttc: authenticator rejected completion: %w", err)
				}
			}
			if !cleanStart {
				c.replayPending()
			}
			return nil
		case *wire.AuthPacket:
			if p.ReasonCode != wire.ContinueAuthentication {
				rerr := &ReasonError{Code: p.ReasonCode}
				c.teardown(rerr)
				return rerr
			}
			if !c.dispatchAuth(p.ReasonCode, p.Properties) {
				rerr := &ReasonError{Code: wire.NotAuthorized}
				c.teardown(rerr)
				return rerr
			}
		default:
			derr := fmt.Errorf("%w: unexpected packet during connect", BadParameter)
			c.teardown(derr)
			return derr
		}
	}
}

// replayPending resends every outstanding outbound QoS1/2 packet recorded
// before this Connect, setting DUP on PUBLISH-stage entries.
func (c *Client) replayPending() {
	c.mu.Lock()
	replays := c.engine.PendingReplays()
	c.mu.Unlock()

	for _, r := range replays {
		body := r.Body
		if !r.IsPubrel {
			body = setDupFlag(body)
		}
		if err := c.writeBytes(body); err != nil {
			c.teardown(fmt.Errorf("%w: %v", NetworkError, err))
			return
		}
	}
}

// setDupFlag sets the DUP bit (bit 3 of the fixed header's first byte) on
// an already-encoded PUBLISH packet's wire bytes.
func setDupFlag(body []byte) []byte {
	if len(body) == 0 {
		return body
	}
	out := append([]byte(nil), body...)
	out[0] |= 0x08
	return out
}

// Auth sends an AUTH packet, used both to initiate re-authentication
// (ReAuthenticate) and to answer a challenge the embedder chose to drive
// manually rather than through a configured Authenticator.
func (c *Client) Auth(reasonCode wire.ReasonCode, data []byte, props *Properties) error {
	if props == nil {
		props = &Properties{}
	}
	if len(data) > 0 {
		props.AuthenticationData = data
	}
	return c.writePacket(&wire.AuthPacket{ReasonCode: reasonCode, Properties: props})
}

// dispatchAuth runs Handler.AuthReceived and, if it accepts and an
// Authenticator is configured, automatically answers the challenge.
func (c *Client) dispatchAuth(reasonCode wire.ReasonCode, props *Properties) bool {
	var method string
	var data []byte
	if props != nil {
		method = props.AuthenticationMethod
		data = props.AuthenticationData
	}
	if !c.handler.AuthReceived(reasonCode, method, data, props) {
		return false
	}
	if c.authenticator == nil {
		return true
	}
	reply, err := c.authenticator.HandleChallenge(data, uint8(reasonCode))
	if err != nil {
		c.logger.Warn("authenticator rejected challenge", "error", err)
		return false
	}
	if err := c.Auth(wire.ContinueAuthentication, reply, nil); err != nil {
		c.logger.Warn("failed to send auth continuation", "error", err)
		return false
	}
	return true
}

// Subscribe issues a SUBSCRIBE for a single filter and blocks for its
// SUBACK. The reason codes are logged at Debug; a granted QoS yields nil,
// and a failure reason code is returned as a *ReasonError.
func (c *Client) Subscribe(filter string, qosLevel uint8, props *Properties) error {
	if err := validateSubscribeTopic(filter); err != nil {
		return err
	}

	c.mu.Lock()
	if c.state != stateConnected {
		c.mu.Unlock()
		return NotConnected
	}
	id, err := c.allocateTransientID()
	c.mu.Unlock()
	if err != nil {
		return WaitingForResult
	}

	pkt := &wire.SubscribePacket{
		PacketID:      id,
		Subscriptions: []wire.Subscription{{Filter: filter, QoS: qosLevel}},
		Properties:    props,
	}
	if err := c.writePacket(pkt); err != nil {
		c.teardown(err)
		return err
	}

	for {
		p, err := c.readPacket(context.Background(), c.defaultTTL)
		if err != nil {
			c.teardown(err)
			return err
		}
		if suback, ok := p.(*wire.SubAckPacket); ok && suback.PacketID == id {
			c.logger.Debug("suback received", "packetID", id, "reasonCodes", suback.ReasonCodes)
			for _, rc := range suback.ReasonCodes {
				if rc.IsError() {
					return &ReasonError{Code: rc}
				}
			}
			return nil
		}
		if derr := c.dispatchPacket(p); derr != nil {
			return derr
		}
	}
}

// Unsubscribe issues an UNSUBSCRIBE for a single filter and blocks for its
// UNSUBACK. A failure reason code is returned as a *ReasonError.
func (c *Client) Unsubscribe(filter string, props *Properties) error {
	c.mu.Lock()
	if c.state != stateConnected {
		c.mu.Unlock()
		return NotConnected
	}
	id, err := c.allocateTransientID()
	c.mu.Unlock()
	if err != nil {
		return WaitingForResult
	}

	pkt := &wire.UnsubscribePacket{PacketID: id, Filters: []string{filter}, Properties: props}
	if err := c.writePacket(pkt); err != nil {
		c.teardown(err)
		return err
	}

	for {
		p, err := c.readPacket(context.Background(), c.defaultTTL)
		if err != nil {
			c.teardown(err)
			return err
		}
		if unsuback, ok := p.(*wire.UnsubAckPacket); ok && unsuback.PacketID == id {
			c.logger.Debug("unsuback received", "packetID", id, "reasonCodes", unsuback.ReasonCodes)
			for _, rc := range unsuback.ReasonCodes {
				if rc.IsError() {
					return &ReasonError{Code: rc}
				}
			}
			return nil
		}
		if derr := c.dispatchPacket(p); derr != nil {
			return derr
		}
	}
}

// allocateTransientID picks a packet identifier for a SUBSCRIBE/UNSUBSCRIBE,
// reusing the qos engine's collision-free allocator without reserving a
// tracked QoS1/2 slot; the caller already holds mu.
func (c *Client) allocateTransientID() (uint16, error) {
	if c.engine == nil {
		return 0, qos.ErrIDsExhausted
	}
	return c.engine.AllocateTransientID()
}

// Publish sends an application message. QoS0 requires an active session
// (there is no storage mechanism to hold it otherwise); QoS1/2 publishes
// are persisted regardless of connection state once a first Connect has
// run, and replayed on the next successful clean-start=false Connect.
// Before any Connect they return NotConnected.
//
// Safe to call concurrently with EventLoop and with other Publish calls.
func (c *Client) Publish(topic string, payload []byte, qosLevel uint8, retain bool, props *Properties) error {
	if err := validatePublishTopic(topic); err != nil {
		return err
	}
	if err := validatePayload(payload, props); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if qosLevel == wire.QoS0 {
		if c.state != stateConnected {
			return NotConnected
		}
		pkt := &wire.PublishPacket{QoS: wire.QoS0, Retain: retain, Topic: topic, Payload: payload, Properties: props}
		if err := c.writeLocked(pkt); err != nil {
			c.teardownErr = err
		}
		return nil
	}

	if c.engine == nil {
		return NotConnected
	}

	id, err := c.engine.PreparePublish(qosLevel)
	if err != nil {
		if err == qos.ErrIDsExhausted {
			return WaitingForResult
		}
		return TranscientPacket
	}

	pkt := &wire.PublishPacket{
		QoS:        qosLevel,
		Retain:     retain,
		Topic:      topic,
		PacketID:   id,
		Payload:    payload,
		Properties: props,
	}
	body := wire.Encode(pkt)
	if err := c.engine.SaveOutbound(id, body); err != nil {
		c.engine.Abandon(id, qosLevel)
		return StorageError
	}

	if c.state != stateConnected {
		// Persisted for replay on the next connect; nothing to send now.
		return nil
	}
	if err := c.writeBytesLocked(body); err != nil {
		c.teardownErr = err
	}
	return nil
}

// Disconnect sends a DISCONNECT with the given reason and tears down the
// transport.
func (c *Client) Disconnect(reasonCode wire.ReasonCode, props *Properties) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == stateDisconnected {
		return nil
	}
	_ = c.writeLocked(&wire.DisconnectPacket{ReasonCode: reasonCode, Properties: props})
	c.teardownLocked()
	return nil
}

// EventLoop reads and dispatches packets until ctx is canceled or the
// transport fails. Call it from one goroutine only; Publish may run
// concurrently from any number of other goroutines.
func (c *Client) EventLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		c.mu.Lock()
		pending := c.teardownErr
		c.teardownErr = nil
		c.mu.Unlock()
		if pending != nil {
			c.teardown(pending)
			return pending
		}

		if err := c.maybeSendPing(); err != nil {
			c.teardown(err)
			return err
		}
		if c.pingExpired() {
			err := fmt.Errorf("%w: no PINGRESP within keep-alive", TimedOut)
			c.teardown(err)
			return err
		}

		pkt, err := c.readPacket(ctx, 1*time.Second)
		if err != nil {
			if isTimeout(err) {
				continue
			}
			c.teardown(err)
			return err
		}
		if derr := c.dispatchPacket(pkt); derr != nil {
			return derr
		}
	}
}

// maybeSendPing sends a PINGREQ once at least keepAlive/2 has elapsed since
// the last outbound write, per the half-interval keep-alive rule, and marks
// the session as awaiting a PINGRESP so pingExpired can detect silence.
func (c *Client) maybeSendPing() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != stateConnected || c.keepAlive == 0 {
		return nil
	}
	if c.awaitingPingResp {
		return nil
	}
	interval := time.Duration(c.keepAlive) * time.Second / 2
	if time.Since(c.lastSend) < interval {
		return nil
	}
	if err := c.writeLocked(wire.PingReqPacket{}); err != nil {
		return err
	}
	c.awaitingPingResp = true
	c.pingSentAt = time.Now()
	return nil
}

// pingExpired reports whether a PINGREQ has gone unanswered for keepAlive,
// the liveness half of the keep-alive contract: a broker that accepts the
// socket but goes silent must be detected and reported as TimedOut rather
// than leaving EventLoop spinning on read timeouts forever.
func (c *Client) pingExpired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != stateConnected || c.keepAlive == 0 || !c.awaitingPingResp {
		return false
	}
	return time.Since(c.pingSentAt) >= time.Duration(c.keepAlive)*time.Second
}

// dispatchPacket handles one decoded packet from the event loop (or from a
// Subscribe/Unsubscribe call's inline wait), invoking Handler callbacks
// without holding mu so a callback may itself call back into Publish.
func (c *Client) dispatchPacket(pkt wire.Packet) error {
	switch p := pkt.(type) {
	case *wire.PublishPacket:
		return c.handlePublish(p)
	case *wire.AckPacket:
		return c.handleAck(p)
	case *wire.AuthPacket:
		if !c.dispatchAuth(p.ReasonCode, p.Properties) {
			err := &ReasonError{Code: wire.NotAuthorized}
			c.teardown(err)
			return err
		}
		return nil
	case wire.PingRespPacket:
		c.mu.Lock()
		c.awaitingPingResp = false
		c.mu.Unlock()
		return nil
	case *wire.DisconnectPacket:
		err := &ReasonError{Code: p.ReasonCode}
		c.teardown(err)
		return err
	case *wire.SubAckPacket, *wire.UnsubAckPacket:
		c.logger.Debug("acknowledgement received outside of an inline wait")
		return nil
	default:
		return nil
	}
}

func (c *Client) handlePublish(p *wire.PublishPacket) error {
	if p.Topic == "" {
		// A PUBLISH with no topic substitutes a Topic Alias for it; this
		// client keeps no outbound-assigned alias table to resolve against,
		// so treat it the same as a broker using a feature it never
		// advertised support for.
		err := &ReasonError{Code: wire.TopicAliasInvalid}
		_ = c.writePacket(&wire.DisconnectPacket{ReasonCode: wire.TopicAliasInvalid})
		c.teardown(err)
		return err
	}
	switch p.QoS {
	case wire.QoS0:
		c.handler.MessageReceived(p.Topic, p.Payload, 0, p.Properties)
		return nil
	case wire.QoS1:
		c.handler.MessageReceived(p.Topic, p.Payload, p.PacketID, p.Properties)
		return c.writePacket(&wire.AckPacket{PacketType: wire.PUBACK, PacketID: p.PacketID, ReasonCode: wire.Success})
	case wire.QoS2:
		c.mu.Lock()
		if isNew := c.engine.OnInboundPublish(p.PacketID); isNew {
			if c.qos2Inbound == nil {
				c.qos2Inbound = make(map[uint16]*wire.PublishPacket)
			}
			c.qos2Inbound[p.PacketID] = p
		}
		c.mu.Unlock()
		return c.writePacket(&wire.AckPacket{PacketType: wire.PUBREC, PacketID: p.PacketID, ReasonCode: wire.Success})
	}
	return nil
}

func (c *Client) handleAck(p *wire.AckPacket) error {
	switch p.PacketType {
	case wire.PUBACK:
		c.mu.Lock()
		c.engine.OnPubAck(p.PacketID)
		c.mu.Unlock()
		return nil
	case wire.PUBREC:
		c.mu.Lock()
		ok := c.engine.OnPubRec(p.PacketID)
		var rel *wire.AckPacket
		var storeErr error
		if ok {
			rel = &wire.AckPacket{PacketType: wire.PUBREL, PacketID: p.PacketID, ReasonCode: wire.Success}
			storeErr = c.engine.ReplaceOutbound(p.PacketID, wire.Encode(rel))
		}
		c.mu.Unlock()
		if storeErr != nil {
			// The engine already advanced this id to awaiting-PUBCOMP but
			// storage still holds the old PUBLISH bytes: a reconnect replay
			// would resend stale PUBLISH bytes mislabeled as a PUBREL.
			// Tearing down is safer than replaying a desynced handshake.
			err := fmt.Errorf("%w: %v", StorageError, storeErr)
			c.teardown(err)
			return err
		}
		if rel != nil {
			return c.writePacket(rel)
		}
		return nil
	case wire.PUBREL:
		c.mu.Lock()
		deliver, tracked := c.engine.OnPubRel(p.PacketID)
		var msg *wire.PublishPacket
		if deliver {
			msg = c.qos2Inbound[p.PacketID]
			delete(c.qos2Inbound, p.PacketID)
		}
		c.mu.Unlock()

		reason := wire.Success
		if !tracked {
			reason = wire.PacketIdentifierNotFound
		}
		if deliver && msg != nil {
			c.handler.MessageReceived(msg.Topic, msg.Payload, msg.PacketID, msg.Properties)
		}
		return c.writePacket(&wire.AckPacket{PacketType: wire.PUBCOMP, PacketID: p.PacketID, ReasonCode: reason})
	case wire.PUBCOMP:
		c.mu.Lock()
		c.engine.OnPubComp(p.PacketID)
		c.mu.Unlock()
		return nil
	}
	return nil
}

func (c *Client) writePacket(pkt wire.Packet) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeLocked(pkt)
}

func (c *Client) writeLocked(pkt wire.Packet) error {
	return c.writeBytesLocked(wire.Encode(pkt))
}

func (c *Client) writeBytes(body []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeBytesLocked(body)
}

func (c *Client) writeBytesLocked(body []byte) error {
	if c.transport == nil {
		return NotConnected
	}
	if _, err := c.transport.Send(body, c.defaultTTL); err != nil {
		return fmt.Errorf("%w: %v", NetworkError, err)
	}
	c.lastSend = time.Now()
	return nil
}

func (c *Client) readPacket(ctx context.Context, timeout time.Duration) (wire.Packet, error) {
	c.mu.Lock()
	tr := c.transport
	maxSize := c.maxPacketSize
	c.mu.Unlock()
	if tr == nil {
		return nil, NotConnected
	}

	if c.recvScratch == nil {
		c.recvScratch = make([]byte, 4096)
	}
	buf := c.recvScratch
	for {
		c.mu.Lock()
		pkt, n, derr := wire.Decode(c.recvBuf, maxSize)
		if derr == nil {
			c.recvBuf = append([]byte(nil), c.recvBuf[n:]...)
			c.mu.Unlock()
			return pkt, nil
		}
		c.mu.Unlock()
		if derr != wire.ErrIncomplete {
			if derr == wire.ErrBadProperties {
				return nil, fmt.Errorf("%w: %v", BadProperties, derr)
			}
			return nil, fmt.Errorf("%w: %v", NetworkError, derr)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		n, err := tr.Recv(buf, timeout)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.recvBuf = append(c.recvBuf, buf[:n]...)
		c.mu.Unlock()
	}
}

func isTimeout(err error) bool {
	type timeouter interface{ Timeout() bool }
	if t, ok := err.(timeouter); ok {
		return t.Timeout()
	}
	return false
}

// teardown closes the transport and reports the loss to Handler.
// ConnectionLost, always from the goroutine that called it (the event
// loop, or Connect/Subscribe/Unsubscribe before the event loop started).
func (c *Client) teardown(err error) {
	c.mu.Lock()
	c.teardownLocked()
	c.mu.Unlock()
	c.handler.ConnectionLost(err)
}

func (c *Client) teardownLocked() {
	if c.transport != nil {
		_ = c.transport.Close()
		c.transport = nil
	}
	c.state = stateDisconnected
	c.awaitingPingResp = false
}
