package mqttc

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/riftio/mqttc/transport"
	"github.com/riftio/mqttc/wire"
)

// pipeTransport adapts a pre-established net.Conn (one half of a net.Pipe)
// to transport.Transport, so Client tests never touch the network.
type pipeTransport struct {
	conn net.Conn
}

func (p *pipeTransport) Connect(ctx context.Context, host string, port uint16, cfg transport.Config) error {
	return nil
}

func (p *pipeTransport) Send(b []byte, timeout time.Duration) (int, error) {
	if timeout > 0 {
		p.conn.SetWriteDeadline(time.Now().Add(timeout))
	}
	return p.conn.Write(b)
}

func (p *pipeTransport) Recv(b []byte, timeout time.Duration) (int, error) {
	if timeout > 0 {
		p.conn.SetReadDeadline(time.Now().Add(timeout))
	}
	return p.conn.Read(b)
}

func (p *pipeTransport) Close() error { return p.conn.Close() }

// testBroker is a minimal, single-session fake broker driving the other
// half of the pipe: it decodes whatever the client writes and lets the
// test script canned responses back.
type testBroker struct {
	t    *testing.T
	conn net.Conn

	mu  sync.Mutex
	buf []byte
}

func newTestClientAndBroker(t *testing.T, h Handler, opts ...Option) (*Client, *testBroker) {
	t.Helper()
	clientConn, brokerConn := net.Pipe()
	allOpts := append([]Option{WithTransport(&pipeTransport{conn: clientConn})}, opts...)
	c := New(h, allOpts...)
	b := &testBroker{t: t, conn: brokerConn}
	return c, b
}

func (b *testBroker) readPacket() (wire.Packet, error) {
	buf := make([]byte, 4096)
	for {
		if pkt, n, err := wire.Decode(b.buf, 0); err == nil {
			b.buf = append([]byte(nil), b.buf[n:]...)
			return pkt, nil
		} else if err != wire.ErrIncomplete {
			return nil, err
		}
		b.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		n, err := b.conn.Read(buf)
		if err != nil {
			return nil, err
		}
		b.buf = append(b.buf, buf[:n]...)
	}
}

func (b *testBroker) write(pkt wire.Packet) {
	b.conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	if _, err := b.conn.Write(wire.Encode(pkt)); err != nil {
		b.t.Fatalf("broker write: %v", err)
	}
}

type recordingHandler struct {
	DefaultHandler

	mu       sync.Mutex
	messages []string
	lost     error
}

func (h *recordingHandler) MessageReceived(topic string, payload []byte, id uint16, props *wire.Properties) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, topic+":"+string(payload))
}

func (h *recordingHandler) ConnectionLost(reason error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lost = reason
}

func TestConnectSuccess(t *testing.T) {
	h := &recordingHandler{}
	c, b := newTestClientAndBroker(t, h)

	done := make(chan error, 1)
	go func() {
		done <- c.Connect(context.Background(), ConnectOptions{ClientID: "test", CleanStart: true})
	}()

	pkt, err := b.readPacket()
	if err != nil {
		t.Fatalf("broker read CONNECT: %v", err)
	}
	if _, ok := pkt.(*wire.ConnectPacket); !ok {
		t.Fatalf("expected CONNECT, got %T", pkt)
	}
	b.write(&wire.ConnAckPacket{ReasonCode: wire.Success})

	if err := <-done; err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if c.state != stateConnected {
		t.Fatalf("expected connected state, got %v", c.state)
	}
}

func TestConnectRejected(t *testing.T) {
	h := &recordingHandler{}
	c, b := newTestClientAndBroker(t, h)

	done := make(chan error, 1)
	go func() {
		done <- c.Connect(context.Background(), ConnectOptions{ClientID: "test", CleanStart: true})
	}()

	if _, err := b.readPacket(); err != nil {
		t.Fatalf("broker read CONNECT: %v", err)
	}
	b.write(&wire.ConnAckPacket{ReasonCode: wire.NotAuthorized})

	err := <-done
	if err == nil {
		t.Fatal("expected Connect to fail on rejected CONNACK")
	}
	var rerr *ReasonError
	if !asReasonError(err, &rerr) || rerr.Code != wire.NotAuthorized {
		t.Fatalf("expected ReasonError(NotAuthorized), got %v", err)
	}
}

func asReasonError(err error, target **ReasonError) bool {
	re, ok := err.(*ReasonError)
	if !ok {
		return false
	}
	*target = re
	return true
}

func TestPublishQoS0RequiresConnection(t *testing.T) {
	h := &recordingHandler{}
	c := New(h)
	if err := c.Publish("a/b", []byte("x"), wire.QoS0, false, nil); err != NotConnected {
		t.Fatalf("expected NotConnected, got %v", err)
	}
}

func TestPublishQoS1SendsAndTracksUntilAck(t *testing.T) {
	h := &recordingHandler{}
	c, b := newTestClientAndBroker(t, h)

	done := make(chan error, 1)
	go func() {
		done <- c.Connect(context.Background(), ConnectOptions{ClientID: "test", CleanStart: true})
	}()
	if _, err := b.readPacket(); err != nil {
		t.Fatalf("broker read CONNECT: %v", err)
	}
	b.write(&wire.ConnAckPacket{ReasonCode: wire.Success})
	if err := <-done; err != nil {
		t.Fatalf("Connect: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	loopDone := make(chan error, 1)
	go func() { loopDone <- c.EventLoop(ctx) }()
	defer func() { cancel(); <-loopDone }()

	// net.Pipe is unbuffered: Publish's write completes only once the
	// broker side reads, so publish from another goroutine.
	pubDone := make(chan error, 1)
	go func() {
		pubDone <- c.Publish("sensors/temp", []byte("22.5"), wire.QoS1, false, nil)
	}()

	pkt, err := b.readPacket()
	if err != nil {
		t.Fatalf("broker read PUBLISH: %v", err)
	}
	if err := <-pubDone; err != nil {
		t.Fatalf("Publish: %v", err)
	}
	pub, ok := pkt.(*wire.PublishPacket)
	if !ok {
		t.Fatalf("expected PUBLISH, got %T", pkt)
	}
	if pub.Topic != "sensors/temp" || string(pub.Payload) != "22.5" {
		t.Fatalf("unexpected publish contents: %+v", pub)
	}
	b.write(&wire.AckPacket{PacketType: wire.PUBACK, PacketID: pub.PacketID, ReasonCode: wire.Success})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		_, slotErr := c.engine.PreparePublish(wire.QoS1)
		c.mu.Unlock()
		if slotErr == nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("expected slot freed after PUBACK")
}

func TestEventLoopDeliversQoS1Publish(t *testing.T) {
	h := &recordingHandler{}
	c, b := newTestClientAndBroker(t, h)

	done := make(chan error, 1)
	go func() {
		done <- c.Connect(context.Background(), ConnectOptions{ClientID: "test", CleanStart: true})
	}()
	if _, err := b.readPacket(); err != nil {
		t.Fatalf("broker read CONNECT: %v", err)
	}
	b.write(&wire.ConnAckPacket{ReasonCode: wire.Success})
	if err := <-done; err != nil {
		t.Fatalf("Connect: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	loopDone := make(chan error, 1)
	go func() { loopDone <- c.EventLoop(ctx) }()

	b.write(&wire.PublishPacket{QoS: wire.QoS1, Topic: "a/b", PacketID: 5, Payload: []byte("hi")})

	if _, err := b.readPacket(); err != nil {
		t.Fatalf("broker read PUBACK: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		h.mu.Lock()
		n := len(h.messages)
		h.mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	<-loopDone

	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.messages) != 1 || h.messages[0] != "a/b:hi" {
		t.Fatalf("expected one delivered message a/b:hi, got %v", h.messages)
	}
}

func TestEventLoopQoS2DeliversOnPubrelNotOnPublish(t *testing.T) {
	h := &recordingHandler{}
	c, b := newTestClientAndBroker(t, h)

	done := make(chan error, 1)
	go func() {
		done <- c.Connect(context.Background(), ConnectOptions{ClientID: "test", CleanStart: true})
	}()
	if _, err := b.readPacket(); err != nil {
		t.Fatalf("broker read CONNECT: %v", err)
	}
	b.write(&wire.ConnAckPacket{ReasonCode: wire.Success})
	if err := <-done; err != nil {
		t.Fatalf("Connect: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	loopDone := make(chan error, 1)
	go func() { loopDone <- c.EventLoop(ctx) }()

	b.write(&wire.PublishPacket{QoS: wire.QoS2, Topic: "a/b", PacketID: 9, Payload: []byte("hi")})
	if _, err := b.readPacket(); err != nil {
		t.Fatalf("broker read PUBREC: %v", err)
	}

	h.mu.Lock()
	n := len(h.messages)
	h.mu.Unlock()
	if n != 0 {
		t.Fatalf("expected no delivery before PUBREL, got %v", h.messages)
	}

	b.write(&wire.AckPacket{PacketType: wire.PUBREL, PacketID: 9, ReasonCode: wire.Success})
	if _, err := b.readPacket(); err != nil {
		t.Fatalf("broker read PUBCOMP: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		h.mu.Lock()
		n := len(h.messages)
		h.mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	<-loopDone

	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.messages) != 1 || h.messages[0] != "a/b:hi" {
		t.Fatalf("expected exactly one delivery after PUBREL, got %v", h.messages)
	}
}
