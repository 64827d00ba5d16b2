// Package mqttc is a minimal, embeddable MQTT v5.0 client.
//
// It is built around a single-reader event loop rather than the
// background-goroutine-per-connection model common to larger client
// libraries: one goroutine drives Connect and then EventLoop in a tight
// read/dispatch cycle, while any number of other goroutines call Publish
// concurrently. There is no Token type and no per-call channel; Subscribe
// and Unsubscribe block the calling goroutine until their acknowledgement
// arrives, and Auth returns once its AUTH packet is written.
//
// # Quick start
//
//	type handler struct{ mqttc.DefaultHandler }
//
//	func (h *handler) MessageReceived(topic string, payload []byte, id uint16, props *wire.Properties) {
//	    fmt.Printf("%s: %s\n", topic, payload)
//	}
//
//	c := mqttc.New(&handler{})
//	if err := c.Connect(ctx, mqttc.ConnectOptions{
//	    Host: "localhost", Port: 1883, ClientID: "sensor-01", CleanStart: true,
//	}); err != nil {
//	    log.Fatal(err)
//	}
//	c.Subscribe("sensors/+/temperature", wire.QoS1, nil)
//	go c.EventLoop(ctx)
//	c.Publish("sensors/kitchen/temperature", []byte("22.5"), wire.QoS1, false, nil)
//
// # Reentrancy
//
// Publish is the only method safe to call from a goroutine other than the
// one driving EventLoop; a publish that hits a transport error is recorded
// and reported to Handler.ConnectionLost on the event loop's next pass
// rather than torn down synchronously, so a publisher never races the
// reader over who closes the connection. Subscribe, Unsubscribe, Auth, and
// Disconnect assume the same-goroutine-as-EventLoop contract instead, since
// nothing else contends with them for the transport.
//
// # QoS and persistence
//
// QoS 1 and QoS 2 publishes are assigned a packet identifier and persisted
// to a PacketStorage (an in-memory ring buffer by default, a disk-backed
// store via storage.NewFile) before being written to the wire, so a
// reconnect with clean-start=false can retransmit anything left
// unacknowledged, with the duplicate flag set. A reconnect with
// clean-start=true discards that state instead.
//
// # Enhanced authentication
//
// WithAuthenticator wires a challenge/response implementation (scram.New
// for SCRAM-SHA-256) into the CONNECT/AUTH exchange; Handler.AuthReceived
// still runs for every continuation, and returning false from it rejects
// the exchange regardless of what the Authenticator would have answered.
package mqttc
