// Command mqttc-sub subscribes to a topic filter on an MQTT v5 broker and
// prints every message it receives until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/riftio/mqttc"
	"github.com/riftio/mqttc/wire"
)

type printHandler struct {
	mqttc.DefaultHandler
}

func (h *printHandler) MessageReceived(topic string, payload []byte, packetID uint16, props *wire.Properties) {
	fmt.Printf("%s: %s\n", topic, payload)
}

func (h *printHandler) ConnectionLost(reason error) {
	log.Printf("mqttc-sub: connection lost: %v", reason)
}

func main() {
	var (
		broker   = flag.String("broker", "localhost:1883", "MQTT broker host:port")
		clientID = flag.String("id", "mqttc-sub", "MQTT client id")
		filter   = flag.String("filter", "mqttc/#", "topic filter to subscribe to")
		qos      = flag.Int("qos", 1, "requested QoS level (0, 1, or 2)")
	)
	flag.Parse()

	host, portStr, ok := strings.Cut(*broker, ":")
	if !ok {
		log.Fatalf("mqttc-sub: -broker must be host:port, got %q", *broker)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		log.Fatalf("mqttc-sub: invalid port in -broker: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	handler := &printHandler{DefaultHandler: mqttc.DefaultHandler{Logger: logger}}
	client := mqttc.New(handler, mqttc.WithLogger(logger))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := client.Connect(ctx, mqttc.ConnectOptions{
		Host:       host,
		Port:       uint16(port),
		ClientID:   *clientID,
		CleanStart: true,
		KeepAlive:  60,
	}); err != nil {
		log.Fatalf("mqttc-sub: connect: %v", err)
	}

	if err := client.Subscribe(*filter, uint8(*qos), nil); err != nil {
		log.Fatalf("mqttc-sub: subscribe: %v", err)
	}

	if err := client.EventLoop(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("mqttc-sub: event loop: %v", err)
	}

	_ = client.Disconnect(wire.NormalDisconnection, nil)
}
