// Command mqttc-pub publishes one or more messages to an MQTT v5 broker and
// exits, fanning out concurrent publishes across goroutines to exercise the
// client's reentrancy contract (Publish is safe to call from any number of
// goroutines while the event loop runs).
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/riftio/mqttc"
	"github.com/riftio/mqttc/wire"
)

func main() {
	var (
		broker   = flag.String("broker", "localhost:1883", "MQTT broker host:port")
		clientID = flag.String("id", "mqttc-pub", "MQTT client id")
		topic    = flag.String("topic", "mqttc/example", "topic to publish to")
		message  = flag.String("message", "hello from mqttc-pub", "payload to publish")
		qos      = flag.Int("qos", 1, "QoS level (0, 1, or 2)")
		count    = flag.Int("count", 1, "number of messages to publish concurrently")
	)
	flag.Parse()

	host, portStr, ok := strings.Cut(*broker, ":")
	if !ok {
		log.Fatalf("mqttc-pub: -broker must be host:port, got %q", *broker)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		log.Fatalf("mqttc-pub: invalid port in -broker: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	handler := &mqttc.DefaultHandler{Logger: logger, MaxUnACKedPacketsValue: *count}
	client := mqttc.New(handler, mqttc.WithLogger(logger))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := client.Connect(ctx, mqttc.ConnectOptions{
		Host:       host,
		Port:       uint16(port),
		ClientID:   *clientID,
		CleanStart: true,
		KeepAlive:  60,
	}); err != nil {
		log.Fatalf("mqttc-pub: connect: %v", err)
	}

	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()
	go func() {
		if err := client.EventLoop(loopCtx); err != nil && loopCtx.Err() == nil {
			logger.Warn("event loop stopped", "error", err)
		}
	}()

	g, _ := errgroup.WithContext(ctx)
	for i := 0; i < *count; i++ {
		i := i
		g.Go(func() error {
			payload := *message
			if *count > 1 {
				payload = payload + " #" + strconv.Itoa(i)
			}
			return client.Publish(*topic, []byte(payload), uint8(*qos), false, nil)
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatalf("mqttc-pub: publish: %v", err)
	}

	if err := client.Disconnect(wire.NormalDisconnection, nil); err != nil {
		log.Fatalf("mqttc-pub: disconnect: %v", err)
	}
}
