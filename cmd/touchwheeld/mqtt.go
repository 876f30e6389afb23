package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// mqttPublishTimeout bounds how long the sender waits for one publish.
const mqttPublishTimeout = 2 * time.Second

// mqttPublishClient is the part of mqtt.Client the publisher uses.
type mqttPublishClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// connectMQTT connects to the broker in cfg.
func connectMQTT(cfg MQTTConfig, logger *slog.Logger) (mqtt.Client, error) {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = defaultMQTTClientBase + "-" + uuid.NewString()[:8]
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Warn("mqtt connection lost", "error", err)
		}).
		SetOnConnectHandler(func(_ mqtt.Client) {
			logger.Info("mqtt connected", "broker", cfg.Broker, "client_id", clientID)
		})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.Broker, token.Error())
	}
	return client, nil
}

// mqttPublisher forwards events to a broker topic. Publish only enqueues; a
// single sender goroutine (Run) talks to the client, so a slow broker never
// stalls the poll loop. When the outbox is full, events are dropped.
type mqttPublisher struct {
	client mqttPublishClient
	topic  string
	qos    byte
	retain bool
	outbox chan []byte
	logger *slog.Logger
}

func newMQTTPublisher(client mqttPublishClient, cfg MQTTConfig, logger *slog.Logger) *mqttPublisher {
	size := cfg.Outbox
	if size <= 0 {
		size = defaultMQTTOutbox
	}
	return &mqttPublisher{
		client: client,
		topic:  cfg.Topic,
		qos:    byte(cfg.QoS),
		retain: cfg.Retain,
		outbox: make(chan []byte, size),
		logger: logger,
	}
}

// Publish enqueues events; readings are not published.
func (p *mqttPublisher) Publish(b WheelBroadcast) {
	if _, ok := b.(BroadcastEvent); !ok {
		return
	}
	_, msg, err := encodeBroadcast(b)
	if err != nil {
		p.logger.Warn("mqtt marshal failed", "error", err)
		return
	}
	select {
	case p.outbox <- msg:
	default:
		p.logger.Warn("mqtt outbox full, dropping event", "topic", p.topic)
	}
}

// Run sends queued messages until ctx is canceled.
func (p *mqttPublisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-p.outbox:
			token := p.client.Publish(p.topic, p.qos, p.retain, msg)
			if !token.WaitTimeout(mqttPublishTimeout) {
				p.logger.Warn("mqtt publish timed out", "topic", p.topic)
				continue
			}
			if err := token.Error(); err != nil {
				p.logger.Warn("mqtt publish failed", "topic", p.topic, "error", err)
			}
		}
	}
}
