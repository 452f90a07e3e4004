package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// Event types published on SOS transitions.
const (
	SOSStarted   = "sos.started"
	SOSCancelled = "sos.cancelled"
	SOSResolved  = "sos.resolved"
)

// Event is the payload pushed to subscribers.
type Event struct {
	Type       string      `json:"type"`
	UserID     string      `json:"userId"`
	OccurredAt time.Time   `json:"occurredAt"`
	Data       interface{} `json:"data,omitempty"`
}

// Publisher fans events out to subscribers.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close()
}

// NopPublisher discards events.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close()                               {}

// MQTTOptions configures the broker connection.
type MQTTOptions struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
}

// MQTTPublisher publishes events to "<prefix>/<userId>/<type>".
type MQTTPublisher struct {
	client mqtt.Client
	prefix string
	log    *zap.Logger
}

// NewMQTTPublisher connects to the broker.
func NewMQTTPublisher(opts MQTTOptions, log *zap.Logger) (*MQTTPublisher, error) {
	co := mqtt.NewClientOptions()
	co.AddBroker(opts.Broker)
	co.SetClientID(opts.ClientID)
	if opts.Username != "" {
		co.SetUsername(opts.Username)
	}
	if opts.Password != "" {
		co.SetPassword(opts.Password)
	}
	co.SetAutoReconnect(true)
	co.SetCleanSession(true)
	co.SetConnectTimeout(10 * time.Second)
	co.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Warn("MQTT connection lost", zap.Error(err))
	})

	client := mqtt.NewClient(co)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to MQTT broker: %w", token.Error())
	}

	return &MQTTPublisher{
		client: client,
		prefix: strings.TrimRight(opts.TopicPrefix, "/"),
		log:    log,
	}, nil
}

// Topic returns the topic an event is published on.
func Topic(prefix string, event Event) string {
	return fmt.Sprintf("%s/%s/%s", prefix, event.UserID, event.Type)
}

// Publish sends the event with QoS 1, waiting until the context is done at most.
func (p *MQTTPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	topic := Topic(p.prefix, event)
	token := p.client.Publish(topic, 1, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	p.log.Debug("event published", zap.String("topic", topic))
	return nil
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}
