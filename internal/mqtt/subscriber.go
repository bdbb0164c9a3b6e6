package mqtt

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"cloudpico-analysis/internal/pathrecord"
)

// Handler receives each well-formed document delivered on the topic.
type Handler func(topic string, rec *pathrecord.Record) error

// Subscriber delivers documents from a single topic to a Handler.
type Subscriber struct {
	*conn
	topic      string
	handler    Handler
	subscribed atomic.Bool
}

func NewSubscriber(o Options, topic string, handler Handler, logger *slog.Logger) (*Subscriber, error) {
	if topic == "" {
		return nil, fmt.Errorf("subscriber: topic is required")
	}
	if handler == nil {
		return nil, fmt.Errorf("subscriber: handler is required")
	}

	s := &Subscriber{conn: newConn(o, logger), topic: topic, handler: handler}
	s.onConnect = s.resubscribe
	return s, nil
}

// Connect establishes the connection and subscribes to the topic.
func (s *Subscriber) Connect(ctx context.Context) error {
	if err := s.connect(ctx); err != nil {
		return err
	}
	if err := s.subscribe(); err != nil {
		s.client.Disconnect(0)
		return err
	}
	return nil
}

func (s *Subscriber) subscribe() error {
	if !s.IsConnected() {
		return ErrNotConnected
	}
	if err := wait(s.client.Subscribe(s.topic, s.opts.QoS, s.onMessage), "subscribe to "+s.topic); err != nil {
		return err
	}
	s.subscribed.Store(true)
	s.logger.Info("subscribed to mqtt topic", "topic", s.topic, "qos", s.opts.QoS)
	return nil
}

// resubscribe restores the subscription after an automatic reconnect. Clean
// sessions drop subscriptions on the broker side.
func (s *Subscriber) resubscribe(client mqtt.Client) {
	if !s.subscribed.Load() {
		return
	}
	select {
	case <-s.stopCh:
		return
	default:
	}
	s.logger.Info("restoring mqtt subscription", "topic", s.topic)
	client.Subscribe(s.topic, s.opts.QoS, s.onMessage)
}

func (s *Subscriber) onMessage(_ mqtt.Client, msg mqtt.Message) {
	s.handleMessage(msg.Topic(), msg.Payload())
}

func (s *Subscriber) handleMessage(topic string, payload []byte) {
	s.logger.Debug("received mqtt message", "topic", topic, "size", len(payload))

	rec, err := pathrecord.Parse(string(payload))
	if err != nil {
		s.logger.Warn("failed to parse document",
			"topic", topic,
			"error", err,
			"payload", string(payload),
		)
		return
	}

	if err := s.handler(topic, rec); err != nil {
		s.logger.Error("message handler failed", "topic", topic, "error", err)
	}
}

// Disconnect unsubscribes and closes the connection. It is safe to call more
// than once.
func (s *Subscriber) Disconnect() {
	s.disconnect(func() {
		_ = wait(s.client.Unsubscribe(s.topic), "unsubscribe from "+s.topic)
	})
	s.logger.Info("mqtt subscriber disconnected")
}
