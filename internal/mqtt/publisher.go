package mqtt

import (
	"context"
	"fmt"
	"log/slog"

	"cloudpico-analysis/internal/pathrecord"
)

// Publisher sends documents to a single topic.
type Publisher struct {
	*conn
	topic string
}

func NewPublisher(o Options, topic string, logger *slog.Logger) (*Publisher, error) {
	if topic == "" {
		return nil, fmt.Errorf("publisher: topic is required")
	}
	return &Publisher{conn: newConn(o, logger), topic: topic}, nil
}

func (p *Publisher) Connect(ctx context.Context) error {
	return p.connect(ctx)
}

// Publish sends rec as compact JSON at the configured QoS.
func (p *Publisher) Publish(rec *pathrecord.Record) error {
	if !p.IsConnected() {
		return ErrNotConnected
	}

	payload := []byte(rec.String())
	if err := wait(p.client.Publish(p.topic, p.opts.QoS, false, payload), "publish to "+p.topic); err != nil {
		p.logger.Error("failed to publish document", "topic", p.topic, "error", err)
		return err
	}

	p.logger.Debug("published document", "topic", p.topic, "size", len(payload))
	return nil
}

// Disconnect closes the connection. It is safe to call more than once.
func (p *Publisher) Disconnect() {
	p.disconnect(nil)
	p.logger.Info("mqtt publisher disconnected")
}
