// Package mqtt publishes and subscribes to sample documents on an MQTT broker.
package mqtt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"cloudpico-analysis/internal/config"
	"cloudpico-analysis/internal/credentials"
)

var (
	ErrStopped      = errors.New("mqtt client stopped")
	ErrNotConnected = errors.New("mqtt client not connected")
)

const (
	connectPoll    = 200 * time.Millisecond
	requestTimeout = 5 * time.Second
	quiesceMillis  = 250
)

// Options holds the broker connection settings.
type Options struct {
	Broker   string
	Port     int
	ClientID string
	QoS      byte
	Username string
	Password string
}

// OptionsFromConfig derives connection settings from cfg. When auth is not
// nil its org id and API key become the broker username and password.
func OptionsFromConfig(cfg config.Config, auth *credentials.APIAuth) Options {
	o := Options{
		Broker:   cfg.MQTTBroker,
		Port:     cfg.MQTTPort,
		ClientID: cfg.MQTTClientID,
		QoS:      cfg.MQTTQoS,
	}
	if auth != nil {
		o.Username = auth.OrgID
		o.Password = auth.APIKey
	}
	return o
}

// URL is the broker address in paho form.
func (o Options) URL() string {
	return fmt.Sprintf("tcp://%s:%d", o.Broker, o.Port)
}

// uniqueClientID suffixes the configured id so a publisher and a subscriber
// started from the same environment do not evict each other.
func uniqueClientID(base string) string {
	return base + "-" + uuid.NewString()[:8]
}

// conn is the connection lifecycle shared by Publisher and Subscriber.
type conn struct {
	client    mqtt.Client
	opts      Options
	logger    *slog.Logger
	mu        sync.RWMutex
	connected bool

	stopCh   chan struct{}
	stopOnce sync.Once

	// onConnect runs after every successful (re)connection.
	onConnect func(mqtt.Client)
}

func newConn(o Options, logger *slog.Logger) *conn {
	c := &conn{
		opts:   o,
		logger: logger,
		stopCh: make(chan struct{}),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(o.URL())
	opts.SetClientID(uniqueClientID(o.ClientID))
	if o.Username != "" {
		opts.SetUsername(o.Username)
		opts.SetPassword(o.Password)
	}

	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(client mqtt.Client) {
		c.setConnected(true)
		logger.Info("mqtt connected", "broker", o.Broker, "port", o.Port)
		if c.onConnect != nil {
			c.onConnect(client)
		}
	})

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		c.setConnected(false)
		logger.Warn("mqtt connection lost", "error", err)
	})

	c.client = mqtt.NewClient(opts)
	return c
}

// connect waits for the initial connection, honouring ctx and disconnect.
func (c *conn) connect(ctx context.Context) error {
	select {
	case <-c.stopCh:
		return ErrStopped
	default:
	}

	if c.IsConnected() {
		return nil
	}

	token := c.client.Connect()
	for {
		if token.WaitTimeout(connectPoll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			// The client runs the on-connect handler asynchronously.
			c.setConnected(true)
			return nil
		}

		select {
		case <-ctx.Done():
			c.client.Disconnect(0)
			return ctx.Err()
		case <-c.stopCh:
			c.client.Disconnect(0)
			return ErrStopped
		default:
		}
	}
}

// IsConnected returns whether the client is connected.
func (c *conn) IsConnected() bool {
	c.mu.RLock()
	connected := c.connected
	c.mu.RUnlock()
	return connected && c.client.IsConnected()
}

// disconnect is idempotent. After it returns, connect reports ErrStopped.
func (c *conn) disconnect(beforeClose func()) {
	c.stopOnce.Do(func() { close(c.stopCh) })

	if beforeClose != nil && c.IsConnected() {
		beforeClose()
	}
	if c.client != nil {
		c.client.Disconnect(quiesceMillis)
	}
	c.setConnected(false)
}

func (c *conn) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}

// wait blocks on token for at most requestTimeout.
func wait(token mqtt.Token, what string) error {
	if !token.WaitTimeout(requestTimeout) {
		return fmt.Errorf("%s: timeout", what)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	return nil
}
