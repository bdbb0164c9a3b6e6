package mqtt

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"cloudpico-analysis/internal/config"
	"cloudpico-analysis/internal/credentials"
	"cloudpico-analysis/internal/pathrecord"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testOptions() Options {
	return Options{Broker: "127.0.0.1", Port: 1, ClientID: "test", QoS: 1}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Config{MQTTBroker: "broker.local", MQTTPort: 8883, MQTTClientID: "scs", MQTTQoS: 2}

	o := OptionsFromConfig(cfg, nil)
	if o.Username != "" || o.Password != "" {
		t.Errorf("credentials set without auth: %+v", o)
	}
	if got := o.URL(); got != "tcp://broker.local:8883" {
		t.Errorf("URL() = %q, want tcp://broker.local:8883", got)
	}
	if o.QoS != 2 || o.ClientID != "scs" {
		t.Errorf("Options = %+v", o)
	}

	auth := &credentials.APIAuth{OrgID: "org", APIKey: "key"}
	o = OptionsFromConfig(cfg, auth)
	if o.Username != "org" || o.Password != "key" {
		t.Errorf("Username/Password = %q/%q, want org/key", o.Username, o.Password)
	}
}

func TestUniqueClientID(t *testing.T) {
	a, b := uniqueClientID("scs"), uniqueClientID("scs")
	if a == b {
		t.Fatalf("uniqueClientID returned %q twice", a)
	}
	if !strings.HasPrefix(a, "scs-") || len(a) != len("scs-")+8 {
		t.Errorf("uniqueClientID() = %q", a)
	}
}

func TestNew_RequiresTopic(t *testing.T) {
	if _, err := NewPublisher(testOptions(), "", discardLogger()); err == nil {
		t.Error("NewPublisher() error = nil, want non-nil")
	}
	handler := func(string, *pathrecord.Record) error { return nil }
	if _, err := NewSubscriber(testOptions(), "", handler, discardLogger()); err == nil {
		t.Error("NewSubscriber() error = nil, want non-nil")
	}
	if _, err := NewSubscriber(testOptions(), "t", nil, discardLogger()); err == nil {
		t.Error("NewSubscriber(nil handler) error = nil, want non-nil")
	}
}

func TestPublish_NotConnected(t *testing.T) {
	p, err := NewPublisher(testOptions(), "samples", discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Publish(pathrecord.New()); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Publish() error = %v, want ErrNotConnected", err)
	}
}

func TestDisconnect_StopsConnect(t *testing.T) {
	p, err := NewPublisher(testOptions(), "samples", discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	p.Disconnect()
	p.Disconnect()

	if err := p.Connect(context.Background()); !errors.Is(err, ErrStopped) {
		t.Fatalf("Connect() after Disconnect error = %v, want ErrStopped", err)
	}
}

func TestSubscriber_HandleMessage(t *testing.T) {
	var got []string
	s, err := NewSubscriber(testOptions(), "samples", func(topic string, rec *pathrecord.Record) error {
		got = append(got, topic+" "+rec.String())
		return nil
	}, discardLogger())
	if err != nil {
		t.Fatal(err)
	}

	s.handleMessage("samples", []byte("{\"val\":\n 3.0}"))
	s.handleMessage("samples", []byte("not json"))
	s.handleMessage("samples", []byte(`[1,2]`))
	s.handleMessage("samples", []byte(`{"rec":"2019-01-01T00:00:00Z"}`))

	want := []string{
		`samples {"val":3.0}`,
		`samples {"rec":"2019-01-01T00:00:00Z"}`,
	}
	if len(got) != len(want) {
		t.Fatalf("handled %d messages, want %d: %q", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("message %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSubscriber_HandlerErrorDoesNotPanic(t *testing.T) {
	calls := 0
	s, err := NewSubscriber(testOptions(), "samples", func(string, *pathrecord.Record) error {
		calls++
		return errors.New("stdout closed")
	}, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	s.handleMessage("samples", []byte(`{"a":1}`))
	s.handleMessage("samples", []byte(`{"a":2}`))
	if calls != 2 {
		t.Errorf("handler calls = %d, want 2", calls)
	}
}
