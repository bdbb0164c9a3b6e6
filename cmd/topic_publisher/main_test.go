package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"cloudpico-analysis/internal/cli"
	"cloudpico-analysis/internal/credentials"
	"cloudpico-analysis/internal/mqtt"
	"cloudpico-analysis/internal/pathrecord"
)

type fakePublisher struct {
	opts         mqtt.Options
	topic        string
	connectErr   error
	publishErr   error
	published    []string
	disconnected bool
}

func (f *fakePublisher) Connect(context.Context) error { return f.connectErr }

func (f *fakePublisher) Publish(rec *pathrecord.Record) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, rec.String())
	return nil
}

func (f *fakePublisher) Disconnect() { f.disconnected = true }

func withFake(t *testing.T, fake *fakePublisher) string {
	t.Helper()
	credsPath := filepath.Join(t.TempDir(), "auth.json")
	t.Setenv("CREDENTIALS_PATH", credsPath)
	t.Setenv("APP_ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("MQTT_BROKER", "broker.test")

	orig := newPublisher
	newPublisher = func(o mqtt.Options, topic string, _ *slog.Logger) (publisher, error) {
		fake.opts, fake.topic = o, topic
		return fake, nil
	}
	t.Cleanup(func() { newPublisher = orig })
	return credsPath
}

func TestRun_PublishesDocuments(t *testing.T) {
	fake := &fakePublisher{}
	withFake(t, fake)

	input := "{\"val\": 1}\n\nbroken\n{\"val\":{\"tmp\":2.50}}\n"
	var stderr bytes.Buffer
	err := run(context.Background(), []string{"-t", "south-coast-science-dev/climate", "-v"}, strings.NewReader(input), &stderr)
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}

	want := []string{`{"val":1}`, `{"val":{"tmp":2.50}}`}
	if strings.Join(fake.published, "|") != strings.Join(want, "|") {
		t.Errorf("published = %q, want %q", fake.published, want)
	}
	if fake.topic != "south-coast-science-dev/climate" || fake.opts.Broker != "broker.test" {
		t.Errorf("topic/opts = %q/%+v", fake.topic, fake.opts)
	}
	if fake.opts.Username != "" {
		t.Errorf("Username = %q without stored credentials", fake.opts.Username)
	}
	if !fake.disconnected {
		t.Error("publisher not disconnected")
	}
	if !strings.Contains(stderr.String(), "topic_publisher: documents: 2 published: 2\n") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestRun_UsesStoredCredentials(t *testing.T) {
	fake := &fakePublisher{}
	path := withFake(t, fake)
	auth := credentials.APIAuth{OrgID: "org", APIKey: "099add97-6e89-4801-8d12-dd617797cd3b"}
	if err := credentials.NewStore(path).Save(auth); err != nil {
		t.Fatal(err)
	}

	if err := run(context.Background(), []string{"-t", "x"}, strings.NewReader(""), &bytes.Buffer{}); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if fake.opts.Username != auth.OrgID || fake.opts.Password != auth.APIKey {
		t.Errorf("opts = %+v", fake.opts)
	}
}

func TestRun_ConnectFailure(t *testing.T) {
	fake := &fakePublisher{connectErr: errors.New("connection refused")}
	withFake(t, fake)

	err := run(context.Background(), []string{"-t", "x"}, strings.NewReader(""), &bytes.Buffer{})
	if code := cli.Code(appName, err, &bytes.Buffer{}); code != cli.ExitFailure {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !fake.disconnected {
		t.Error("publisher not disconnected after failed connect")
	}
}

func TestRun_PublishFailure(t *testing.T) {
	fake := &fakePublisher{publishErr: mqtt.ErrNotConnected}
	withFake(t, fake)

	err := run(context.Background(), []string{"-t", "x"}, strings.NewReader("{\"a\":1}\n"), &bytes.Buffer{})
	if !errors.Is(err, mqtt.ErrNotConnected) {
		t.Fatalf("run() error = %v, want ErrNotConnected", err)
	}
}

func TestRun_MissingTopic(t *testing.T) {
	withFake(t, &fakePublisher{})
	err := run(context.Background(), nil, strings.NewReader(""), &bytes.Buffer{})
	if code := cli.Code(appName, err, &bytes.Buffer{}); code != cli.ExitUsage {
		t.Fatalf("exit code = %d, want %d", code, cli.ExitUsage)
	}
}
