// Command topic_publisher publishes each JSON document read from stdin to an
// MQTT topic. Stored API credentials, when present, authenticate the client.
//
//	topic_publisher -t TOPIC [-v]
package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"cloudpico-analysis/internal/cli"
	"cloudpico-analysis/internal/credentials"
	"cloudpico-analysis/internal/mqtt"
	"cloudpico-analysis/internal/pathrecord"
	"cloudpico-analysis/internal/stream"
)

const appName = "topic_publisher"

var version = "dev"

type publisher interface {
	Connect(ctx context.Context) error
	Publish(rec *pathrecord.Record) error
	Disconnect()
}

var newPublisher = func(o mqtt.Options, topic string, logger *slog.Logger) (publisher, error) {
	return mqtt.NewPublisher(o, topic, logger)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdin, os.Stderr)
	stop()
	os.Exit(cli.Code(appName, err, os.Stderr))
}

func run(ctx context.Context, args []string, stdin io.Reader, stderr io.Writer) error {
	fs := cli.NewFlagSet(appName, "-t TOPIC [-v]", stderr)
	topic := fs.String("t", "", "topic to publish to")
	verbose := fs.Bool("v", false, "report narrative to stderr")
	if err := cli.Parse(fs, args); err != nil {
		return err
	}
	if *topic == "" || fs.NArg() != 0 {
		return cli.UsageError(fs, "-t TOPIC is required")
	}

	env, err := cli.Setup(appName, version, stderr, *verbose)
	if err != nil {
		return err
	}
	logger := env.Logger

	auth, err := credentials.NewStore(env.Config.CredentialsPath).LoadOptional()
	if err != nil {
		return cli.Failf(cli.ExitFailure, "%v", err)
	}

	pub, err := newPublisher(mqtt.OptionsFromConfig(env.Config, auth), *topic, logger)
	if err != nil {
		return err
	}
	defer pub.Disconnect()

	if err := pub.Connect(ctx); err != nil {
		if cli.Interrupted(err) {
			return nil
		}
		return cli.Failf(cli.ExitFailure, "%v", err)
	}

	var documents, published int
	err = stream.Lines(ctx, stdin, func(line string) error {
		rec, err := pathrecord.Parse(line)
		if errors.Is(err, pathrecord.ErrEmpty) {
			return nil
		}
		if err != nil {
			logger.Warn("skipping malformed document", "error", err, "line", line)
			return nil
		}
		documents++

		if err := pub.Publish(rec); err != nil {
			return err
		}
		published++
		return nil
	})

	if *verbose {
		cli.Reportf(stderr, appName, "documents: %d published: %d", documents, published)
	}
	if cli.Interrupted(err) {
		return nil
	}
	return err
}
