// Command topic_subscriber writes each JSON document received on an MQTT
// topic to stdout, one per line, until interrupted.
//
//	topic_subscriber -t TOPIC [-v]
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"cloudpico-analysis/internal/cli"
	"cloudpico-analysis/internal/credentials"
	"cloudpico-analysis/internal/mqtt"
	"cloudpico-analysis/internal/pathrecord"
)

const appName = "topic_subscriber"

var version = "dev"

type subscriber interface {
	Connect(ctx context.Context) error
	Disconnect()
}

var newSubscriber = func(o mqtt.Options, topic string, h mqtt.Handler, logger *slog.Logger) (subscriber, error) {
	return mqtt.NewSubscriber(o, topic, h, logger)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(cli.Code(appName, err, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := cli.NewFlagSet(appName, "-t TOPIC [-v]", stderr)
	topic := fs.String("t", "", "topic to subscribe to")
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

	auth, err := credentials.NewStore(env.Config.CredentialsPath).LoadOptional()
	if err != nil {
		return cli.Failf(cli.ExitFailure, "%v", err)
	}

	var (
		mu       sync.Mutex
		received int
	)
	handler := func(_ string, rec *pathrecord.Record) error {
		mu.Lock()
		defer mu.Unlock()
		if _, err := fmt.Fprintln(stdout, rec); err != nil {
			return err
		}
		received++
		return nil
	}

	sub, err := newSubscriber(mqtt.OptionsFromConfig(env.Config, auth), *topic, handler, env.Logger)
	if err != nil {
		return err
	}

	if err := sub.Connect(ctx); err != nil {
		sub.Disconnect()
		if cli.Interrupted(err) {
			return nil
		}
		return cli.Failf(cli.ExitFailure, "%v", err)
	}

	<-ctx.Done()
	sub.Disconnect()

	if *verbose {
		mu.Lock()
		cli.Reportf(stderr, appName, "received: %d", received)
		mu.Unlock()
	}
	return nil
}
