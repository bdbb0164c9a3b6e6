// Command sample_archive stores sample documents in the SQLite archive and
// replays them in timestamp order.
//
//	sample_archive [-p REC_PATH] [-t TOPIC] [-v]
//	sample_archive -r [-s START] [-e END] [-v]
//
// Without -t documents are read from stdin; with -t they are received from
// the MQTT topic until interrupted.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"cloudpico-analysis/internal/archive"
	"cloudpico-analysis/internal/bounds"
	"cloudpico-analysis/internal/cli"
	"cloudpico-analysis/internal/credentials"
	"cloudpico-analysis/internal/db"
	"cloudpico-analysis/internal/db/migrate"
	"cloudpico-analysis/internal/mqtt"
	"cloudpico-analysis/internal/pathrecord"
	"cloudpico-analysis/internal/stream"
)

const appName = "sample_archive"

var version = "dev"

type subscriber interface {
	Connect(ctx context.Context) error
	Disconnect()
}

var newSubscriber = func(o mqtt.Options, topic string, h mqtt.Handler, logger *slog.Logger) (subscriber, error) {
	return mqtt.NewSubscriber(o, topic, h, logger)
}

type options struct {
	recPath string
	topic   string
	replay  bool
	start   string
	end     string
	verbose bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(cli.Code(appName, err, os.Stderr))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := cli.NewFlagSet(appName, "[-p REC_PATH] [-t TOPIC] [-v] | -r [-s START] [-e END] [-v]", stderr)
	var o options
	fs.StringVar(&o.recPath, "p", archive.DefaultRecPath, "path of the ISO 8601 timestamp in each document")
	fs.StringVar(&o.topic, "t", "", "archive documents received on this MQTT topic instead of stdin")
	fs.BoolVar(&o.replay, "r", false, "replay archived documents to stdout")
	fs.StringVar(&o.start, "s", "", "replay documents at or after this ISO 8601 time")
	fs.StringVar(&o.end, "e", "", "replay documents before this ISO 8601 time")
	fs.BoolVar(&o.verbose, "v", false, "report narrative to stderr")
	if err := cli.Parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 0 {
		return cli.UsageError(fs, "unexpected argument %q", fs.Arg(0))
	}
	if o.replay && o.topic != "" {
		return cli.UsageError(fs, "-r and -t cannot be combined")
	}
	if !o.replay && (o.start != "" || o.end != "") {
		return cli.UsageError(fs, "-s and -e require -r")
	}

	var rng archive.Range
	if o.replay {
		var err error
		if rng, err = parseRange(o.start, o.end); err != nil {
			return cli.UsageError(fs, "%v", err)
		}
	}

	env, err := cli.Setup(appName, version, stderr, o.verbose)
	if err != nil {
		return err
	}
	logger := env.Logger

	conn, err := db.Open(ctx, env.Config, logger)
	if err != nil {
		return cli.Failf(cli.ExitFailure, "%v", err)
	}
	defer func() {
		if err := db.Close(conn); err != nil {
			logger.Error("close archive", "error", err)
		}
	}()

	if err := migrate.Run(ctx, conn, logger); err != nil {
		return cli.Failf(cli.ExitFailure, "%v", err)
	}
	repo := archive.NewRepository(conn)

	switch {
	case o.replay:
		err = replay(ctx, repo, rng, stdout, stderr, o.verbose)
	case o.topic != "":
		err = archiveTopic(ctx, env, repo, o, stderr)
	default:
		err = archiveStream(ctx, repo, o, stdin, logger, stderr)
	}
	if cli.Interrupted(err) {
		return nil
	}
	return err
}

func parseRange(start, end string) (archive.Range, error) {
	var rng archive.Range
	if start != "" {
		p, err := bounds.ParseBound(bounds.ISO8601, start)
		if err != nil {
			return rng, err
		}
		rng.Start = p.Time()
	}
	if end != "" {
		p, err := bounds.ParseBound(bounds.ISO8601, end)
		if err != nil {
			return rng, err
		}
		rng.End = p.Time()
	}
	if !rng.Start.IsZero() && !rng.End.IsZero() && !rng.Start.Before(rng.End) {
		return rng, fmt.Errorf("start %s must be before end %s", start, end)
	}
	return rng, nil
}

func replay(ctx context.Context, repo archive.Repository, rng archive.Range, stdout, stderr io.Writer, verbose bool) error {
	var n int
	err := repo.Replay(ctx, rng, func(doc archive.Document) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := fmt.Fprintln(stdout, doc.Body); err != nil {
			return err
		}
		n++
		return nil
	})
	if verbose {
		cli.Reportf(stderr, appName, "replayed: %d", n)
	}
	return err
}

func archiveStream(ctx context.Context, repo archive.Repository, o options, stdin io.Reader, logger *slog.Logger, stderr io.Writer) error {
	a := archive.NewArchiver(repo, o.recPath)
	malformed := 0

	err := stream.Lines(ctx, stdin, func(line string) error {
		rec, err := pathrecord.Parse(line)
		if errors.Is(err, pathrecord.ErrEmpty) {
			return nil
		}
		if err != nil {
			malformed++
			logger.Warn("skipping malformed document", "error", err, "line", line)
			return nil
		}
		return archiveOne(ctx, a, rec, logger)
	})

	if o.verbose {
		report(stderr, a.Stats, malformed)
	}
	return err
}

func archiveTopic(ctx context.Context, env cli.Env, repo archive.Repository, o options, stderr io.Writer) error {
	logger := env.Logger
	auth, err := credentials.NewStore(env.Config.CredentialsPath).LoadOptional()
	if err != nil {
		return cli.Failf(cli.ExitFailure, "%v", err)
	}

	a := archive.NewArchiver(repo, o.recPath)
	var mu sync.Mutex
	handler := func(topic string, rec *pathrecord.Record) error {
		mu.Lock()
		defer mu.Unlock()
		return archiveOne(ctx, a, rec, logger.With("topic", topic))
	}

	sub, err := newSubscriber(mqtt.OptionsFromConfig(env.Config, auth), o.topic, handler, logger)
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
	logger.Info("archiving mqtt topic", "topic", o.topic, "rec_path", o.recPath)

	<-ctx.Done()
	sub.Disconnect()

	if o.verbose {
		mu.Lock()
		report(stderr, a.Stats, 0)
		mu.Unlock()
	}

	// The receive context is gone; count with a short one of our own.
	countCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	total, err := repo.Count(countCtx, archive.Range{})
	if err != nil {
		return cli.Failf(cli.ExitFailure, "%v", err)
	}
	logger.Info("archive closed", "documents", total)
	return nil
}

// archiveOne stores rec. Documents without a usable timestamp are logged and
// skipped; storage failures end the run.
func archiveOne(ctx context.Context, a *archive.Archiver, rec *pathrecord.Record, logger *slog.Logger) error {
	err := a.Archive(ctx, rec)
	if errors.Is(err, archive.ErrNoTimestamp) {
		logger.Warn("skipping document", "error", err)
		return nil
	}
	return err
}

func report(w io.Writer, s archive.Stats, malformed int) {
	cli.Reportf(w, appName, "documents: %d archived: %d duplicates: %d rejected: %d malformed: %d",
		s.Documents, s.Archived, s.Duplicates, s.Rejected, malformed)
}
