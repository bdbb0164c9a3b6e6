// Command sample_ah appends absolute humidity, derived from the relative
// humidity and temperature of a climate node, to each sample document.
//
//	sample_ah [-p PATH] [-v]
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"cloudpico-analysis/internal/cli"
	"cloudpico-analysis/internal/humidity"
	"cloudpico-analysis/internal/pathrecord"
	"cloudpico-analysis/internal/stream"
)

const appName = "sample_ah"

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(cli.Code(appName, err, os.Stderr))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := cli.NewFlagSet(appName, "[-p PATH] [-v]", stderr)
	path := fs.String("p", humidity.DefaultPath, "path of the node holding hmd and tmp")
	verbose := fs.Bool("v", false, "report narrative to stderr")
	if err := cli.Parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 0 || *path == "" {
		return cli.UsageError(fs, "unexpected arguments")
	}

	env, err := cli.Setup(appName, version, stderr, *verbose)
	if err != nil {
		return err
	}
	env.Logger.Debug("deriving absolute humidity", "path", *path)

	d := humidity.Deriver{Path: *path}
	err = stream.Lines(ctx, stdin, func(line string) error {
		rec, err := pathrecord.Parse(line)
		if err != nil {
			if !errors.Is(err, pathrecord.ErrEmpty) {
				env.Logger.Warn("stopping at malformed document", "error", err)
			}
			return stream.ErrStop
		}

		out, err := d.Derive(rec)
		if err != nil {
			return cli.Failf(cli.ExitFailure, "%v in %s", err, line)
		}
		_, err = fmt.Fprintln(stdout, out)
		return err
	})

	if cli.Interrupted(err) {
		if *verbose {
			cli.Reportf(stderr, appName, "interrupted")
		}
		return nil
	}
	return err
}
