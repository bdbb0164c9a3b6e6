// Command csv_collator separates JSON documents into per-bin CSV files by the
// value found at PATH, following lower <= value < upper for every bin.
//
//	csv_collator -l LOWER -u UPPER -d DELTA -f FILE_PREFIX [-v] PATH
package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"cloudpico-analysis/internal/cli"
	"cloudpico-analysis/internal/collator"
	"cloudpico-analysis/internal/pathrecord"
	"cloudpico-analysis/internal/stream"
)

const appName = "csv_collator"

// Set with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(cli.Code(appName, err, os.Stderr))
}

type options struct {
	lower, upper, delta cli.OptionalFloat
	prefix              string
	path                string
	verbose             bool
}

func parseArgs(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := cli.NewFlagSet(appName, "-l LOWER -u UPPER -d DELTA -f FILE_PREFIX [-v] PATH", stderr)
	fs.Var(&o.lower, "l", "lower bound of the domain")
	fs.Var(&o.upper, "u", "upper bound of the domain (exclusive)")
	fs.Var(&o.delta, "d", "bin width")
	fs.StringVar(&o.prefix, "f", "", "file (and path) prefix for the generated CSV files")
	fs.BoolVar(&o.verbose, "v", false, "report narrative and bin summary to stderr")

	positional, err := cli.ParseInterspersed(fs, args)
	if err != nil {
		return o, err
	}
	switch {
	case !o.lower.IsSet || !o.upper.IsSet || !o.delta.IsSet:
		return o, cli.UsageError(fs, "-l, -u and -d are required")
	case o.prefix == "":
		return o, cli.UsageError(fs, "-f is required")
	case len(positional) != 1:
		return o, cli.UsageError(fs, "exactly one PATH is required")
	}
	o.path = positional[0]
	return o, nil
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	o, err := parseArgs(args, stderr)
	if err != nil {
		return err
	}

	env, err := cli.Setup(appName, version, stderr, o.verbose)
	if err != nil {
		return err
	}
	logger := env.Logger

	c, err := collator.New(o.lower.Value, o.upper.Value, o.delta.Value, o.prefix)
	if err != nil {
		return cli.Failf(cli.ExitUsage, "%v", err)
	}
	logger.Debug("collating",
		"path", o.path,
		"lower", o.lower.Value,
		"upper", o.upper.Value,
		"delta", o.delta.Value,
		"bins", len(c.Bins()),
	)

	var documents, processed int
	err = stream.Lines(ctx, stdin, func(line string) error {
		rec, err := pathrecord.Parse(line)
		if errors.Is(err, pathrecord.ErrEmpty) {
			return stream.ErrStop
		}
		if err != nil {
			logger.Debug("skipping malformed document", "error", err)
			return nil
		}
		documents++

		v, err := rec.Node(o.path)
		if err != nil {
			return nil
		}
		value, err := v.Float()
		if err != nil {
			return nil
		}

		ok, err := c.Collate(value, line)
		if err != nil {
			return err
		}
		if ok {
			processed++
		}
		return nil
	})

	closeErr := c.Close()
	if cli.Interrupted(err) {
		if o.verbose {
			cli.Reportf(stderr, appName, "interrupted")
		}
		err = nil
	}

	if o.verbose {
		for _, b := range c.Bins() {
			cli.Reportf(stderr, appName, "lower: %.1f upper: %.1f count: %d", b.Lower, b.Upper, b.Count)
		}
	}
	cli.Reportf(stderr, appName, "documents: %d processed: %d", documents, processed)

	if err != nil {
		return err
	}
	return closeErr
}
