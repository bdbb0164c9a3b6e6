// Command sample_bounds writes the documents whose value at PATH lies inside
// (or, with -x, outside) lower <= value < upper. Documents missing the field,
// or holding an empty value, are discarded. A value that cannot be cast to
// the declared type terminates the run.
//
//	sample_bounds { -i | -n } [-l LOWER] [-u UPPER] [-x] [-v] PATH
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"cloudpico-analysis/internal/bounds"
	"cloudpico-analysis/internal/cli"
	"cloudpico-analysis/internal/pathrecord"
	"cloudpico-analysis/internal/stream"
)

const appName = "sample_bounds"

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(cli.Code(appName, err, os.Stderr))
}

type options struct {
	iso8601    bool
	numeric    bool
	lower      string
	upper      string
	exclusions bool
	verbose    bool
	path       string
}

func parseArgs(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := cli.NewFlagSet(appName, "{ -i | -n } [-l LOWER] [-u UPPER] [-x] [-v] PATH", stderr)
	fs.BoolVar(&o.iso8601, "i", false, "field is an ISO 8601 datetime")
	fs.BoolVar(&o.numeric, "n", false, "field is numeric")
	fs.StringVar(&o.lower, "l", "", "lower bound (inclusive)")
	fs.StringVar(&o.upper, "u", "", "upper bound (exclusive)")
	fs.BoolVar(&o.exclusions, "x", false, "output documents outside the bounds")
	fs.BoolVar(&o.verbose, "v", false, "report narrative to stderr")

	positional, err := cli.ParseInterspersed(fs, args)
	if err != nil {
		return o, err
	}
	if o.iso8601 == o.numeric {
		return o, cli.UsageError(fs, "exactly one of -i or -n is required")
	}
	if len(positional) != 1 {
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

	typ := bounds.Numeric
	if o.iso8601 {
		typ = bounds.ISO8601
	}
	filter, err := bounds.New(o.path, typ, o.lower, o.upper, o.exclusions)
	if err != nil {
		return cli.Failf(cli.ExitUsage, "%v", err)
	}
	env.Logger.Debug("filtering", "path", o.path, "type", typ.String(), "lower", o.lower, "upper", o.upper, "exclusions", o.exclusions)

	var documents, processed, output int
	if o.verbose {
		defer func() {
			cli.Reportf(stderr, appName, "documents: %d processed: %d output: %d", documents, processed, output)
		}()
	}

	err = stream.Lines(ctx, stdin, func(line string) error {
		rec, err := pathrecord.Parse(line)
		if errors.Is(err, pathrecord.ErrEmpty) {
			return nil
		}
		if err != nil {
			return cli.Failf(cli.ExitFailure, "malformed document %s", line)
		}
		documents++

		result, err := filter.Classify(rec)
		if err != nil {
			v, _ := rec.Node(o.path)
			return cli.Failf(cli.ExitFailure, "invalid %s value %s in %s", typ, v, line)
		}
		if result == bounds.Missing {
			return nil
		}
		processed++

		if !filter.Emit(result) {
			return nil
		}
		if _, err := fmt.Fprintln(stdout, line); err != nil {
			return err
		}
		output++
		return nil
	})

	if cli.Interrupted(err) {
		if o.verbose {
			cli.Reportf(stderr, appName, "interrupted")
		}
		return nil
	}
	return err
}
